// Package apperror provides the error types handlers return. Each error
// carries an HTTP status code and a message that is safe to show the user;
// the echo error handler in package app turns them into responses.
//
// Raw database, Redis or mpv errors never reach the client. Wrap them in
// Internal (logged only) or Detail (shown, for player failures).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code.
	Code int `json:"-"`

	// Type is a machine-readable classifier, e.g. "not_found".
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Detail is an optional extra explanation shown to the client, e.g. why
	// a stream could not be opened.
	Detail string `json:"error,omitempty"`

	// Internal holds the underlying error for logging. Never exposed.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Type: "not_found", Message: message}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: "bad_request", Message: message}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Type: "unauthorized", Message: message}
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Type: "forbidden", Message: message}
}

// NewConflict creates a 409 Conflict error.
func NewConflict(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Type: "conflict", Message: message}
}

// NewValidation creates a 422 Unprocessable Entity error.
func NewValidation(message string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Type: "validation_error", Message: message}
}

// NewTooManyRequests creates a 429 error for rate-limited clients.
func NewTooManyRequests(message string) *AppError {
	return &AppError{Code: http.StatusTooManyRequests, Type: "rate_limited", Message: message}
}

// NewServiceUnavailable creates a 503 error for failures of the audio
// backend. The cause is shown to the user as Detail because it is usually
// actionable ("stream did not connect before timeout").
func NewServiceUnavailable(message string, cause error) *AppError {
	e := &AppError{
		Code:     http.StatusServiceUnavailable,
		Type:     "service_unavailable",
		Message:  message,
		Internal: cause,
	}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// errMissingDependency is the shared internal error for nil precondition checks.
var errMissingDependency = errors.New("missing required dependency")

// NewMissingDependency creates a 500 error for handlers whose dependency
// was not wired.
func NewMissingDependency() *AppError {
	return NewInternal(errMissingDependency)
}

// NewInternal creates a 500 Internal Server Error. The client only sees a
// generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// SafeMessage returns the client-safe message of err.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status of err, or 500 for non-AppErrors.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
