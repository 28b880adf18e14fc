// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, player,
// notification hub, Echo instance) and wires the plugins together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/config"
	"github.com/keyxmakerx/radio/internal/middleware"
	"github.com/keyxmakerx/radio/internal/notify"
	"github.com/keyxmakerx/radio/internal/player"
	"github.com/keyxmakerx/radio/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup by the serve command.
type App struct {
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis holds sessions and, optionally, the notification channel.
	Redis *redis.Client

	// Hub fans notifications out to WebSocket clients of this instance.
	Hub *notify.Hub

	// Notifier is what components publish to: the Hub, or Redis when
	// notifications are shared between instances.
	Notifier notify.Notifier

	Player *player.Player
	Echo   *echo.Echo

	stopRelay context.CancelFunc
}

// New creates the App, its player and notification plumbing, and configures
// Echo with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, backend player.Backend) (*App, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, middleware.DefaultTrustedProxies)

	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Hub:       notify.NewHub(),
		Echo:      e,
		stopRelay: func() {},
	}

	app.Notifier = app.Hub
	if ch := cfg.Notify.RedisChannel; ch != "" && rdb != nil {
		// Every instance relays the channel into its own Hub, so publishing
		// to Redis alone reaches local clients too.
		app.Notifier = notify.NewRedisNotifier(rdb, ch)
		app.startRelay(notify.NewRedisNotifier(rdb, ch))
	}

	p, err := player.New(backend, app.Notifier, player.Options{
		ConnectTimeout: cfg.Player.ConnectTimeout,
		FadeStep:       cfg.Player.FadeStep,
		MaxRestarts:    cfg.Player.MaxRestarts,
		Volume:         100,
	})
	if err != nil {
		app.stopRelay()
		return nil, fmt.Errorf("creating player: %w", err)
	}
	app.Player = p

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app, nil
}

func (a *App) startRelay(relay *notify.RedisNotifier) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopRelay = cancel
	go func() {
		if err := relay.Relay(ctx, a.Hub); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("notification relay stopped", slog.Any("error", err))
		}
	}()
	slog.Info("relaying notifications through redis", slog.String("channel", a.Config.Notify.RedisChannel))
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) last.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())

	// Only relevant for third-party dashboards calling /api.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))

	// The API is cookie-authenticated, so it is protected too. JSON login
	// has no session to forge yet.
	a.Echo.Use(middleware.CSRF(middleware.CSRFConfig{
		Secret: a.Config.Auth.SecretKey,
		Exempt: []string{"/api/login"},
	}))
}

// errorHandler maps errors to responses: JSON for API and fetch requests,
// a redirect to /login for unauthenticated browsers, and an HTML error page
// otherwise.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)
	body := map[string]string{}

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		body["type"] = appErr.Type
		if appErr.Detail != "" {
			body["error"] = appErr.Detail
		}
		if appErr.Internal != nil {
			level := slog.LevelError
			if code < http.StatusInternalServerError || code == http.StatusServiceUnavailable {
				level = slog.LevelWarn
			}
			slog.Log(c.Request().Context(), level, "request failed",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if middleware.WantsJSON(c) {
		body["message"] = message
		if _, ok := body["type"]; !ok {
			body["type"] = typeForStatus(code)
		}
		_ = c.JSON(code, body)
		return
	}

	if code == http.StatusUnauthorized {
		_ = c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if detail := body["error"]; detail != "" {
		message += ": " + detail
	}
	_ = middleware.Render(c, code, pages.Error(code, message))
}

// typeForStatus names echo's own errors the way apperror does.
func typeForStatus(code int) string {
	switch code {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadRequest:
		return "bad_request"
	}
	return "internal_error"
}

// defaultErrorMessage returns a user-friendly message for common HTTP status
// codes when the error carried none.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "You need to log in to access this page."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The audio backend is unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := a.Config.ListenAddr()
	slog.Info("starting radio server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains HTTP connections, stops playback and the relay.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if perr := a.Player.Close(); perr != nil {
		slog.Warn("stopping player failed", slog.Any("error", perr))
	}
	a.stopRelay()
	return err
}
