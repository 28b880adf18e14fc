package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/middleware"
	"github.com/keyxmakerx/radio/internal/templates/pages"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "radio_session"

// Handler serves login and logout. Handlers bind the request, call the
// service and render; no business logic lives here.
type Handler struct {
	service    AuthService
	sessionTTL time.Duration
}

// NewHandler creates an auth handler. sessionTTL sets the cookie lifetime.
func NewHandler(service AuthService, sessionTTL time.Duration) *Handler {
	return &Handler{service: service, sessionTTL: sessionTTL}
}

// LoginForm renders the login page (GET /login). Signed-in users go
// straight to the dashboard.
func (h *Handler) LoginForm(c echo.Context) error {
	if h.hasValidSession(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return middleware.Render(c, http.StatusOK, pages.Login("", ""))
}

// Login processes the login form (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	token, _, err := h.service.Login(c.Request().Context(), LoginInput(req))
	if errors.Is(err, ErrBadCredentials) {
		return middleware.Render(c, http.StatusForbidden, pages.Login(req.Username, ErrBadCredentials.Message))
	}
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token)
	return c.Redirect(http.StatusSeeOther, "/")
}

// APILogin is the JSON login endpoint (POST /api/login).
func (h *Handler) APILogin(c echo.Context) error {
	if h.hasValidSession(c) {
		return c.JSON(http.StatusOK, map[string]string{"message": "already logged in"})
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, user, err := h.service.Login(c.Request().Context(), LoginInput(req))
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token)
	return c.JSON(http.StatusOK, map[string]any{
		"message": "logged in",
		"user":    user,
	})
}

// Logout destroys the session (POST or GET /logout) and returns to the
// login page.
func (h *Handler) Logout(c echo.Context) error {
	if token := getSessionToken(c); token != "" {
		if err := h.service.DestroySession(c.Request().Context(), token); err != nil {
			return err
		}
	}
	clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) hasValidSession(c echo.Context) bool {
	token := getSessionToken(c)
	if token == "" {
		return false
	}
	_, err := h.service.ValidateSession(c.Request().Context(), token)
	return err == nil
}

// --- Cookie helpers ---

func getSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setSessionCookie sets an HttpOnly, SameSite=Lax session cookie, Secure
// when the request came in over HTTPS.
func (h *Handler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL / time.Second),
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
