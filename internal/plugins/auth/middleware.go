package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/middleware"
)

const contextKeySession = "auth_session"

// RequireAuth validates the session cookie and stores the session in the
// echo context. Browsers without a session are redirected to /login; API
// clients get a 401.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := getSessionToken(c)
			if token == "" {
				return handleUnauthenticated(c)
			}

			session, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				if apperror.SafeCode(err) != http.StatusUnauthorized {
					return err
				}
				clearSessionCookie(c)
				return handleUnauthenticated(c)
			}

			c.Set(contextKeySession, session)
			return next(c)
		}
	}
}

// RequireAdmin rejects signed-in users without the admin flag. Must run
// after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := GetSession(c)
			if session == nil {
				return apperror.NewUnauthorized("authentication required")
			}
			if !session.IsAdmin {
				return apperror.NewForbidden("administrator access required")
			}
			return next(c)
		}
	}
}

func handleUnauthenticated(c echo.Context) error {
	if middleware.WantsJSON(c) {
		return apperror.NewUnauthorized("authentication required")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// GetSession returns the authenticated session, or nil outside RequireAuth.
func GetSession(c echo.Context) *Session {
	session, _ := c.Get(contextKeySession).(*Session)
	return session
}

// GetUserID returns the authenticated user's ID, or "".
func GetUserID(c echo.Context) string {
	if s := GetSession(c); s != nil {
		return s.UserID
	}
	return ""
}

// LookupSession resolves the session cookie outside RequireAuth, e.g. for
// rendering the nav bar on error pages. Returns nil when there is none.
func LookupSession(c echo.Context, service AuthService) *Session {
	token := getSessionToken(c)
	if token == "" {
		return nil
	}
	session, err := service.ValidateSession(c.Request().Context(), token)
	if err != nil {
		return nil
	}
	return session
}
