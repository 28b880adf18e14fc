package middleware

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout data (current user, CSRF token) from the echo
// context into the context.Context templ components render with. It is
// registered once in app/routes.go so this package needs no plugin imports.
var LayoutInjector func(echo.Context, context.Context) context.Context

// WantsJSON reports whether the request should get a JSON error rather than
// an HTML page: API routes and fetch calls that ask for JSON.
func WantsJSON(c echo.Context) bool {
	req := c.Request()
	return strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// Render writes a templ component with the given status code, running the
// LayoutInjector first.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}
