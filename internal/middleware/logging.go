// Package middleware provides the echo middleware of the radio server.
// Global middleware is registered in internal/app/app.go, route-scoped
// middleware (auth, rate limits) in each plugin's routes.go.
package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns middleware that logs every HTTP request with
// method, path, status, latency and remote IP. Static assets and the
// metrics scrape are logged at debug level to keep the log readable.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the logged
				// status is the one the client sees.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}

			level := slog.LevelInfo
			switch {
			case res.Status >= 500:
				level = slog.LevelError
			case res.Status >= 400:
				level = slog.LevelWarn
			case quietPath(req.URL.Path):
				level = slog.LevelDebug
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)
			return nil
		}
	}
}

func quietPath(path string) bool {
	return path == "/metrics" || path == "/healthz" ||
		strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/artwork/")
}
