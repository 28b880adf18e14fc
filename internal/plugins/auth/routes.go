package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/middleware"
)

// RegisterRoutes sets up the public auth routes. Login endpoints share one
// per-IP limiter of loginRate attempts per minute.
func RegisterRoutes(e *echo.Echo, h *Handler, loginRate int) {
	limit := middleware.RateLimit(loginRate, time.Minute)

	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, limit)
	e.POST("/api/login", h.APILogin, limit)

	e.POST("/logout", h.Logout)
	e.GET("/logout", h.Logout)
}
