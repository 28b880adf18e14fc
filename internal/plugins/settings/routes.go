package settings

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// RegisterRoutes sets up the settings page and API. Both need a session.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	authMw := auth.RequireAuth(authSvc)

	e.GET("/settings", h.Page, authMw)
	e.POST("/settings", h.Submit, authMw)

	e.GET("/api/settings", h.Get, authMw)
	e.PUT("/api/settings", h.Update, authMw)
}
