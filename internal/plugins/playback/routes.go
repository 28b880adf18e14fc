package playback

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// RegisterRoutes sets up the dashboard and player API. Every route needs a
// session.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	authMw := auth.RequireAuth(authSvc)

	e.GET("/", h.Dashboard, authMw)

	api := e.Group("/api", authMw)
	api.POST("/play", h.Play)
	api.POST("/stop", h.Stop)
	api.GET("/player", h.Status)
	api.PUT("/player/volume", h.SetVolume)
	api.GET("/devices", h.Devices)
}
