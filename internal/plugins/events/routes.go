package events

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// RegisterRoutes mounts the event stream for signed-in users.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	e.GET("/ws", h.Stream, auth.RequireAuth(authSvc))
}
