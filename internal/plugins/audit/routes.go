package audit

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// RegisterRoutes sets up the activity routes. The full feed is for admins;
// any signed-in user can see a station's history.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService) {
	authMw := auth.RequireAuth(authSvc)

	e.GET("/api/activity", h.Activity, authMw, auth.RequireAdmin())
	e.GET("/api/stations/:id/history", h.StationHistory, authMw)
}
