package stations

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

// RegisterRoutes sets up station routes. Artwork is public, reading the
// catalogue needs a session and changing it needs an admin. maxUploadSize bounds artwork bodies
// before they are read into memory.
func RegisterRoutes(e *echo.Echo, h *Handler, authSvc auth.AuthService, maxUploadSize int64) {
	authMw := auth.RequireAuth(authSvc)
	adminMw := auth.RequireAdmin()

	e.GET("/artwork/:file", h.ServeArtwork)

	api := e.Group("/api", authMw)
	api.GET("/stations", h.List)
	api.GET("/stations/:id", h.Get)
	api.GET("/contrast", h.Contrast)

	api.POST("/stations", h.Create, adminMw)
	api.PUT("/stations/:id", h.Update, adminMw)
	api.DELETE("/stations/:id", h.Delete, adminMw)

	// 10% margin for multipart encoding overhead.
	bodyLimit := bodyLimitMiddleware(maxUploadSize + maxUploadSize/10)
	api.POST("/stations/:id/artwork", h.UploadArtwork, adminMw, bodyLimit)
}

// bodyLimitMiddleware rejects request bodies larger than maxBytes.
func bodyLimitMiddleware(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > maxBytes {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body too large; maximum is %s", humanize.IBytes(uint64(maxBytes))))
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
			return next(c)
		}
	}
}
