package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves the activity feed. Handlers are thin: bind request, call
// service, render response.
type Handler struct {
	service AuditService
}

// NewHandler creates an audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// Activity returns a page of the feed (GET /api/activity?page=N).
func (h *Handler) Activity(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	p, err := h.service.Activity(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// StationHistory returns the entries about one station
// (GET /api/stations/:id/history).
func (h *Handler) StationHistory(c echo.Context) error {
	entries, err := h.service.StationHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
