package settings

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/middleware"
	"github.com/keyxmakerx/radio/internal/plugins/audit"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
	"github.com/keyxmakerx/radio/internal/templates/pages"
)

// Handler serves the settings API and page.
type Handler struct {
	service SettingsService
	audit   audit.Logger
}

// NewHandler creates a settings handler.
func NewHandler(service SettingsService) *Handler {
	return &Handler{service: service}
}

// SetAuditLogger records settings changes. Optional.
func (h *Handler) SetAuditLogger(l audit.Logger) {
	h.audit = l
}

// Get returns the playback settings (GET /api/settings).
func (h *Handler) Get(c echo.Context) error {
	ps, err := h.service.Playback(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

// Update changes the playback settings (PUT /api/settings).
func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	ps, err := h.service.Update(c.Request().Context(), req)
	if err != nil {
		return err
	}
	slog.Info("settings changed", slog.String("by", auth.GetUserID(c)))
	h.recordUpdate(c, ps)
	return c.JSON(http.StatusOK, ps)
}

// Page renders the settings form (GET /settings).
func (h *Handler) Page(c echo.Context) error {
	ctx := c.Request().Context()
	ps, err := h.service.Playback(ctx)
	if err != nil {
		return err
	}
	data, err := h.pageData(ctx, ps)
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, pages.Settings(data))
}

// Submit saves the settings form (POST /settings) and re-renders it.
func (h *Handler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	var req UpdateRequest
	var formErr string
	if v, err := strconv.Atoi(c.FormValue("device_index")); err == nil {
		req.DeviceIndex = &v
	} else {
		formErr = "invalid output device"
	}
	if v, err := strconv.Atoi(c.FormValue("volume_percent")); err == nil {
		req.VolumePercent = &v
	} else {
		formErr = "invalid volume"
	}

	status := http.StatusOK
	ps, err := h.service.Playback(ctx)
	if err != nil {
		return err
	}
	if formErr == "" {
		if updated, err := h.service.Update(ctx, req); err != nil {
			formErr = apperror.SafeMessage(err)
			status = apperror.SafeCode(err)
		} else {
			ps = updated
			h.recordUpdate(c, ps)
		}
	} else {
		status = http.StatusUnprocessableEntity
	}

	data, err := h.pageData(ctx, ps)
	if err != nil {
		return err
	}
	data.Error = formErr
	data.Saved = formErr == ""
	return middleware.Render(c, status, pages.Settings(data))
}

func (h *Handler) pageData(ctx context.Context, ps PlaybackSettings) (pages.SettingsData, error) {
	devices, err := h.service.Devices(ctx)
	if err != nil {
		return pages.SettingsData{}, err
	}
	data := pages.SettingsData{DeviceIndex: ps.DeviceIndex, VolumePercent: ps.VolumePercent}
	for _, d := range devices {
		label := d.Name
		if d.Description != "" {
			label = d.Description + " (" + d.Name + ")"
		}
		data.Devices = append(data.Devices, pages.DeviceOption{Index: d.Index, Label: label})
	}
	return data, nil
}

func (h *Handler) recordUpdate(c echo.Context, ps PlaybackSettings) {
	audit.Record(c, h.audit, audit.Entry{
		Action: audit.ActionSettingsUpdated,
		Details: map[string]any{
			"device_index":   ps.DeviceIndex,
			"volume_percent": ps.VolumePercent,
		},
	})
}
