package stations

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/contrast"
	"github.com/keyxmakerx/radio/internal/plugins/audit"
)

// Handler serves the station API and artwork files.
type Handler struct {
	service StationService
	audit   audit.Logger
}

// NewHandler creates a station handler.
func NewHandler(service StationService) *Handler {
	return &Handler{service: service}
}

// SetAuditLogger records catalogue changes. Optional.
func (h *Handler) SetAuditLogger(l audit.Logger) {
	h.audit = l
}

// List returns all stations (GET /api/stations).
func (h *Handler) List(c echo.Context) error {
	stations, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	resp := make([]StationResponse, 0, len(stations))
	for i := range stations {
		resp = append(resp, NewStationResponse(&stations[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get returns one station (GET /api/stations/:id).
func (h *Handler) Get(c echo.Context) error {
	station, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewStationResponse(station))
}

// Create adds a station (POST /api/stations).
func (h *Handler) Create(c echo.Context) error {
	var req StationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	station, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	audit.Record(c, h.audit, audit.Entry{
		Action:      audit.ActionStationCreated,
		StationID:   station.ID,
		StationName: station.Name,
		Details:     map[string]any{"url": station.URL},
	})
	return c.JSON(http.StatusCreated, NewStationResponse(station))
}

// Update edits a station (PUT /api/stations/:id).
func (h *Handler) Update(c echo.Context) error {
	var req StationRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	station, err := h.service.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	audit.Record(c, h.audit, audit.Entry{
		Action:      audit.ActionStationUpdated,
		StationID:   station.ID,
		StationName: station.Name,
	})
	return c.JSON(http.StatusOK, NewStationResponse(station))
}

// Delete removes a station (DELETE /api/stations/:id).
func (h *Handler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	audit.Record(c, h.audit, audit.Entry{Action: audit.ActionStationDeleted, StationID: id})
	return c.NoContent(http.StatusNoContent)
}

// UploadArtwork accepts a multipart "file" (POST /api/stations/:id/artwork).
func (h *Handler) UploadArtwork(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apperror.NewBadRequest("no file provided")
	}

	src, err := file.Open()
	if err != nil {
		return apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.NewBadRequest("file too large")
		}
		return apperror.NewInternal(err)
	}

	station, err := h.service.UploadArtwork(c.Request().Context(), ArtworkInput{
		StationID: c.Param("id"),
		MimeType:  file.Header.Get("Content-Type"),
		Data:      data,
	})
	if err != nil {
		return err
	}
	audit.Record(c, h.audit, audit.Entry{
		Action:      audit.ActionArtworkUpdated,
		StationID:   station.ID,
		StationName: station.Name,
		Details:     map[string]any{"color": station.Color},
	})
	return c.JSON(http.StatusOK, NewStationResponse(station))
}

// ServeArtwork serves a stored thumbnail (GET /artwork/:file).
func (h *Handler) ServeArtwork(c echo.Context) error {
	path, err := h.service.ArtworkPath(c.Param("file"))
	if err != nil {
		return err
	}
	// File names are random per upload, so the content never changes.
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	c.Response().Header().Set("Content-Type", "image/png")
	return c.File(path)
}

// ContrastResponse is the reply of GET /api/contrast.
type ContrastResponse struct {
	Color string          `json:"color"`
	Text  contrast.Result `json:"text"`
	Ratio float64         `json:"ratio"`
}

// Contrast picks black or white text for ?color=#rrggbb
// (GET /api/contrast). Used by the station editor preview.
func (h *Handler) Contrast(c echo.Context) error {
	color := c.QueryParam("color")
	result, err := contrast.Decide(color)
	if errors.Is(err, contrast.ErrInvalidColorFormat) {
		return apperror.NewValidation("color must look like #rrggbb")
	}
	if err != nil {
		return err
	}
	rgb, _ := contrast.Parse(color)
	return c.JSON(http.StatusOK, ContrastResponse{
		Color: rgb.Hex(),
		Text:  result,
		Ratio: contrast.Ratio(rgb),
	})
}
