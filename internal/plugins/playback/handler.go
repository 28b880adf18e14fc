package playback

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/middleware"
	"github.com/keyxmakerx/radio/internal/notify"
	"github.com/keyxmakerx/radio/internal/player"
	"github.com/keyxmakerx/radio/internal/plugins/audit"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
	"github.com/keyxmakerx/radio/internal/plugins/stations"
	"github.com/keyxmakerx/radio/internal/templates/pages"
)

// Handler serves playback requests.
type Handler struct {
	player   Controller
	stations StationLister
	volume   VolumeSaver
	notifier notify.Notifier
	audit    audit.Logger
}

// NewHandler creates a playback handler. volume and notifier may be nil.
func NewHandler(p Controller, s StationLister, volume VolumeSaver, notifier notify.Notifier) *Handler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{player: p, stations: s, volume: volume, notifier: notifier}
}

// SetAuditLogger records plays and stops. Optional.
func (h *Handler) SetAuditLogger(l audit.Logger) {
	h.audit = l
}

// Play starts a station (POST /api/play).
func (h *Handler) Play(c echo.Context) error {
	var req PlayRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.StationID == "" {
		return apperror.NewValidation("station_id is required")
	}

	ctx := c.Request().Context()
	station, err := h.stations.Get(ctx, req.StationID)
	if err != nil {
		return err
	}

	if err := h.player.Play(ctx, station.PlayerStation()); err != nil {
		slog.Warn("could not start playback",
			slog.String("station", station.ID),
			slog.Any("error", err),
		)
		h.notify(c, notify.New(notify.LevelError, "Could not start "+station.Name+": "+err.Error()))
		audit.Record(c, h.audit, audit.Entry{
			Action:      audit.ActionPlaybackFailed,
			StationID:   station.ID,
			StationName: station.Name,
			Details:     map[string]any{"error": err.Error()},
		})
		return apperror.NewServiceUnavailable("could not start playback", err)
	}
	audit.Record(c, h.audit, audit.Entry{
		Action:      audit.ActionPlaybackStarted,
		StationID:   station.ID,
		StationName: station.Name,
	})
	return c.JSON(http.StatusOK, MessageResponse{Message: "started playback"})
}

// Stop stops playback (POST /api/stop).
func (h *Handler) Stop(c echo.Context) error {
	playing := h.player.Status().Station
	err := h.player.Stop()
	if errors.Is(err, player.ErrNotPlaying) {
		return apperror.NewBadRequest(err.Error())
	}
	if err != nil {
		return apperror.NewServiceUnavailable("could not stop playback", err)
	}
	entry := audit.Entry{Action: audit.ActionPlaybackStopped}
	if playing != nil {
		entry.StationID, entry.StationName = playing.ID, playing.Name
	}
	audit.Record(c, h.audit, entry)
	return c.JSON(http.StatusOK, MessageResponse{Message: "stopped playing"})
}

// Status returns the player state (GET /api/player).
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.player.Status())
}

// SetVolume changes the live volume (PUT /api/player/volume) and persists it.
func (h *Handler) SetVolume(c echo.Context) error {
	var req VolumeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Volume == nil {
		return apperror.NewValidation("volume is required")
	}

	err := h.player.SetVolume(*req.Volume)
	if errors.Is(err, player.ErrInvalidVolume) {
		return apperror.NewValidation(err.Error())
	}
	if err != nil {
		return apperror.NewServiceUnavailable("could not change volume", err)
	}

	if h.volume != nil {
		if err := h.volume.SaveVolume(c.Request().Context(), *req.Volume); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, h.player.Status())
}

// Devices lists the output devices (GET /api/devices).
func (h *Handler) Devices(c echo.Context) error {
	devices, err := h.player.Devices(c.Request().Context())
	if err != nil {
		return apperror.NewServiceUnavailable("could not list audio devices", err)
	}
	return c.JSON(http.StatusOK, devices)
}

// Dashboard renders the station cards (GET /).
func (h *Handler) Dashboard(c echo.Context) error {
	list, err := h.stations.List(c.Request().Context())
	if err != nil {
		return err
	}

	status := h.player.Status()
	data := pages.DashboardData{Volume: status.Volume}
	if session := auth.GetSession(c); session != nil {
		data.IsAdmin = session.IsAdmin
	}
	if status.Playing && status.Station != nil {
		data.NowPlaying = status.Station.Name
		if status.Since != nil {
			data.Since = *status.Since
		}
	}

	for i := range list {
		data.Stations = append(data.Stations, card(&list[i], status))
	}
	return middleware.Render(c, http.StatusOK, pages.Dashboard(data))
}

func card(s *stations.Station, status player.Status) pages.StationCard {
	return pages.StationCard{
		ID:              s.ID,
		Name:            s.Name,
		DescriptionHTML: s.Description,
		Color:           s.CardColor(),
		TextColor:       s.TextColor().String(),
		ArtworkURL:      s.ArtworkURL(),
		Playing:         status.Playing && status.Station != nil && status.Station.ID == s.ID,
	}
}

func (h *Handler) notify(c echo.Context, n notify.Notification) {
	if err := h.notifier.Notify(c.Request().Context(), n); err != nil {
		slog.Warn("sending notification failed", slog.Any("error", err))
	}
}
