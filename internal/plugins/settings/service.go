package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/keyxmakerx/radio/internal/apperror"
	"github.com/keyxmakerx/radio/internal/player"
)

// SettingsService reads, validates and applies playback settings.
type SettingsService interface {
	// Playback returns the stored settings with defaults filled in.
	Playback(ctx context.Context) (PlaybackSettings, error)

	// Update validates req, applies it to the player and persists it.
	Update(ctx context.Context, req UpdateRequest) (PlaybackSettings, error)

	// SaveVolume persists a volume the player already uses.
	SaveVolume(ctx context.Context, percent int) error

	// Apply pushes the stored settings into the player. Called at startup.
	Apply(ctx context.Context) error

	// Devices lists the selectable output devices.
	Devices(ctx context.Context) ([]player.Device, error)
}

type settingsService struct {
	repo   SettingsRepository
	output Output
}

// NewSettingsService creates the settings service.
func NewSettingsService(repo SettingsRepository, output Output) SettingsService {
	return &settingsService{repo: repo, output: output}
}

// Playback reads both keys. Missing or unparsable values fall back to
// DefaultVolumePercent and the backend's default device.
func (s *settingsService) Playback(ctx context.Context) (PlaybackSettings, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return PlaybackSettings{}, err
	}

	ps := PlaybackSettings{VolumePercent: parseInt(all[KeyVolumePercent], DefaultVolumePercent)}
	if ps.VolumePercent < 0 || ps.VolumePercent > 100 {
		ps.VolumePercent = DefaultVolumePercent
	}

	device, ok := parseIntOK(all[KeyDeviceIndex])
	if !ok {
		device, err = s.output.DefaultDevice(ctx)
		if err != nil {
			slog.Warn("could not determine default audio device", slog.Any("error", err))
			device = 0
		}
	}
	ps.DeviceIndex = device
	return ps, nil
}

// Update applies the device first so a failed switch leaves the volume
// untouched.
func (s *settingsService) Update(ctx context.Context, req UpdateRequest) (PlaybackSettings, error) {
	current, err := s.Playback(ctx)
	if err != nil {
		return PlaybackSettings{}, err
	}
	next := current
	if req.VolumePercent != nil {
		next.VolumePercent = *req.VolumePercent
	}
	if req.DeviceIndex != nil {
		next.DeviceIndex = *req.DeviceIndex
	}

	if next.VolumePercent < 0 || next.VolumePercent > 100 {
		return current, apperror.NewValidation(player.ErrInvalidVolume.Error())
	}

	if err := s.output.SetOutputDevice(ctx, next.DeviceIndex); err != nil {
		if errors.Is(err, player.ErrNoSuchDevice) {
			return current, apperror.NewValidation(err.Error())
		}
		return current, apperror.NewServiceUnavailable("could not change output device", err)
	}
	if err := s.output.SetVolume(next.VolumePercent); err != nil {
		return current, apperror.NewServiceUnavailable("could not change volume", err)
	}

	if err := s.repo.Set(ctx, KeyDeviceIndex, strconv.Itoa(next.DeviceIndex)); err != nil {
		return current, fmt.Errorf("persisting %s: %w", KeyDeviceIndex, err)
	}
	if err := s.repo.Set(ctx, KeyVolumePercent, strconv.Itoa(next.VolumePercent)); err != nil {
		return current, fmt.Errorf("persisting %s: %w", KeyVolumePercent, err)
	}

	slog.Info("playback settings updated",
		slog.Int("device", next.DeviceIndex),
		slog.Int("volume", next.VolumePercent),
	)
	return next, nil
}

// SaveVolume stores the volume without touching the player.
func (s *settingsService) SaveVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return apperror.NewValidation(player.ErrInvalidVolume.Error())
	}
	return s.repo.Set(ctx, KeyVolumePercent, strconv.Itoa(percent))
}

// Apply loads the stored settings into the player. A stored device that no
// longer exists is logged and skipped so the server still starts.
func (s *settingsService) Apply(ctx context.Context) error {
	ps, err := s.Playback(ctx)
	if err != nil {
		return err
	}
	if err := s.output.SetVolume(ps.VolumePercent); err != nil {
		return fmt.Errorf("applying volume: %w", err)
	}
	if err := s.output.SetOutputDevice(ctx, ps.DeviceIndex); err != nil {
		slog.Warn("stored audio device unavailable, keeping default",
			slog.Int("device", ps.DeviceIndex),
			slog.Any("error", err),
		)
	}
	slog.Debug("playback settings applied",
		slog.Int("device", ps.DeviceIndex),
		slog.Int("volume", ps.VolumePercent),
	)
	return nil
}

// Devices lists the player's output devices.
func (s *settingsService) Devices(ctx context.Context) ([]player.Device, error) {
	devices, err := s.output.Devices(ctx)
	if err != nil {
		return nil, apperror.NewServiceUnavailable("could not list audio devices", err)
	}
	return devices, nil
}

// --- Parsing Helpers ---

// parseInt parses a string to int, returning the fallback on failure.
func parseInt(s string, fallback int) int {
	if v, ok := parseIntOK(s); ok {
		return v
	}
	return fallback
}

func parseIntOK(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}
