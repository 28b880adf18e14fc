// Package settings stores the persistent playback settings (output device
// and volume) in the site_settings key/value table and applies them to the
// player.
package settings

import (
	"context"

	"github.com/keyxmakerx/radio/internal/player"
)

// Setting keys used in the site_settings table.
const (
	KeyVolumePercent = "playback.volume_percent"
	KeyDeviceIndex   = "playback.device_index"
)

// DefaultVolumePercent is used until a volume has been saved.
const DefaultVolumePercent = 100

// PlaybackSettings are the persisted playback preferences.
type PlaybackSettings struct {
	DeviceIndex   int `json:"device_index"`
	VolumePercent int `json:"volume_percent"`
}

// UpdateRequest is the body of PUT /api/settings. Omitted fields keep their
// current value.
type UpdateRequest struct {
	DeviceIndex   *int `json:"device_index"`
	VolumePercent *int `json:"volume_percent"`
}

// Output is the part of *player.Player settings are applied to.
type Output interface {
	SetVolume(percent int) error
	SetOutputDevice(ctx context.Context, index int) error
	Devices(ctx context.Context) ([]player.Device, error)
	DefaultDevice(ctx context.Context) (int, error)
}
