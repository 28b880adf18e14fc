// Package playback exposes the player over HTTP: starting and stopping
// stations, the live volume, output devices and the dashboard page.
package playback

import (
	"context"

	"github.com/keyxmakerx/radio/internal/player"
	"github.com/keyxmakerx/radio/internal/plugins/stations"
)

// Controller is the part of *player.Player the handlers use.
type Controller interface {
	Play(ctx context.Context, station player.Station) error
	Stop() error
	SetVolume(percent int) error
	Status() player.Status
	Devices(ctx context.Context) ([]player.Device, error)
}

// StationLister looks stations up. Implemented by stations.StationService.
type StationLister interface {
	List(ctx context.Context) ([]stations.Station, error)
	Get(ctx context.Context, id string) (*stations.Station, error)
}

// VolumeSaver persists the volume so it survives restarts. Implemented by
// the settings service.
type VolumeSaver interface {
	SaveVolume(ctx context.Context, percent int) error
}

// PlayRequest is the body of POST /api/play.
type PlayRequest struct {
	StationID string `json:"station_id" form:"station_id"`
}

// VolumeRequest is the body of PUT /api/player/volume.
type VolumeRequest struct {
	Volume *int `json:"volume" form:"volume"`
}

// MessageResponse is the plain acknowledgement returned by actions.
type MessageResponse struct {
	Message string `json:"message"`
}
