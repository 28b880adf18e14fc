package player

import "context"

// Device is an audio output the backend can play through. Index is the
// position in the backend's device list and is what settings persist.
type Device struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OpenRequest describes a stream to open.
type OpenRequest struct {
	URL    string
	Volume int // Initial volume in percent.
	Device int // Index into Backend.Devices.
}

// Stream is a running playback.
type Stream interface {
	// SetVolume changes the output volume, in percent.
	SetVolume(percent int) error

	// Done is closed when playback ends without Close being called
	// (network drop, end of file, backend crash).
	Done() <-chan struct{}

	// Close stops playback and releases the output device.
	Close() error
}

// Backend opens audio streams on an output device.
type Backend interface {
	// Open starts playing req.URL and returns once audio is flowing. It must
	// honour ctx cancellation while connecting.
	Open(ctx context.Context, req OpenRequest) (Stream, error)

	// Devices lists the available output devices.
	Devices(ctx context.Context) ([]Device, error)

	// DefaultDevice returns the index of the system default output.
	DefaultDevice(ctx context.Context) (int, error)
}
