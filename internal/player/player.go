// Package player owns the audio output: at most one station plays at a time.
// It opens streams through a Backend, fades volume changes, restarts
// stations that ask for it when their stream drops, and publishes its status
// through a store.Value so the UI can follow along.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/keyxmakerx/radio/internal/notify"
	"github.com/keyxmakerx/radio/internal/store"
)

var (
	// ErrNotPlaying is returned by Stop when nothing is playing.
	ErrNotPlaying = errors.New("the player is currently not playing anything")

	// ErrStreamConnectTimeout is returned when a stream does not start
	// within the connect timeout.
	ErrStreamConnectTimeout = errors.New("stream did not connect before timeout")

	// ErrInvalidVolume is returned for volumes outside 0..100.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")

	// ErrNoSuchDevice is returned for an unknown output device index.
	ErrNoSuchDevice = errors.New("this device does not exist")
)

// Station is the part of a station the player needs.
type Station struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	AutoRestart bool   `json:"auto_restart"`
}

// Status is a snapshot of the player state.
type Status struct {
	Playing bool     `json:"playing"`
	Station *Station `json:"station,omitempty"`
	Volume  int      `json:"volume"`
	Device  int      `json:"device"`

	// Since is when the current station started; nil while stopped.
	Since *time.Time `json:"since,omitempty"`
}

// Options tunes the player. Zero values are replaced by the defaults below.
type Options struct {
	// ConnectTimeout bounds how long Play waits for audio (default 10s).
	ConnectTimeout time.Duration

	// FadeStep is the delay between 1% volume steps (default 12ms).
	// Negative disables fading delays entirely.
	FadeStep time.Duration

	// RestartBackoff is the base delay before an automatic restart; the
	// n-th consecutive restart waits n times as long (default 2s).
	RestartBackoff time.Duration

	// MaxRestarts caps consecutive automatic restarts (default 5).
	MaxRestarts int

	// StableAfter resets the restart counter once a stream has played this
	// long (default 1m).
	StableAfter time.Duration

	// Volume and Device are the initial settings.
	Volume int
	Device int
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.FadeStep == 0 {
		o.FadeStep = 12 * time.Millisecond
	}
	if o.RestartBackoff <= 0 {
		o.RestartBackoff = 2 * time.Second
	}
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = 5
	}
	if o.StableAfter <= 0 {
		o.StableAfter = time.Minute
	}
}

// session is one playing station. quit is closed when the player stops it.
type session struct {
	station Station
	stream  Stream
	quit    chan struct{}
	since   time.Time
}

// Player serialises all playback operations.
type Player struct {
	mu       sync.Mutex
	backend  Backend
	notifier notify.Notifier
	opts     Options

	volume int
	device int
	cur    *session

	status *store.Value[Status]
	wg     sync.WaitGroup
}

// New creates a stopped player. A nil notifier is replaced by notify.Nop.
func New(backend Backend, notifier notify.Notifier, opts Options) (*Player, error) {
	if opts.Volume < 0 || opts.Volume > 100 {
		return nil, ErrInvalidVolume
	}
	opts.applyDefaults()
	if notifier == nil {
		notifier = notify.Nop{}
	}

	p := &Player{
		backend:  backend,
		notifier: notifier,
		opts:     opts,
		volume:   opts.Volume,
		device:   opts.Device,
	}
	p.status = store.New(Status{Volume: opts.Volume, Device: opts.Device})
	playingGauge.Set(0)
	return p, nil
}

// Status returns the current player state.
func (p *Player) Status() Status {
	return p.status.Get()
}

// Watch subscribes to status changes. See store.Value.Subscribe.
func (p *Player) Watch() (<-chan Status, func()) {
	return p.status.Subscribe()
}

// Devices lists the backend's output devices.
func (p *Player) Devices(ctx context.Context) ([]Device, error) {
	return p.backend.Devices(ctx)
}

// DefaultDevice returns the backend's system default output.
func (p *Player) DefaultDevice(ctx context.Context) (int, error) {
	return p.backend.DefaultDevice(ctx)
}

// Play starts the given station, replacing whatever is playing.
func (p *Player) Play(ctx context.Context, station Station) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playLocked(ctx, station)
}

func (p *Player) playLocked(ctx context.Context, station Station) error {
	slog.Debug("attempting to play station",
		slog.String("station", station.ID),
		slog.String("url", station.URL),
	)

	if p.cur != nil {
		if err := p.stopLocked("replaced"); err != nil {
			slog.Warn("closing previous stream failed", slog.Any("error", err))
		}
	}

	stream, err := p.open(ctx, station.URL, 0, p.device)
	if err != nil {
		playTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := p.fade(stream, 0, p.volume); err != nil {
		slog.Warn("fading in failed", slog.Any("error", err))
	}

	s := &session{
		station: station,
		stream:  stream,
		quit:    make(chan struct{}),
		since:   time.Now().UTC(),
	}
	p.cur = s
	p.publishLocked()
	playTotal.WithLabelValues("ok").Inc()
	playingGauge.Set(1)

	slog.Info("stream connected",
		slog.String("station", station.ID),
		slog.String("url", station.URL),
	)

	p.wg.Add(1)
	go p.watch(s)

	p.notify(ctx, notify.New(notify.LevelSuccess, fmt.Sprintf("Now playing %s", station.Name),
		notify.Action{Label: "Stop", Href: "/api/stop"}))
	return nil
}

// open opens a stream bounded by the connect timeout.
func (p *Player) open(ctx context.Context, url string, volume, device int) (Stream, error) {
	openCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()

	stream, err := p.backend.Open(openCtx, OpenRequest{URL: url, Volume: volume, Device: device})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrStreamConnectTimeout, p.opts.ConnectTimeout)
		}
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	return stream, nil
}

// Stop fades out and stops the current station.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cur == nil {
		return ErrNotPlaying
	}
	name := p.cur.station.Name
	if err := p.stopLocked("user"); err != nil {
		return err
	}
	p.notify(context.Background(), notify.New(notify.LevelInfo, fmt.Sprintf("Stopped %s", name)))
	return nil
}

func (p *Player) stopLocked(reason string) error {
	s := p.cur
	p.cur = nil
	close(s.quit)

	if err := p.fade(s.stream, p.volume, 0); err != nil {
		slog.Debug("fading out failed", slog.Any("error", err))
	}
	err := s.stream.Close()

	stopTotal.WithLabelValues(reason).Inc()
	playingGauge.Set(0)
	p.publishLocked()
	slog.Debug("player stopped", slog.String("reason", reason))

	if err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}

// SetVolume changes the volume, fading the running stream if any.
func (p *Player) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidVolume
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.volume
	p.volume = percent
	p.publishLocked()

	if p.cur == nil {
		return nil
	}
	if err := p.fade(p.cur.stream, old, percent); err != nil {
		return fmt.Errorf("setting stream volume: %w", err)
	}
	slog.Debug("set running stream volume", slog.Int("volume", percent))
	return nil
}

// SetOutputDevice switches the output device. A playing station is
// restarted on the new device.
func (p *Player) SetOutputDevice(ctx context.Context, index int) error {
	devices, err := p.backend.Devices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return ErrNoSuchDevice
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == index {
		return nil
	}
	p.device = index
	p.publishLocked()

	if p.cur == nil {
		return nil
	}

	slog.Debug("changing output device, restarting player", slog.Int("device", index))
	return p.playLocked(ctx, p.cur.station)
}

// Close stops playback and waits for background goroutines. Used on
// shutdown.
func (p *Player) Close() error {
	p.mu.Lock()
	var err error
	if p.cur != nil {
		err = p.stopLocked("shutdown")
	}
	p.mu.Unlock()

	p.wg.Wait()
	return err
}

// watch follows a session's stream and handles it ending on its own.
func (p *Player) watch(s *session) {
	defer p.wg.Done()

	stream := s.stream
	opened := time.Now()
	restarts := 0

	for {
		select {
		case <-s.quit:
			return
		case <-stream.Done():
		}

		if !s.station.AutoRestart {
			p.finish(s)
			return
		}

		// Only a stream that actually played for a while earns a fresh
		// budget; failed reopens keep counting against MaxRestarts.
		if time.Since(opened) >= p.opts.StableAfter {
			restarts = 0
		}

		next, ok := p.restart(s, &restarts)
		if !ok {
			return
		}
		stream = next
		opened = time.Now()
	}
}

// restart reopens a session's station with growing backoff until a stream
// connects or MaxRestarts consecutive attempts are used up, in which case
// the session is finished. It reports false when the watcher should exit.
func (p *Player) restart(s *session, restarts *int) (Stream, bool) {
	for *restarts < p.opts.MaxRestarts {
		*restarts++
		restartTotal.Inc()

		slog.Debug("stream ended, restarting",
			slog.String("station", s.station.ID),
			slog.Int("attempt", *restarts),
		)

		select {
		case <-s.quit:
			return nil, false
		case <-time.After(p.opts.RestartBackoff * time.Duration(*restarts)):
		}

		p.mu.Lock()
		volume, device := p.volume, p.device
		p.mu.Unlock()

		next, err := p.open(context.Background(), s.station.URL, volume, device)
		if err != nil {
			slog.Warn("restarting stream failed",
				slog.String("station", s.station.ID),
				slog.Int("attempt", *restarts),
				slog.Any("error", err),
			)
			continue
		}

		p.mu.Lock()
		if p.cur != s {
			p.mu.Unlock()
			_ = next.Close()
			return nil, false
		}
		_ = s.stream.Close()
		s.stream = next
		p.mu.Unlock()
		return next, true
	}

	slog.Warn("giving up on stream after repeated restarts",
		slog.String("station", s.station.ID),
		slog.Int("attempts", *restarts),
	)
	p.finish(s)
	return nil, false
}

// finish clears a session whose stream ended for good.
func (p *Player) finish(s *session) {
	p.mu.Lock()
	if p.cur != s {
		p.mu.Unlock()
		return
	}
	p.cur = nil
	_ = s.stream.Close()
	close(s.quit)
	stopTotal.WithLabelValues("ended").Inc()
	playingGauge.Set(0)
	p.publishLocked()
	p.mu.Unlock()

	slog.Info("playback has ended", slog.String("station", s.station.ID))
	p.notify(context.Background(), notify.New(notify.LevelWarning,
		fmt.Sprintf("Playback of %s has ended", s.station.Name),
		notify.Action{Label: "Open dashboard", Href: "/"}))
}

// fade steps the stream volume from one value to another in 1% increments.
func (p *Player) fade(stream Stream, from, to int) error {
	step := 1
	if to < from {
		step = -1
	}
	for v := from; v != to; {
		v += step
		if err := stream.SetVolume(v); err != nil {
			return err
		}
		if p.opts.FadeStep > 0 {
			time.Sleep(p.opts.FadeStep)
		}
	}
	return nil
}

// publishLocked pushes the current state to subscribers. Caller holds p.mu.
func (p *Player) publishLocked() {
	st := Status{Volume: p.volume, Device: p.device}
	if p.cur != nil {
		station := p.cur.station
		st.Playing = true
		st.Station = &station
		since := p.cur.since
		st.Since = &since
	}
	p.status.Set(st)
}

func (p *Player) notify(ctx context.Context, n notify.Notification) {
	if err := p.notifier.Notify(ctx, n); err != nil {
		slog.Warn("sending notification failed", slog.Any("error", err))
	}
}
