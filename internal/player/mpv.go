package player

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MPV plays streams by running one mpv process per stream and steering it
// over mpv's JSON IPC socket.
type MPV struct {
	// Binary is the mpv executable (default "mpv").
	Binary string

	// SocketDir holds the per-stream IPC sockets (default os.TempDir()).
	SocketDir string

	// PollInterval is how often Open checks whether audio started
	// (default 250ms).
	PollInterval time.Duration
}

// NewMPV creates an mpv backend.
func NewMPV(binary, socketDir string) *MPV {
	if binary == "" {
		binary = "mpv"
	}
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	return &MPV{Binary: binary, SocketDir: socketDir, PollInterval: 250 * time.Millisecond}
}

// deviceLine matches entries of `mpv --audio-device=help`, e.g.
//
//	'alsa/hw:CARD=Headphones,DEV=0' (bcm2835 Headphones, Direct hardware device)
var deviceLine = regexp.MustCompile(`^\s*'([^']+)'\s+\((.*)\)\s*$`)

// parseDevices extracts the device list from mpv's help output.
func parseDevices(out []byte) []Device {
	var devices []Device
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := deviceLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		devices = append(devices, Device{Index: len(devices), Name: m[1], Description: m[2]})
	}
	return devices
}

// Devices implements Backend.
func (m *MPV) Devices(ctx context.Context) ([]Device, error) {
	out, err := exec.CommandContext(ctx, m.Binary, "--audio-device=help").Output()
	if err != nil {
		return nil, fmt.Errorf("listing mpv audio devices: %w", err)
	}
	devices := parseDevices(out)
	if len(devices) == 0 {
		return nil, errors.New("mpv reported no audio devices")
	}
	return devices, nil
}

// DefaultDevice implements Backend. mpv's "auto" entry follows the system
// default output.
func (m *MPV) DefaultDevice(ctx context.Context) (int, error) {
	devices, err := m.Devices(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range devices {
		if d.Name == "auto" {
			return d.Index, nil
		}
	}
	return 0, nil
}

// Open implements Backend. It starts mpv and returns once playback-time
// becomes available, meaning the stream is decoded and audio is flowing.
func (m *MPV) Open(ctx context.Context, req OpenRequest) (Stream, error) {
	devices, err := m.Devices(ctx)
	if err != nil {
		return nil, err
	}
	if req.Device < 0 || req.Device >= len(devices) {
		return nil, ErrNoSuchDevice
	}

	socket := filepath.Join(m.SocketDir, "radio-mpv-"+uuid.NewString()+".sock")
	cmd := exec.Command(m.Binary,
		"--no-video",
		"--no-terminal",
		"--idle=no",
		"--input-ipc-server="+socket,
		"--volume="+strconv.Itoa(req.Volume),
		"--audio-device="+devices[req.Device].Name,
		req.URL,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting mpv: %w", err)
	}

	s := &mpvStream{cmd: cmd, socket: socket, done: make(chan struct{}), exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		slog.Debug("mpv exited", slog.String("socket", socket), slog.Any("status", err))
		close(s.exited)
		s.mu.Lock()
		closing := s.closing
		s.mu.Unlock()
		if !closing {
			close(s.done)
		}
	}()

	ticker := time.NewTicker(m.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return nil, ctx.Err()
		case <-s.exited:
			_ = os.Remove(socket)
			return nil, errors.New("mpv exited before playback started")
		case <-ticker.C:
			ok, err := s.playing()
			if err != nil {
				slog.Debug("waiting for mpv", slog.Any("error", err))
				continue
			}
			if ok {
				return s, nil
			}
		}
	}
}

func (m *MPV) pollInterval() time.Duration {
	if m.PollInterval <= 0 {
		return 250 * time.Millisecond
	}
	return m.PollInterval
}

// mpvStream is one running mpv process.
type mpvStream struct {
	cmd    *exec.Cmd
	socket string

	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	nextID  int
	closing bool

	done   chan struct{} // closed when mpv exits on its own
	exited chan struct{} // closed whenever mpv exits
}

// ipcResponse is a reply (or event) on the IPC socket.
type ipcResponse struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID int             `json:"request_id"`
	Event     string          `json:"event"`
}

// command sends one IPC command and waits for its reply. Events arriving in
// between are skipped.
func (s *mpvStream) command(args ...any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := net.DialTimeout("unix", s.socket, time.Second)
		if err != nil {
			return nil, fmt.Errorf("connecting to mpv ipc: %w", err)
		}
		s.conn = conn
		s.reader = bufio.NewReader(conn)
	}

	s.nextID++
	id := s.nextID
	payload, err := json.Marshal(map[string]any{"command": args, "request_id": id})
	if err != nil {
		return nil, err
	}

	_ = s.conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := s.conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("writing mpv command: %w", err)
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("reading mpv reply: %w", err)
		}
		var resp ipcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Event != "" || resp.RequestID != id {
			continue
		}
		if resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	}
}

// playing reports whether mpv has started producing audio.
func (s *mpvStream) playing() (bool, error) {
	data, err := s.command("get_property", "playback-time")
	if err != nil {
		return false, err
	}
	return len(data) > 0 && string(data) != "null", nil
}

// SetVolume implements Stream.
func (s *mpvStream) SetVolume(percent int) error {
	_, err := s.command("set_property", "volume", percent)
	return err
}

// Done implements Stream.
func (s *mpvStream) Done() <-chan struct{} { return s.done }

// Close implements Stream. It asks mpv to quit and kills it if it does not
// exit within two seconds.
func (s *mpvStream) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	if _, err := s.command("quit"); err != nil {
		slog.Debug("mpv quit command failed", slog.Any("error", err))
	}

	select {
	case <-s.exited:
	case <-time.After(2 * time.Second):
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("killing mpv: %w", err)
		}
		<-s.exited
	}

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	_ = os.Remove(s.socket)
	return nil
}
