package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/radio/internal/notify"
	"github.com/keyxmakerx/radio/internal/player"
	"github.com/keyxmakerx/radio/internal/store"
)

type statusStore struct {
	v *store.Value[player.Status]
}

func (s statusStore) Watch() (<-chan player.Status, func()) { return s.v.Subscribe() }

func startServer(t *testing.T, h *Handler) string {
	t.Helper()
	e := echo.New()
	e.GET("/ws", h.Stream)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

type rawFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f rawFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func decode[T any](t *testing.T, f rawFrame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

func TestStream_StatusAndNotifications(t *testing.T) {
	hub := notify.NewHub()
	status := statusStore{v: store.New(player.Status{Volume: 80})}
	url := startServer(t, NewHandler(hub, status, "http://radio.local"))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, "status", first.Type)
	assert.Equal(t, 80, decode[player.Status](t, first).Volume)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Notify(context.Background(), notify.New(notify.LevelSuccess, "Now playing Jazz")))

	f := readFrame(t, conn)
	assert.Equal(t, "notification", f.Type)
	assert.Equal(t, "Now playing Jazz", decode[notify.Notification](t, f).Message)

	status.v.Set(player.Status{Playing: true, Station: &player.Station{ID: "jazz"}, Volume: 80})
	f = readFrame(t, conn)
	assert.Equal(t, "status", f.Type)
	assert.True(t, decode[player.Status](t, f).Playing)
}

func TestStream_UnsubscribesOnClose(t *testing.T) {
	hub := notify.NewHub()
	url := startServer(t, NewHandler(hub, statusStore{v: store.New(player.Status{})}, ""))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStream_Ping(t *testing.T) {
	h := NewHandler(notify.NewHub(), statusStore{v: store.New(player.Status{})}, "")
	h.ping = 20 * time.Millisecond
	url := startServer(t, h)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(notify.NewHub(), statusStore{v: store.New(player.Status{})}, "https://radio.example.com")
	check := h.upgrader.CheckOrigin

	req := httptest.NewRequest(http.MethodGet, "http://10.0.0.2:8080/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://radio.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://10.0.0.2:8080")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.net")
	assert.False(t, check(req))
}
