// Package events pushes notifications and player status to browsers over a
// WebSocket at /ws. The dashboard script uses it for the snackbar and the
// now-playing banner.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/radio/internal/notify"
	"github.com/keyxmakerx/radio/internal/player"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

const (
	// PingInterval is how often idle connections are pinged.
	PingInterval = 30 * time.Second

	writeWait      = 10 * time.Second
	notifyBuffer   = 16
	maxClientFrame = 512
)

// Frame is one message sent to the browser. Data is a notify.Notification
// for "notification" frames and a player.Status for "status" frames.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscriber yields notifications. Implemented by *notify.Hub.
type Subscriber interface {
	Subscribe(buffer int) (<-chan notify.Notification, func())
}

// StatusWatcher yields player status changes. Implemented by *player.Player.
type StatusWatcher interface {
	Watch() (<-chan player.Status, func())
}

// Handler upgrades requests to WebSockets and streams frames.
type Handler struct {
	hub      Subscriber
	status   StatusWatcher
	upgrader websocket.Upgrader
	ping     time.Duration
}

// NewHandler creates an events handler. allowedOrigin is the site's base
// URL; upgrades from other origins are refused.
func NewHandler(hub Subscriber, status StatusWatcher, allowedOrigin string) *Handler {
	return &Handler{
		hub:    hub,
		status: status,
		ping:   PingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin || sameHost(r, origin)
			},
		},
	}
}

// sameHost accepts origins matching the Host header, so the feed also works
// when BASE_URL is not set to the address the browser uses.
func sameHost(r *http.Request, origin string) bool {
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Stream serves GET /ws.
func (h *Handler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("websocket upgrade failed", slog.Any("error", err))
		return nil
	}
	defer conn.Close()

	slog.Debug("event stream opened", slog.String("user", auth.GetUserID(c)))
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go h.readLoop(conn, cancel)
	h.writeLoop(ctx, conn)

	slog.Debug("event stream closed", slog.String("user", auth.GetUserID(c)))
	return nil
}

// readLoop discards client frames and handles pongs. It cancels the stream
// when the client goes away.
func (h *Handler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(h.ping + 10*time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.ping + 10*time.Second))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn) {
	notes, cancelNotes := h.hub.Subscribe(notifyBuffer)
	defer cancelNotes()
	statuses, cancelStatus := h.status.Watch()
	defer cancelStatus()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		var frame *Frame
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case n, ok := <-notes:
			if !ok {
				return
			}
			frame = &Frame{Type: "notification", Data: n}
		case st, ok := <-statuses:
			if !ok {
				return
			}
			frame = &Frame{Type: "status", Data: st}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			slog.Debug("writing event frame failed", slog.Any("error", err))
			return
		}
	}
}
