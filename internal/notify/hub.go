package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Hub is an in-process Notifier that fans notifications out to subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// message and a warning is logged.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Notification
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Notification)}
}

// Notify delivers n to every current subscriber.
func (h *Hub) Notify(_ context.Context, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			slog.Warn("notification dropped for slow subscriber",
				slog.Int("subscriber", id),
				slog.String("message", n.Message),
			)
		}
	}
	return nil
}

// Subscribe registers a subscriber with the given buffer size and returns
// its channel and a cancel function that unregisters and closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
