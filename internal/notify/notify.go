// Package notify carries short, user-facing messages ("started playback",
// "stream ended") from server components to whoever is displaying them.
//
// Components depend on the Notifier interface and receive an implementation
// at construction time. The default is Nop; the server wires a Hub (local
// fan-out to WebSocket clients) and optionally a RedisNotifier so several
// instances share one feed.
package notify

import (
	"context"
	"time"
)

// Level classifies a notification for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Action is an optional button rendered next to a notification.
type Action struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// Notification is a transient message with optional action buttons.
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Actions   []Action  `json:"actions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier displays or forwards notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop discards every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notification) error { return nil }

// New builds a notification stamped with the current time.
func New(level Level, message string, actions ...Action) Notification {
	return Notification{
		Level:     level,
		Message:   message,
		Actions:   actions,
		CreatedAt: time.Now().UTC(),
	}
}

// Multi fans a notification out to several notifiers. Every notifier is
// called; the first error is returned.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		var first error
		for _, nt := range notifiers {
			if err := nt.Notify(ctx, n); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
