package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel notifications travel on.
const DefaultChannel = "radio:notifications"

// RedisNotifier publishes notifications on a Redis pub/sub channel so that
// every server instance relaying that channel can display them.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel. An empty
// channel selects DefaultChannel.
func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

// Notify publishes n as JSON.
func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// Relay subscribes to the notifier's channel and forwards every message into
// dst until ctx is cancelled, at which point it returns ctx.Err().
func (r *RedisNotifier) Relay(ctx context.Context, dst Notifier) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				slog.Warn("discarding malformed notification",
					slog.String("channel", r.channel),
					slog.Any("error", err),
				)
				continue
			}
			if err := dst.Notify(ctx, n); err != nil {
				slog.Warn("relaying notification failed", slog.Any("error", err))
			}
		}
	}
}
