// AngelaMos | 2026
// events.go

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const eventChannelPrefix = "auth:events:"

func eventChannel(userID string) string {
	return eventChannelPrefix + userID
}

type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

// EventBus fans session changes out through Redis pub/sub so every API
// instance can push them to its own websocket clients.
type EventBus struct {
	rdb       *redis.Client
	published *prometheus.CounterVec
}

// NewEventBus accepts a nil counter when metrics are not wanted.
func NewEventBus(rdb *redis.Client, published *prometheus.CounterVec) *EventBus {
	return &EventBus{rdb: rdb, published: published}
}

func (b *EventBus) Publish(ctx context.Context, evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := b.rdb.Publish(ctx, eventChannel(evt.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	if b.published != nil {
		b.published.WithLabelValues(string(evt.Type)).Inc()
	}

	return nil
}

// Subscribe returns a channel of events for one user. The channel closes
// when ctx is done or the returned close func is called.
func (b *EventBus) Subscribe(
	ctx context.Context,
	userID string,
) (<-chan Event, func() error, error) {
	ps := b.rdb.Subscribe(ctx, eventChannel(userID))

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close() //nolint:errcheck // subscription never became active
		return nil, nil, fmt.Errorf("subscribe events: %w", err)
	}

	out := make(chan Event, 16)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					slog.Warn("dropping malformed auth event", "error", err)
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, ps.Close, nil
}
