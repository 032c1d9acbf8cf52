package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantfarm/ammbot/internal/domain"
)

// streamMaxLen is the approximate maximum length for the event stream,
// enforced via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// eventStream is the Redis stream lifecycle events are mirrored onto.
const eventStream = "ammbot:order_events"

// EventMirror implements domain.EventMirror using a Redis stream, giving
// external consumers a durable, ordered feed of order lifecycle events.
// The stream is write-only from this process; consumers read it with their
// own XREAD loops. The in-process event bus remains the source of truth;
// the mirror is best-effort and its failures never block a reconciliation
// pass.
type EventMirror struct {
	rdb *redis.Client
}

// NewEventMirror creates an EventMirror backed by the given Client.
func NewEventMirror(c *Client) *EventMirror {
	return &EventMirror{rdb: c.Underlying()}
}

// Append writes one event payload onto the stream with automatic trimming.
func (m *EventMirror) Append(ctx context.Context, kind domain.EventKind, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":    string(kind),
			"payload": payload,
		},
	}
	if err := m.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: mirror %s event: %w", kind, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.EventMirror = (*EventMirror)(nil)
