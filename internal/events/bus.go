// Package events implements the in-process lifecycle event bus. Delivery is
// synchronous: every listener subscribed at publish time observes the event
// before the reconciliation pass that produced it returns control. A
// panicking listener is isolated and never prevents delivery to the others.
package events

import (
	"log/slog"
	"sync"

	"github.com/quantfarm/ammbot/internal/domain"
)

// Handler receives one published event payload. The concrete type depends on
// the kind subscribed to: domain.OrderCreatedEvent, domain.OrderFilledEvent,
// domain.OrderFailedEvent, or domain.OrderCancelledEvent.
type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a typed publish/subscribe channel with one listener list per event
// kind. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[domain.EventKind][]subscription
	logger *slog.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[domain.EventKind][]subscription),
		logger: logger.With(slog.String("component", "event_bus")),
	}
}

// Subscribe registers handler for the given event kind and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(kind domain.EventKind, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[kind]
			for i, s := range list {
				if s.id == id {
					b.subs[kind] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers payload to every listener currently subscribed to kind,
// in subscription order. Listener panics are recovered and logged; they do
// not propagate into the caller and do not stop delivery.
func (b *Bus) Publish(kind domain.EventKind, payload any) {
	b.mu.RLock()
	list := make([]subscription, len(b.subs[kind]))
	copy(list, b.subs[kind])
	b.mu.RUnlock()

	for _, s := range list {
		b.deliver(kind, s, payload)
	}
}

func (b *Bus) deliver(kind domain.EventKind, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked",
				slog.String("kind", string(kind)),
				slog.Uint64("listener_id", s.id),
				slog.Any("panic", r),
			)
		}
	}()
	s.handler(payload)
}
