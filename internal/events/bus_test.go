package events

import (
	"io"
	"log/slog"
	"testing"

	"github.com/quantfarm/ammbot/internal/domain"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBus_DeliversToAllListenersInOrder(t *testing.T) {
	bus := newTestBus()

	var got []int
	bus.Subscribe(domain.EventOrderCreated, func(any) { got = append(got, 1) })
	bus.Subscribe(domain.EventOrderCreated, func(any) { got = append(got, 2) })
	bus.Subscribe(domain.EventOrderCreated, func(any) { got = append(got, 3) })

	bus.Publish(domain.EventOrderCreated, domain.OrderCreatedEvent{ClientOrderID: "x"})

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("delivery order = %v, want [1 2 3]", got)
	}
}

func TestBus_KindsAreIndependent(t *testing.T) {
	bus := newTestBus()

	created, filled := 0, 0
	bus.Subscribe(domain.EventOrderCreated, func(any) { created++ })
	bus.Subscribe(domain.EventOrderFilled, func(any) { filled++ })

	bus.Publish(domain.EventOrderFilled, domain.OrderFilledEvent{ClientOrderID: "x"})

	if created != 0 {
		t.Errorf("created listener fired %d times, want 0", created)
	}
	if filled != 1 {
		t.Errorf("filled listener fired %d times, want 1", filled)
	}
}

func TestBus_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	bus := newTestBus()

	delivered := 0
	bus.Subscribe(domain.EventOrderFailed, func(any) { panic("listener bug") })
	bus.Subscribe(domain.EventOrderFailed, func(any) { delivered++ })

	// Must not panic the publisher.
	bus.Publish(domain.EventOrderFailed, domain.OrderFailedEvent{ClientOrderID: "x"})

	if delivered != 1 {
		t.Fatalf("second listener fired %d times, want 1", delivered)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()

	first, second := 0, 0
	unsub := bus.Subscribe(domain.EventOrderCancelled, func(any) { first++ })
	bus.Subscribe(domain.EventOrderCancelled, func(any) { second++ })

	bus.Publish(domain.EventOrderCancelled, domain.OrderCancelledEvent{ClientOrderID: "a"})
	unsub()
	unsub() // second call is a no-op
	bus.Publish(domain.EventOrderCancelled, domain.OrderCancelledEvent{ClientOrderID: "b"})

	if first != 1 {
		t.Errorf("unsubscribed listener fired %d times, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining listener fired %d times, want 2", second)
	}
}

func TestBus_PublishWithNoListeners(t *testing.T) {
	bus := newTestBus()
	// Must be a harmless no-op.
	bus.Publish(domain.EventOrderCreated, domain.OrderCreatedEvent{ClientOrderID: "x"})
}
