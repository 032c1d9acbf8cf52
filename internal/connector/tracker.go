package connector

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
)

// Tracker is the in-memory order store. It exclusively owns every order
// record the connector is responsible for, keyed by client order ID. All
// state transitions go through Mark* methods, which hold the tracker lock so
// a transition is applied exactly once no matter how many overlapping polls
// report the same outcome. A Mark* call that is not permitted by the state
// machine is a no-op returning applied=false, never an error: duplicate and
// late poll results are expected, not exceptional.
type Tracker struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{orders: make(map[string]*domain.Order)}
}

// StartTracking registers a new order. It returns ErrDuplicateOrder when the
// client order ID is already present; client order IDs are assigned exactly
// once and never reused, so a collision is a programmer error.
func (t *Tracker) StartTracking(order domain.Order) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.orders[order.ClientOrderID]; ok {
		return domain.ErrDuplicateOrder
	}
	o := order
	t.orders[order.ClientOrderID] = &o
	return nil
}

// StopTracking removes an order. Removing an absent order is a no-op;
// removal is always safe.
func (t *Tracker) StopTracking(clientOrderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.orders, clientOrderID)
}

// Get returns a copy of the order, if tracked.
func (t *Tracker) Get(clientOrderID string) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[clientOrderID]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// Len returns the number of tracked orders, terminal ones included.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.orders)
}

// AllNonTerminal returns copies of every order not yet in a terminal state,
// snapshotted at call time. Mutating the tracker while iterating the result
// is safe; the snapshot does not observe it.
func (t *Tracker) AllNonTerminal() []domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Order, 0, len(t.orders))
	for _, o := range t.orders {
		if !o.State.Terminal() {
			out = append(out, *o)
		}
	}
	return out
}

// MarkCreated transitions an order from PendingCreate to Created, recording
// the venue-assigned exchange order ID. The exchange order ID is immutable
// once set; any call after the first is a no-op.
func (t *Tracker) MarkCreated(clientOrderID, exchangeOrderID string, now time.Time) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[clientOrderID]
	if !ok || o.State != domain.OrderStatePendingCreate {
		return domain.Order{}, false
	}
	o.ExchangeOrderID = exchangeOrderID
	o.State = domain.OrderStateCreated
	o.LastUpdatedAt = now
	return *o, true
}

// MarkFilled transitions a non-terminal order to Filled, recording the
// executed quantities. Already-terminal orders are left untouched: the
// first terminal result observed wins and subsequent results are discarded
// regardless of content.
func (t *Tracker) MarkFilled(clientOrderID string, executedAmount, executedPrice, feePaid decimal.Decimal, now time.Time) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[clientOrderID]
	if !ok || o.State.Terminal() {
		return domain.Order{}, false
	}
	o.State = domain.OrderStateFilled
	o.ExecutedAmount = executedAmount
	o.ExecutedPrice = executedPrice
	o.FeePaid = feePaid
	o.LastUpdatedAt = now
	return *o, true
}

// MarkFailed transitions a non-terminal order to Failed. Same
// first-terminal-wins rule as MarkFilled.
func (t *Tracker) MarkFailed(clientOrderID, reason string, now time.Time) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[clientOrderID]
	if !ok || o.State.Terminal() {
		return domain.Order{}, false
	}
	o.State = domain.OrderStateFailed
	o.FailureReason = reason
	o.LastUpdatedAt = now
	return *o, true
}

// MarkCancelled transitions an order to Cancelled. Only orders that never
// received an exchange order ID can be cancelled; once a transaction is on
// the wire there is nothing to recall.
func (t *Tracker) MarkCancelled(clientOrderID string, now time.Time) (domain.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[clientOrderID]
	if !ok || o.State.Terminal() || o.ExchangeOrderID != "" {
		return domain.Order{}, false
	}
	o.State = domain.OrderStateCancelled
	o.LastUpdatedAt = now
	return *o, true
}

// SetFeeAsset records the fee asset for an order if not already set.
func (t *Tracker) SetFeeAsset(clientOrderID, feeAsset string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o, ok := t.orders[clientOrderID]; ok && o.FeeAsset == "" {
		o.FeeAsset = feeAsset
	}
}

// EvictTerminal removes terminal orders whose last update is older than
// grace and returns the evicted records. Eviction never fires events; the
// grace period exists only for duplicate-suppression of late poll results.
func (t *Tracker) EvictTerminal(now time.Time, grace time.Duration) []domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []domain.Order
	for id, o := range t.orders {
		if o.State.Terminal() && now.Sub(o.LastUpdatedAt) >= grace {
			evicted = append(evicted, *o)
			delete(t.orders, id)
		}
	}
	return evicted
}
