package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
)

// BalanceReconciler maintains the local view of account balances by polling
// the gateway. The snapshot is replaced wholesale on success; a failed poll
// keeps the prior snapshot, preferring stale-but-consistent over
// partially-updated.
type BalanceReconciler struct {
	venue   domain.VenueClient
	address string
	quanta  domain.QuantumTable

	// minInterval debounces non-forced refreshes so the tick driver can run
	// at any cadence without hammering the gateway.
	minInterval time.Duration

	mu          sync.RWMutex
	snapshot    domain.BalanceSnapshot
	lastRefresh time.Time
	observed    bool
}

// NewBalanceReconciler creates a BalanceReconciler polling balances for the
// given wallet address.
func NewBalanceReconciler(venue domain.VenueClient, address string, quanta domain.QuantumTable, minInterval time.Duration) *BalanceReconciler {
	return &BalanceReconciler{
		venue:       venue,
		address:     address,
		quanta:      quanta,
		minInterval: minInterval,
	}
}

// Refresh polls the gateway and atomically replaces the snapshot. When force
// is false the call is a debounced no-op if the last successful refresh is
// within the minimum refresh interval. A failed poll returns the error to
// the caller and leaves the snapshot untouched.
func (r *BalanceReconciler) Refresh(ctx context.Context, now time.Time, force bool) error {
	if !force {
		r.mu.RLock()
		recent := r.observed && now.Sub(r.lastRefresh) < r.minInterval
		r.mu.RUnlock()
		if recent {
			return nil
		}
	}

	polled, err := r.venue.Balances(ctx, r.address)
	if err != nil {
		return fmt.Errorf("balance reconciler: refresh: %w", err)
	}

	// Quantize at the boundary; only quantized amounts are stored.
	snapshot := make(domain.BalanceSnapshot, len(polled))
	for asset, amount := range polled {
		snapshot[asset] = r.quanta.Quantize(asset, amount)
	}

	r.mu.Lock()
	r.snapshot = snapshot
	r.lastRefresh = now
	r.observed = true
	r.mu.Unlock()
	return nil
}

// Balance returns the available amount for asset. An asset absent from the
// snapshot yields zero; absence means "not yet observed", not an error.
func (r *BalanceReconciler) Balance(asset string) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Get(asset)
}

// All returns a copy of the current snapshot.
func (r *BalanceReconciler) All() domain.BalanceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Clone()
}

// Observed reports whether at least one successful refresh has happened.
func (r *BalanceReconciler) Observed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observed
}
