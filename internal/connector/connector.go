// Package connector implements the order-lifecycle reconciliation core for
// an AMM reached through a polling execution gateway. The venue sends no
// push notifications; the connector infers order and balance state by
// polling and comparing snapshots, and guarantees exactly-once lifecycle
// events over that at-least-once data source.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/quantfarm/ammbot/internal/domain"
	"github.com/quantfarm/ammbot/internal/events"
)

// Config holds the connector's tunables.
type Config struct {
	// Address is the wallet whose balances and orders this connector manages.
	Address string
	// TradingPairs is the configured pair set; orders on other pairs are
	// skipped with a warning during reconciliation.
	TradingPairs []string
	// GasPrice is attached to every submission.
	GasPrice decimal.Decimal
	// MinBalanceRefresh debounces non-forced balance polls.
	MinBalanceRefresh time.Duration
	// SubmissionTimeout bounds how long an order may wait for its exchange
	// order ID before being failed locally.
	SubmissionTimeout time.Duration
	// TerminalGrace is how long terminal orders are retained for
	// duplicate-suppression before eviction.
	TerminalGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinBalanceRefresh <= 0 {
		c.MinBalanceRefresh = 30 * time.Second
	}
	if c.SubmissionTimeout <= 0 {
		c.SubmissionTimeout = 60 * time.Second
	}
	if c.TerminalGrace <= 0 {
		c.TerminalGrace = 10 * time.Minute
	}
	return c
}

// Connector is the reconciliation engine. It is passive: a tick driver
// calls Tick at roughly one-second cadence, and each Tick runs one
// reconciliation pass. Calling Tick more often than the debounce intervals
// allow only produces no-ops, never corruption.
type Connector struct {
	cfg      Config
	venue    domain.VenueClient
	tracker  *Tracker
	balances *BalanceReconciler
	status   *StatusReconciler
	emitter  *Emitter
	bus      *events.Bus
	archiver domain.OrderArchiver
	quanta   domain.QuantumTable
	logger   *slog.Logger

	// tickMu serializes reconciliation passes; an overlapping tick is
	// skipped rather than queued.
	tickMu sync.Mutex

	chainMu   sync.RWMutex
	chainMeta *domain.ChainMetadata

	submissions sync.WaitGroup
}

// New creates a Connector. fills, audit, mirror, and archiver may be nil;
// the engine then runs fully in-memory.
func New(
	cfg Config,
	venue domain.VenueClient,
	bus *events.Bus,
	quanta domain.QuantumTable,
	fills domain.FillArchive,
	audit domain.AuditStore,
	mirror domain.EventMirror,
	archiver domain.OrderArchiver,
	logger *slog.Logger,
) *Connector {
	cfg = cfg.withDefaults()
	log := logger.With(slog.String("component", "connector"))

	tracker := NewTracker()
	emitter := NewEmitter(bus, fills, audit, mirror, logger)
	c := &Connector{
		cfg:      cfg,
		venue:    venue,
		tracker:  tracker,
		balances: NewBalanceReconciler(venue, cfg.Address, quanta, cfg.MinBalanceRefresh),
		status:   NewStatusReconciler(venue, tracker, emitter, quanta, cfg.TradingPairs, cfg.SubmissionTimeout, logger),
		emitter:  emitter,
		bus:      bus,
		archiver: archiver,
		quanta:   quanta,
		logger:   log,
	}
	return c
}

// Tracker exposes the order store for inspection.
func (c *Connector) Tracker() *Tracker { return c.tracker }

// Balance returns the last observed available amount for asset.
func (c *Connector) Balance(asset string) decimal.Decimal {
	return c.balances.Balance(asset)
}

// AllBalances returns a copy of the current balance snapshot.
func (c *Connector) AllBalances() domain.BalanceSnapshot {
	return c.balances.All()
}

// Ready reports whether the connector has observed balances and chain
// metadata at least once and can accept orders.
func (c *Connector) Ready() bool {
	c.chainMu.RLock()
	haveChain := c.chainMeta != nil
	c.chainMu.RUnlock()
	return haveChain && c.balances.Observed()
}

// ChainMetadata returns the cached chain descriptor, fetching it on first
// use. The cache is refreshed only by InvalidateChainMetadata.
func (c *Connector) ChainMetadata(ctx context.Context) (domain.ChainMetadata, error) {
	c.chainMu.RLock()
	cached := c.chainMeta
	c.chainMu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	meta, err := c.venue.ChainMetadata(ctx)
	if err != nil {
		return domain.ChainMetadata{}, fmt.Errorf("connector: chain metadata: %w", err)
	}
	c.chainMu.Lock()
	c.chainMeta = &meta
	c.chainMu.Unlock()
	return meta, nil
}

// InvalidateChainMetadata drops the cached chain descriptor so the next
// access refetches it.
func (c *Connector) InvalidateChainMetadata() {
	c.chainMu.Lock()
	c.chainMeta = nil
	c.chainMu.Unlock()
}

// nativeCurrency returns the cached native currency symbol, or empty when
// chain metadata has not been observed yet.
func (c *Connector) nativeCurrency() string {
	c.chainMu.RLock()
	defer c.chainMu.RUnlock()
	if c.chainMeta == nil {
		return ""
	}
	return c.chainMeta.NativeCurrency
}

// QuotePrice returns an indicative price for trading amount of pair in the
// given direction. Buy and sell quotes are independent gateway calls; the
// venue may legitimately price them asymmetrically.
func (c *Connector) QuotePrice(ctx context.Context, pair string, side domain.TradeType, amount decimal.Decimal) (decimal.Decimal, error) {
	price, err := c.venue.Price(ctx, pair, side, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("connector: quote price: %w", err)
	}
	_, quote, ok := baseQuote(pair)
	if !ok {
		return decimal.Zero, fmt.Errorf("connector: quote price: %w: %q", domain.ErrUnknownPair, pair)
	}
	return c.quanta.Quantize(quote, price), nil
}

// Buy submits a buy order and returns its client order ID. The order is
// recorded under PendingCreate before any gateway interaction; submission
// itself runs asynchronously and resolves to Created (with an OrderCreated
// event) or Failed (with an OrderFailed event).
func (c *Connector) Buy(ctx context.Context, pair string, amount, price decimal.Decimal) (string, error) {
	return c.submitOrder(ctx, pair, domain.TradeTypeBuy, amount, price)
}

// Sell submits a sell order; otherwise identical to Buy.
func (c *Connector) Sell(ctx context.Context, pair string, amount, price decimal.Decimal) (string, error) {
	return c.submitOrder(ctx, pair, domain.TradeTypeSell, amount, price)
}

func (c *Connector) submitOrder(ctx context.Context, pair string, side domain.TradeType, amount, price decimal.Decimal) (string, error) {
	if !c.Ready() {
		return "", fmt.Errorf("connector: submit order: %w", domain.ErrNotReady)
	}
	base, _, ok := baseQuote(pair)
	if !ok {
		return "", fmt.Errorf("connector: submit order: %w: %q", domain.ErrUnknownPair, pair)
	}

	now := time.Now().UTC()
	order := domain.Order{
		ClientOrderID: newClientOrderID(side, pair),
		TradingPair:   pair,
		TradeType:     side,
		OrderType:     domain.OrderTypeLimit,
		Price:         price,
		Amount:        c.quanta.Quantize(base, amount),
		GasPrice:      c.cfg.GasPrice,
		FeeAsset:      c.nativeCurrency(),
		State:         domain.OrderStatePendingCreate,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := c.tracker.StartTracking(order); err != nil {
		return "", fmt.Errorf("connector: submit order: %w", err)
	}

	c.submissions.Add(1)
	go func() {
		defer c.submissions.Done()
		c.completeSubmission(ctx, order)
	}()

	return order.ClientOrderID, nil
}

// completeSubmission performs the gateway trade call for a freshly tracked
// order. The tracker re-checks state at application time, so a submission
// racing a local cancel or a shutdown applies nothing.
func (c *Connector) completeSubmission(ctx context.Context, order domain.Order) {
	exchangeOrderID, err := c.venue.SubmitOrder(ctx, domain.SubmitOrderRequest{
		TradingPair: order.TradingPair,
		TradeType:   order.TradeType,
		Amount:      order.Amount,
		Price:       order.Price,
		GasPrice:    order.GasPrice,
	})
	now := time.Now().UTC()

	if err != nil {
		c.logger.WarnContext(ctx, "order submission failed",
			slog.String("client_order_id", order.ClientOrderID),
			slog.String("error", err.Error()),
		)
		if updated, applied := c.tracker.MarkFailed(order.ClientOrderID, err.Error(), now); applied {
			c.emitter.OrderFailed(ctx, updated, now)
		}
		return
	}

	updated, applied := c.tracker.MarkCreated(order.ClientOrderID, exchangeOrderID, now)
	if !applied {
		// Cancelled or timed out while the call was in flight; the late
		// acknowledgement is discarded.
		return
	}
	c.logger.InfoContext(ctx, "order created",
		slog.String("client_order_id", updated.ClientOrderID),
		slog.String("exchange_order_id", updated.ExchangeOrderID),
		slog.String("pair", updated.TradingPair),
		slog.String("side", string(updated.TradeType)),
	)
	c.emitter.OrderCreated(ctx, updated, now)
}

// Cancel cancels an order that has not yet been submitted on-chain. Orders
// that already have an exchange order ID, terminal orders, and unknown IDs
// are all no-ops returning false: there is nothing safe to recall.
func (c *Connector) Cancel(ctx context.Context, clientOrderID string) bool {
	now := time.Now().UTC()
	updated, applied := c.tracker.MarkCancelled(clientOrderID, now)
	if !applied {
		return false
	}
	c.logger.InfoContext(ctx, "order cancelled",
		slog.String("client_order_id", clientOrderID),
	)
	c.emitter.OrderCancelled(ctx, updated, now)
	return true
}

// Tick runs one reconciliation pass: balance refresh and order status
// reconciliation concurrently (they touch disjoint state), then terminal
// order eviction. A Tick arriving while a pass is still running is skipped;
// passes never interleave. Transient gateway errors are logged and retried
// on the next tick.
func (c *Connector) Tick(ctx context.Context, now time.Time) {
	if !c.tickMu.TryLock() {
		return
	}
	defer c.tickMu.Unlock()

	if _, err := c.ChainMetadata(ctx); err != nil {
		c.logger.WarnContext(ctx, "chain metadata fetch failed",
			slog.String("error", err.Error()),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.balances.Refresh(gctx, now, false); err != nil {
			c.logger.WarnContext(gctx, "balance refresh failed",
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.status.Reconcile(gctx, now); err != nil {
			c.logger.WarnContext(gctx, "status reconciliation aborted",
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
	_ = g.Wait()

	c.evictTerminal(ctx, now)
}

// RefreshBalances forces an immediate balance poll, bypassing the debounce.
func (c *Connector) RefreshBalances(ctx context.Context) error {
	return c.balances.Refresh(ctx, time.Now().UTC(), true)
}

// evictTerminal removes terminal orders past the grace period and hands
// them to the archiver. Eviction never fires events. A pass that evicts
// several orders at once uploads them as one batch object instead of one
// object per order.
func (c *Connector) evictTerminal(ctx context.Context, now time.Time) {
	evicted := c.tracker.EvictTerminal(now, c.cfg.TerminalGrace)
	if len(evicted) == 0 {
		return
	}
	for _, o := range evicted {
		c.logger.DebugContext(ctx, "evicted terminal order",
			slog.String("client_order_id", o.ClientOrderID),
			slog.String("state", o.State.String()),
		)
	}
	if c.archiver == nil {
		return
	}

	if len(evicted) == 1 {
		o := evicted[0]
		if err := c.archiver.Archive(ctx, o); err != nil {
			c.logger.WarnContext(ctx, "order archive failed",
				slog.String("client_order_id", o.ClientOrderID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	key := fmt.Sprintf("orders/batches/%s/%d.ndjson",
		now.UTC().Format("2006/01/02"), now.UTC().UnixNano())
	if err := c.archiver.ArchiveBatch(ctx, key, evicted); err != nil {
		c.logger.WarnContext(ctx, "order batch archive failed",
			slog.String("key", key),
			slog.Int("orders", len(evicted)),
			slog.String("error", err.Error()),
		)
	}
}

// Drain waits for in-flight submission goroutines to finish. Used on
// shutdown and by tests.
func (c *Connector) Drain() {
	c.submissions.Wait()
}

// newClientOrderID builds a locally unique order identifier. The side-pair
// prefix keeps log lines and archives greppable; the uuid nonce guarantees
// uniqueness for the engine's lifetime.
func newClientOrderID(side domain.TradeType, pair string) string {
	return fmt.Sprintf("%s-%s-%s", side, strings.ToLower(pair), uuid.NewString())
}
