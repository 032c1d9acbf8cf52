package connector

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
	"github.com/quantfarm/ammbot/internal/events"
)

// fakeVenue is an in-memory domain.VenueClient with programmable responses
// and per-method call counters.
type fakeVenue struct {
	mu sync.Mutex

	balances    domain.BalanceSnapshot
	balancesErr error

	price    decimal.Decimal
	priceErr error

	submitHash string
	submitErr  error
	// submitGate, when set, blocks SubmitOrder until the channel is closed.
	submitGate chan struct{}

	statuses  map[string]domain.TxStatus
	statusErr error

	meta    domain.ChainMetadata
	metaErr error

	balancesCalls int
	submitCalls   int
	statusCalls   map[string]int
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		balances: domain.BalanceSnapshot{
			"ETH": decimal.RequireFromString("58.903990239981237338"),
			"DAI": decimal.RequireFromString("1015.242427495432379422"),
		},
		price:      decimal.RequireFromString("0.002684496"),
		submitHash: "0x66b2c84952eb1d9ef2bb1b026c68a1637a2c1d4c47b4c9a7b0b2e55f13d0bc32",
		statuses:   make(map[string]domain.TxStatus),
		meta: domain.ChainMetadata{
			Chain:          "ethereum",
			Network:        "mainnet",
			ChainID:        1,
			NativeCurrency: "ETH",
		},
		statusCalls: make(map[string]int),
	}
}

func (f *fakeVenue) Balances(ctx context.Context, address string) (domain.BalanceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balancesCalls++
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	return f.balances.Clone(), nil
}

func (f *fakeVenue) Price(ctx context.Context, pair string, side domain.TradeType, amount decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return decimal.Zero, f.priceErr
	}
	return f.price, nil
}

func (f *fakeVenue) SubmitOrder(ctx context.Context, req domain.SubmitOrderRequest) (string, error) {
	f.mu.Lock()
	f.submitCalls++
	gate := f.submitGate
	err := f.submitErr
	hash := f.submitHash
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (f *fakeVenue) TransactionStatus(ctx context.Context, exchangeOrderID string) (domain.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls[exchangeOrderID]++
	if f.statusErr != nil {
		return domain.TxStatus{}, f.statusErr
	}
	return f.statuses[exchangeOrderID], nil
}

func (f *fakeVenue) ChainMetadata(ctx context.Context) (domain.ChainMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return domain.ChainMetadata{}, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeVenue) setStatus(hash string, status domain.TxStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[hash] = status
}

func (f *fakeVenue) setBalance(asset string, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[asset] = amount
}

var _ domain.VenueClient = (*fakeVenue)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testQuanta(t *testing.T) domain.QuantumTable {
	t.Helper()
	// 1e-18, the native token precision; the scenario balances are exact
	// multiples of it.
	return domain.QuantumTable{
		"ETH":  decimal.RequireFromString("0.000000000000000001"),
		"DAI":  decimal.RequireFromString("0.000000000000000001"),
		"WETH": decimal.RequireFromString("0.000000000000000001"),
	}
}

// collector subscribes to every event kind and records what fired.
type collector struct {
	mu        sync.Mutex
	created   []domain.OrderCreatedEvent
	filled    []domain.OrderFilledEvent
	failed    []domain.OrderFailedEvent
	cancelled []domain.OrderCancelledEvent
}

func newCollector(bus *events.Bus) *collector {
	c := &collector{}
	bus.Subscribe(domain.EventOrderCreated, func(p any) {
		if ev, ok := p.(domain.OrderCreatedEvent); ok {
			c.mu.Lock()
			c.created = append(c.created, ev)
			c.mu.Unlock()
		}
	})
	bus.Subscribe(domain.EventOrderFilled, func(p any) {
		if ev, ok := p.(domain.OrderFilledEvent); ok {
			c.mu.Lock()
			c.filled = append(c.filled, ev)
			c.mu.Unlock()
		}
	})
	bus.Subscribe(domain.EventOrderFailed, func(p any) {
		if ev, ok := p.(domain.OrderFailedEvent); ok {
			c.mu.Lock()
			c.failed = append(c.failed, ev)
			c.mu.Unlock()
		}
	})
	bus.Subscribe(domain.EventOrderCancelled, func(p any) {
		if ev, ok := p.(domain.OrderCancelledEvent); ok {
			c.mu.Lock()
			c.cancelled = append(c.cancelled, ev)
			c.mu.Unlock()
		}
	})
	return c
}

func (c *collector) counts() (created, filled, failed, cancelled int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created), len(c.filled), len(c.failed), len(c.cancelled)
}
