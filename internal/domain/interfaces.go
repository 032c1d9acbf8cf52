package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// VenueClient is the request/response surface of the execution gateway. It
// owns no state; every call is a potentially failing network operation and
// the only place the engine blocks.
type VenueClient interface {
	Balances(ctx context.Context, address string) (BalanceSnapshot, error)
	Price(ctx context.Context, pair string, side TradeType, amount decimal.Decimal) (decimal.Decimal, error)
	SubmitOrder(ctx context.Context, req SubmitOrderRequest) (string, error)
	TransactionStatus(ctx context.Context, exchangeOrderID string) (TxStatus, error)
	ChainMetadata(ctx context.Context) (ChainMetadata, error)
}

// SubmitOrderRequest carries the parameters of one swap submission.
type SubmitOrderRequest struct {
	TradingPair string
	TradeType   TradeType
	Amount      decimal.Decimal
	Price       decimal.Decimal
	GasPrice    decimal.Decimal
}

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// Fill is one archived fill row.
type Fill struct {
	ClientOrderID   string
	ExchangeTradeID string
	TradingPair     string
	TradeType       TradeType
	ExecutedAmount  decimal.Decimal
	ExecutedPrice   decimal.Decimal
	FeeAsset        string
	FeeAmount       decimal.Decimal
	FilledAt        time.Time
}

// FillArchive persists confirmed fills for accounting and reconciliation
// audits.
type FillArchive interface {
	Insert(ctx context.Context, fill Fill) error
	ListByPair(ctx context.Context, pair string, opts ListOpts) ([]Fill, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only log of lifecycle transitions.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// RateLimiter paces outbound gateway requests.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// EventMirror publishes lifecycle events to an external stream for consumers
// outside the process. Mirror failures must never block or fail the
// reconciliation pass that produced the event.
type EventMirror interface {
	Append(ctx context.Context, kind EventKind, payload []byte) error
}

// OrderArchiver receives terminal orders evicted from the in-memory tracker.
// A single eviction is archived individually; a pass that evicts several
// orders at once hands them over as one batch object under key.
type OrderArchiver interface {
	Archive(ctx context.Context, order Order) error
	ArchiveBatch(ctx context.Context, key string, orders []Order) error
}
