package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind identifies a lifecycle event channel on the event bus.
type EventKind string

const (
	EventOrderCreated   EventKind = "order_created"
	EventOrderFilled    EventKind = "order_filled"
	EventOrderFailed    EventKind = "order_failed"
	EventOrderCancelled EventKind = "order_cancelled"
)

// OrderCreatedEvent fires once when a submitted order is acknowledged by the
// gateway and receives its exchange order ID.
type OrderCreatedEvent struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	TradeType       TradeType
	Amount          decimal.Decimal
	Price           decimal.Decimal
	Timestamp       time.Time
}

// OrderFilledEvent fires exactly once per order, when a status poll first
// reports the transaction confirmed. ExchangeTradeID equals the exchange
// order ID (the transaction hash) since an AMM swap settles atomically.
type OrderFilledEvent struct {
	ClientOrderID   string
	ExchangeTradeID string
	TradingPair     string
	TradeType       TradeType
	ExecutedAmount  decimal.Decimal
	ExecutedPrice   decimal.Decimal
	FeeAsset        string
	FeeAmount       decimal.Decimal
	Timestamp       time.Time
}

// OrderFailedEvent fires exactly once per order, either when the venue
// reports the transaction reverted or when submission fails locally.
type OrderFailedEvent struct {
	ClientOrderID string
	Reason        string
	Timestamp     time.Time
}

// OrderCancelledEvent fires once when an order is cancelled before it was
// ever submitted on-chain.
type OrderCancelledEvent struct {
	ClientOrderID string
	Timestamp     time.Time
}
