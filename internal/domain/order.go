package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType indicates whether this is a buy or sell.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// OrderType is the execution style requested from the venue. AMM swaps are
// submitted as limit orders with a worst-acceptable price.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderState tracks the order lifecycle. Transitions are monotonic under the
// ordering PendingCreate < Created < {Filled, Failed, Cancelled}; terminal
// states admit no further transitions.
type OrderState int

const (
	OrderStatePendingCreate OrderState = iota
	OrderStateCreated
	OrderStateFilled
	OrderStateFailed
	OrderStateCancelled
)

// String returns the lowercase name used in logs and archived records.
func (s OrderState) String() string {
	switch s {
	case OrderStatePendingCreate:
		return "pending_create"
	case OrderStateCreated:
		return "created"
	case OrderStateFilled:
		return "filled"
	case OrderStateFailed:
		return "failed"
	case OrderStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s OrderState) Terminal() bool {
	return s == OrderStateFilled || s == OrderStateFailed || s == OrderStateCancelled
}

// Order is an in-flight order tracked by the connector. ClientOrderID is
// assigned locally at submission time, before any gateway interaction;
// ExchangeOrderID is the venue transaction hash and is empty until the
// submission call returns. Pair, side, type, price, amount, and gas price
// are immutable after creation.
type Order struct {
	ClientOrderID   string
	ExchangeOrderID string
	TradingPair     string
	TradeType       TradeType
	OrderType       OrderType
	Price           decimal.Decimal
	Amount          decimal.Decimal
	GasPrice        decimal.Decimal
	FeeAsset        string
	State           OrderState
	CreatedAt       time.Time
	LastUpdatedAt   time.Time

	// Fill details, populated when the order reaches Filled.
	ExecutedAmount decimal.Decimal
	ExecutedPrice  decimal.Decimal
	FeePaid        decimal.Decimal

	// FailureReason is populated when the order reaches Failed.
	FailureReason string
}

// TxStatusKind is the venue's answer to a transaction-status poll.
type TxStatusKind int

const (
	// TxUnknown means the venue has no record of the transaction. Indexing
	// lag is expected, so unknown is treated as pending, never as failed.
	TxUnknown TxStatusKind = iota
	TxPending
	TxConfirmed
	TxFailed
)

// TxStatus is one transaction-status poll result for an exchange order ID.
type TxStatus struct {
	Kind           TxStatusKind
	ExecutedAmount decimal.Decimal
	ExecutedPrice  decimal.Decimal
	FeePaid        decimal.Decimal
}
