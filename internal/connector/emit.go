package connector

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/quantfarm/ammbot/internal/domain"
	"github.com/quantfarm/ammbot/internal/events"
)

// Emitter turns applied state transitions into outbound notifications: the
// in-process event bus first (synchronous, before the pass returns), then
// the optional persistence and mirror sinks. Sink failures are logged and
// swallowed; by the time an emitter runs, the state transition has already
// been applied and must not be rolled back or blocked.
type Emitter struct {
	bus    *events.Bus
	fills  domain.FillArchive
	audit  domain.AuditStore
	mirror domain.EventMirror
	logger *slog.Logger
}

// NewEmitter creates an Emitter. fills, audit, and mirror may each be nil;
// the connector runs fully in-memory without them.
func NewEmitter(bus *events.Bus, fills domain.FillArchive, audit domain.AuditStore, mirror domain.EventMirror, logger *slog.Logger) *Emitter {
	return &Emitter{
		bus:    bus,
		fills:  fills,
		audit:  audit,
		mirror: mirror,
		logger: logger.With(slog.String("component", "emitter")),
	}
}

// OrderCreated emits the creation event for an order just acknowledged by
// the gateway.
func (e *Emitter) OrderCreated(ctx context.Context, order domain.Order, now time.Time) {
	evt := domain.OrderCreatedEvent{
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: order.ExchangeOrderID,
		TradingPair:     order.TradingPair,
		TradeType:       order.TradeType,
		Amount:          order.Amount,
		Price:           order.Price,
		Timestamp:       now,
	}
	e.bus.Publish(domain.EventOrderCreated, evt)
	e.auditLog(ctx, "order_created", map[string]any{
		"client_order_id":   order.ClientOrderID,
		"exchange_order_id": order.ExchangeOrderID,
		"pair":              order.TradingPair,
		"side":              string(order.TradeType),
	})
	e.mirrorEvent(ctx, domain.EventOrderCreated, evt)
}

// OrderFilled emits the fill event and archives the fill.
func (e *Emitter) OrderFilled(ctx context.Context, order domain.Order, now time.Time) {
	evt := domain.OrderFilledEvent{
		ClientOrderID:   order.ClientOrderID,
		ExchangeTradeID: order.ExchangeOrderID,
		TradingPair:     order.TradingPair,
		TradeType:       order.TradeType,
		ExecutedAmount:  order.ExecutedAmount,
		ExecutedPrice:   order.ExecutedPrice,
		FeeAsset:        order.FeeAsset,
		FeeAmount:       order.FeePaid,
		Timestamp:       now,
	}
	e.bus.Publish(domain.EventOrderFilled, evt)

	if e.fills != nil {
		fill := domain.Fill{
			ClientOrderID:   order.ClientOrderID,
			ExchangeTradeID: order.ExchangeOrderID,
			TradingPair:     order.TradingPair,
			TradeType:       order.TradeType,
			ExecutedAmount:  order.ExecutedAmount,
			ExecutedPrice:   order.ExecutedPrice,
			FeeAsset:        order.FeeAsset,
			FeeAmount:       order.FeePaid,
			FilledAt:        now,
		}
		if err := e.fills.Insert(ctx, fill); err != nil {
			e.logger.WarnContext(ctx, "fill archive insert failed",
				slog.String("client_order_id", order.ClientOrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	e.auditLog(ctx, "order_filled", map[string]any{
		"client_order_id":   order.ClientOrderID,
		"exchange_trade_id": order.ExchangeOrderID,
		"executed_amount":   order.ExecutedAmount.String(),
		"executed_price":    order.ExecutedPrice.String(),
	})
	e.mirrorEvent(ctx, domain.EventOrderFilled, evt)
}

// OrderFailed emits the failure event.
func (e *Emitter) OrderFailed(ctx context.Context, order domain.Order, now time.Time) {
	evt := domain.OrderFailedEvent{
		ClientOrderID: order.ClientOrderID,
		Reason:        order.FailureReason,
		Timestamp:     now,
	}
	e.bus.Publish(domain.EventOrderFailed, evt)
	e.auditLog(ctx, "order_failed", map[string]any{
		"client_order_id": order.ClientOrderID,
		"reason":          order.FailureReason,
	})
	e.mirrorEvent(ctx, domain.EventOrderFailed, evt)
}

// OrderCancelled emits the cancellation event.
func (e *Emitter) OrderCancelled(ctx context.Context, order domain.Order, now time.Time) {
	evt := domain.OrderCancelledEvent{
		ClientOrderID: order.ClientOrderID,
		Timestamp:     now,
	}
	e.bus.Publish(domain.EventOrderCancelled, evt)
	e.auditLog(ctx, "order_cancelled", map[string]any{
		"client_order_id": order.ClientOrderID,
	})
	e.mirrorEvent(ctx, domain.EventOrderCancelled, evt)
}

func (e *Emitter) auditLog(ctx context.Context, event string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, event, detail); err != nil {
		e.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Emitter) mirrorEvent(ctx context.Context, kind domain.EventKind, evt any) {
	if e.mirror == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		e.logger.WarnContext(ctx, "marshal mirror payload failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := e.mirror.Append(ctx, kind, payload); err != nil {
		e.logger.WarnContext(ctx, "event mirror append failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}
