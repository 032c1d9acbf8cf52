// Package app provides the top-level application lifecycle for the AMM
// gateway connector. It wires together all dependencies (gateway client,
// stores, caches, blob storage, event bus, connector engine) and drives the
// reconciliation loop until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfarm/ammbot/internal/config"
	"github.com/quantfarm/ammbot/internal/domain"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, subscribes the
// logging listener to the event bus, starts the tick loop, and blocks until
// the context is cancelled. On return it drains in-flight submissions and
// runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting connector",
		slog.String("gateway", a.cfg.Gateway.BaseURL),
		slog.String("chain", a.cfg.Gateway.Chain),
		slog.String("network", a.cfg.Gateway.Network),
		slog.String("venue", a.cfg.Gateway.Connector),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.subscribeEventLog(deps)

	ticker := time.NewTicker(a.cfg.Connector.TickInterval.Duration)
	defer ticker.Stop()

	// Run one pass immediately so readiness does not wait a full interval.
	deps.Connector.Tick(ctx, time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("tick loop stopping, draining submissions")
			deps.Connector.Drain()
			return ctx.Err()
		case now := <-ticker.C:
			deps.Connector.Tick(ctx, now.UTC())
		}
	}
}

// subscribeEventLog attaches a structured-log listener for every lifecycle
// event kind. It is the default consumer; strategies subscribe alongside it.
func (a *App) subscribeEventLog(deps *Deps) {
	log := a.logger.With(slog.String("component", "order_events"))

	deps.Bus.Subscribe(domain.EventOrderCreated, func(payload any) {
		if ev, ok := payload.(domain.OrderCreatedEvent); ok {
			log.Info("order created",
				slog.String("client_order_id", ev.ClientOrderID),
				slog.String("exchange_order_id", ev.ExchangeOrderID),
				slog.String("pair", ev.TradingPair),
				slog.String("side", string(ev.TradeType)),
			)
		}
	})
	deps.Bus.Subscribe(domain.EventOrderFilled, func(payload any) {
		if ev, ok := payload.(domain.OrderFilledEvent); ok {
			log.Info("order filled",
				slog.String("client_order_id", ev.ClientOrderID),
				slog.String("trade_id", ev.ExchangeTradeID),
				slog.String("amount", ev.ExecutedAmount.String()),
				slog.String("price", ev.ExecutedPrice.String()),
			)
		}
	})
	deps.Bus.Subscribe(domain.EventOrderFailed, func(payload any) {
		if ev, ok := payload.(domain.OrderFailedEvent); ok {
			log.Warn("order failed",
				slog.String("client_order_id", ev.ClientOrderID),
				slog.String("reason", ev.Reason),
			)
		}
	})
	deps.Bus.Subscribe(domain.EventOrderCancelled, func(payload any) {
		if ev, ok := payload.(domain.OrderCancelledEvent); ok {
			log.Info("order cancelled",
				slog.String("client_order_id", ev.ClientOrderID),
			)
		}
	})
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down connector")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
