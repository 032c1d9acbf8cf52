package connector

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfarm/ammbot/internal/domain"
)

// defaultPollConcurrency bounds the number of in-flight transaction-status
// requests per reconciliation pass.
const defaultPollConcurrency = 8

// StatusReconciler advances the state machine of every non-terminal tracked
// order by polling the gateway for transaction status. One Reconcile call is
// one pass: it snapshots the tracked orders at pass start, issues a bounded
// batch of concurrent polls, and applies the results synchronously after the
// network phase ends. Results are applied through the tracker's Mark*
// methods, which re-check state at application time, so an order that went
// terminal (or was evicted) while a poll was in flight silently discards the
// late result.
type StatusReconciler struct {
	venue   domain.VenueClient
	tracker *Tracker
	emitter *Emitter
	quanta  domain.QuantumTable
	pairs   map[string]struct{}

	// submissionTimeout bounds how long an order may sit without an exchange
	// order ID before the submission is presumed lost.
	submissionTimeout time.Duration
	concurrency       int
	logger            *slog.Logger
}

// NewStatusReconciler creates a StatusReconciler restricted to the
// configured trading pairs.
func NewStatusReconciler(
	venue domain.VenueClient,
	tracker *Tracker,
	emitter *Emitter,
	quanta domain.QuantumTable,
	tradingPairs []string,
	submissionTimeout time.Duration,
	logger *slog.Logger,
) *StatusReconciler {
	pairs := make(map[string]struct{}, len(tradingPairs))
	for _, p := range tradingPairs {
		pairs[p] = struct{}{}
	}
	return &StatusReconciler{
		venue:             venue,
		tracker:           tracker,
		emitter:           emitter,
		quanta:            quanta,
		pairs:             pairs,
		submissionTimeout: submissionTimeout,
		concurrency:       defaultPollConcurrency,
		logger:            logger.With(slog.String("component", "status_reconciler")),
	}
}

// pollResult pairs one order snapshot with its status poll outcome.
type pollResult struct {
	order  domain.Order
	status domain.TxStatus
	err    error
}

// Reconcile runs one reconciliation pass over the orders tracked at call
// time. Transient poll failures are logged and retried on the next pass;
// Reconcile itself only returns an error when the context is cancelled.
func (r *StatusReconciler) Reconcile(ctx context.Context, now time.Time) error {
	snapshot := r.tracker.AllNonTerminal()
	if len(snapshot) == 0 {
		return nil
	}

	var pollable []domain.Order
	for _, o := range snapshot {
		if _, ok := r.pairs[o.TradingPair]; !ok {
			r.logger.WarnContext(ctx, "skipping order on unconfigured pair",
				slog.String("client_order_id", o.ClientOrderID),
				slog.String("pair", o.TradingPair),
			)
			continue
		}
		if o.ExchangeOrderID == "" {
			// Still awaiting submission confirmation. The submission path
			// owns the happy case; here we only fail orders whose
			// submission never came back within the timeout window. There
			// is no hash to poll, so the venue is never contacted.
			if now.Sub(o.CreatedAt) >= r.submissionTimeout {
				r.failLocally(ctx, o.ClientOrderID, "submission timed out", now)
			}
			continue
		}
		pollable = append(pollable, o)
	}
	if len(pollable) == 0 {
		return nil
	}

	results := make([]pollResult, len(pollable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, o := range pollable {
		g.Go(func() error {
			status, err := r.venue.TransactionStatus(gctx, o.ExchangeOrderID)
			results[i] = pollResult{order: o, status: status, err: err}
			return nil
		})
	}
	// Workers never return errors; g.Wait only reflects context cancellation.
	_ = g.Wait()

	// Late results after shutdown are discarded, not applied.
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, res := range results {
		r.apply(ctx, res, now)
	}
	return nil
}

// apply folds one poll result into the order's state machine. All mutation
// is synchronous and local; the tracker re-checks terminality so duplicate
// confirmations never double-fire events.
func (r *StatusReconciler) apply(ctx context.Context, res pollResult, now time.Time) {
	o := res.order
	if res.err != nil {
		r.logger.WarnContext(ctx, "transaction status poll failed",
			slog.String("client_order_id", o.ClientOrderID),
			slog.String("exchange_order_id", o.ExchangeOrderID),
			slog.String("error", res.err.Error()),
		)
		return
	}

	switch res.status.Kind {
	case domain.TxConfirmed:
		base, _, ok := baseQuote(o.TradingPair)
		if !ok {
			base = ""
		}
		executedAmount := r.quanta.Quantize(base, res.status.ExecutedAmount)
		if res.status.ExecutedAmount.IsZero() {
			// Gateways that omit fill details confirm the full amount.
			executedAmount = o.Amount
		}
		executedPrice := res.status.ExecutedPrice
		if executedPrice.IsZero() {
			executedPrice = o.Price
		}
		feePaid := r.quanta.Quantize(o.FeeAsset, res.status.FeePaid)

		updated, applied := r.tracker.MarkFilled(o.ClientOrderID, executedAmount, executedPrice, feePaid, now)
		if !applied {
			return
		}
		r.logger.InfoContext(ctx, "order filled",
			slog.String("client_order_id", updated.ClientOrderID),
			slog.String("exchange_order_id", updated.ExchangeOrderID),
			slog.String("executed_amount", updated.ExecutedAmount.String()),
			slog.String("executed_price", updated.ExecutedPrice.String()),
		)
		r.emitter.OrderFilled(ctx, updated, now)

	case domain.TxFailed:
		r.failLocally(ctx, o.ClientOrderID, "transaction reverted", now)

	case domain.TxPending, domain.TxUnknown:
		// Unknown means the venue has not indexed the transaction yet;
		// indexing lag must never be mistaken for rejection.
	}
}

func (r *StatusReconciler) failLocally(ctx context.Context, clientOrderID, reason string, now time.Time) {
	updated, applied := r.tracker.MarkFailed(clientOrderID, reason, now)
	if !applied {
		return
	}
	r.logger.InfoContext(ctx, "order failed",
		slog.String("client_order_id", clientOrderID),
		slog.String("reason", reason),
	)
	r.emitter.OrderFailed(ctx, updated, now)
}

// baseQuote splits "DAI-WETH" into its asset symbols.
func baseQuote(pair string) (string, string, bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '-' {
			if i == 0 || i == len(pair)-1 {
				return "", "", false
			}
			return pair[:i], pair[i+1:], true
		}
	}
	return "", "", false
}
