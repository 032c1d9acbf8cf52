package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quantfarm/ammbot/internal/domain"
)

// FillStore implements domain.FillArchive using PostgreSQL. Inserts are
// idempotent on client_order_id: the connector guarantees at most one fill
// per order, and the conflict clause makes a replayed insert harmless.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Insert archives one confirmed fill.
func (s *FillStore) Insert(ctx context.Context, fill domain.Fill) error {
	const query = `
		INSERT INTO fills (
			client_order_id, exchange_trade_id, trading_pair, trade_type,
			executed_amount, executed_price, fee_asset, fee_amount, filled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (client_order_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		fill.ClientOrderID,
		fill.ExchangeTradeID,
		fill.TradingPair,
		string(fill.TradeType),
		fill.ExecutedAmount,
		fill.ExecutedPrice,
		fill.FeeAsset,
		fill.FeeAmount,
		fill.FilledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert fill %s: %w", fill.ClientOrderID, err)
	}
	return nil
}

// ListByPair returns archived fills for a trading pair, newest first.
func (s *FillStore) ListByPair(ctx context.Context, pair string, opts domain.ListOpts) ([]domain.Fill, error) {
	query := `
		SELECT client_order_id, exchange_trade_id, trading_pair, trade_type,
		       executed_amount, executed_price, fee_asset, fee_amount, filled_at
		FROM fills WHERE trading_pair = $1`
	args := []any{pair}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND filled_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND filled_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY filled_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills for %s: %w", pair, err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var (
			f         domain.Fill
			tradeType string
			amount    decimal.Decimal
			price     decimal.Decimal
			fee       decimal.Decimal
		)
		if err := rows.Scan(
			&f.ClientOrderID, &f.ExchangeTradeID, &f.TradingPair, &tradeType,
			&amount, &price, &f.FeeAsset, &fee, &f.FilledAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan fill: %w", err)
		}
		f.TradeType = domain.TradeType(tradeType)
		f.ExecutedAmount = amount
		f.ExecutedPrice = price
		f.FeeAmount = fee
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fills rows: %w", err)
	}
	return fills, nil
}

// Compile-time interface check.
var _ domain.FillArchive = (*FillStore)(nil)
