package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/replay-broker/internal/domain"
)

// orderLogRepository implements domain.OrderLog on the portfolios and
// portfolio_orders tables
type orderLogRepository struct {
	db *DB
}

// NewOrderLogRepository creates a new Postgres order log
func NewOrderLogRepository(db *DB) domain.OrderLog {
	return &orderLogRepository{db: db}
}

// Location identifies the portfolio row backing a portfolio
func (r *orderLogRepository) Location(id uuid.UUID) string {
	return fmt.Sprintf("postgres://portfolios/%s", id)
}

// Init inserts the initial portfolio state. The order log starts empty.
func (r *orderLogRepository) Init(ctx context.Context, p domain.Portfolio) error {
	query := `
		INSERT INTO portfolios (id, base_asset_total, quote_asset_total, value, sim_time, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.BaseAssetTotal.String(),
		p.QuoteAssetTotal.String(),
		p.Value.String(),
		p.CurrentTime,
		p.StoragePath,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert portfolio %s: %w", domain.ErrPersistence, p.ID, err)
	}
	return nil
}

// Append adds a record at the end of the portfolio's order log.
// The sequence number is allocated inside the insert so callers holding the
// per-portfolio lock always produce a gapless, ordered log.
func (r *orderLogRepository) Append(ctx context.Context, p domain.Portfolio, record domain.OrderRecord) error {
	query := `
		INSERT INTO portfolio_orders (
			portfolio_id, seq, kind, total, exec_time, price,
			result_base_asset_total, result_quote_asset_total, result_value, result_sim_time
		)
		SELECT $1::uuid, COALESCE(MAX(seq), 0) + 1, $2::text, $3::numeric, $4::bigint, $5::numeric,
		       $6::numeric, $7::numeric, $8::numeric, $9::bigint
		FROM portfolio_orders
		WHERE portfolio_id = $1::uuid
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		string(record.Kind),
		record.Total.String(),
		record.Time,
		record.Price.String(),
		record.Portfolio.BaseAssetTotal.String(),
		record.Portfolio.QuoteAssetTotal.String(),
		record.Portfolio.Value.String(),
		record.Portfolio.CurrentTime,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to append %s order for %s: %w", domain.ErrPersistence, record.Kind, p.ID, err)
	}
	return nil
}

// SaveState overwrites the persisted portfolio row
func (r *orderLogRepository) SaveState(ctx context.Context, p domain.Portfolio) error {
	query := `
		UPDATE portfolios
		SET base_asset_total = $2, quote_asset_total = $3, value = $4, sim_time = $5, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.BaseAssetTotal.String(),
		p.QuoteAssetTotal.String(),
		p.Value.String(),
		p.CurrentTime,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update portfolio %s: %w", domain.ErrPersistence, p.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %w", domain.ErrPersistence, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: portfolio %s has no stored state", domain.ErrPersistence, p.ID)
	}
	return nil
}

// History returns the order log in append order
func (r *orderLogRepository) History(ctx context.Context, p domain.Portfolio) ([]domain.OrderRecord, error) {
	query := `
		SELECT kind, total, exec_time, price,
		       result_base_asset_total, result_quote_asset_total, result_value, result_sim_time
		FROM portfolio_orders
		WHERE portfolio_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query order history: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	records := make([]domain.OrderRecord, 0)
	for rows.Next() {
		var kind string
		var totalStr, priceStr, baseStr, quoteStr, valueStr string
		record := domain.OrderRecord{Portfolio: p}

		if err := rows.Scan(
			&kind,
			&totalStr,
			&record.Time,
			&priceStr,
			&baseStr,
			&quoteStr,
			&valueStr,
			&record.Portfolio.CurrentTime,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan order: %w", domain.ErrPersistence, err)
		}
		record.Kind = domain.OrderKind(kind)

		amounts := []struct {
			raw string
			dst *decimal.Decimal
		}{
			{totalStr, &record.Total},
			{priceStr, &record.Price},
			{baseStr, &record.Portfolio.BaseAssetTotal},
			{quoteStr, &record.Portfolio.QuoteAssetTotal},
			{valueStr, &record.Portfolio.Value},
		}
		for _, a := range amounts {
			parsed, err := decimal.NewFromString(a.raw)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to parse order amount %q: %w", domain.ErrPersistence, a.raw, err)
			}
			*a.dst = parsed
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating orders: %w", domain.ErrPersistence, err)
	}
	return records, nil
}
