package ivrank

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hward/premia/internal/contracts"
)

// Repository implements contracts.IVHistoryStore on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new IV history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Samples returns the retained samples for a symbol strictly before the
// given trading date, oldest first.
func (r *Repository) Samples(ctx context.Context, symbol string, before time.Time) ([]contracts.IVHistorySample, error) {
	query := `
		SELECT symbol, trading_date, representative_iv
		FROM iv_history
		WHERE symbol = $1 AND trading_date < $2
		ORDER BY trading_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []contracts.IVHistorySample
	for rows.Next() {
		var s contracts.IVHistorySample
		if err := rows.Scan(&s.Symbol, &s.TradingDate, &s.RepresentativeIV); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Append inserts one sample. The unique (symbol, trading_date) constraint
// makes re-appending the same date a no-op, so concurrent writers never
// conflict on existing rows.
func (r *Repository) Append(ctx context.Context, sample *contracts.IVHistorySample) error {
	query := `
		INSERT INTO iv_history (symbol, trading_date, representative_iv)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, trading_date) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, sample.Symbol, sample.TradingDate, sample.RepresentativeIV)
	return err
}

// TrimOlderThan deletes samples outside the retention window.
func (r *Repository) TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM iv_history WHERE trading_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
