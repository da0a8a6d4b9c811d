package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hward/premia/internal/contracts"
)

// Repository implements contracts.QuoteStore on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quote cache repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Put upserts the latest quote for a contract.
func (r *Repository) Put(ctx context.Context, entry *contracts.QuoteCacheEntry) error {
	query := `
		INSERT INTO option_quote_cache (
			contract_symbol, symbol, strike, expiry,
			bid, ask, quote_timestamp, session_date, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (contract_symbol) DO UPDATE SET
			bid = EXCLUDED.bid,
			ask = EXCLUDED.ask,
			quote_timestamp = EXCLUDED.quote_timestamp,
			session_date = EXCLUDED.session_date,
			source = EXCLUDED.source
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ContractSymbol, entry.Symbol, entry.Strike, entry.Expiry,
		entry.Bid, entry.Ask, entry.QuoteTimestamp, entry.SessionDate, entry.Source,
	)
	return err
}

// Get returns the cached quote for a contract, or (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, contractSymbol string) (*contracts.QuoteCacheEntry, error) {
	query := `
		SELECT contract_symbol, symbol, strike, expiry,
		       bid, ask, quote_timestamp, session_date, source
		FROM option_quote_cache
		WHERE contract_symbol = $1
	`

	var e contracts.QuoteCacheEntry
	err := r.pool.QueryRow(ctx, query, contractSymbol).Scan(
		&e.ContractSymbol, &e.Symbol, &e.Strike, &e.Expiry,
		&e.Bid, &e.Ask, &e.QuoteTimestamp, &e.SessionDate, &e.Source,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteOlderThan removes quotes whose timestamp predates cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM option_quote_cache WHERE quote_timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
