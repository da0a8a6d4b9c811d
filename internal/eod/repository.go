package eod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hward/premia/internal/contracts"
)

// Repository implements contracts.EODStore on PostgreSQL. All writes are
// idempotent upserts keyed by (symbol, trade_date), so concurrent or
// repeated writes are safe without distributed locks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new EOD snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetStock returns the snapshot for (symbol, date) or ErrEODNotFound.
func (r *Repository) GetStock(ctx context.Context, symbol string, date time.Time) (*contracts.EODStockRecord, error) {
	query := `
		SELECT symbol, trade_date, close_price, close_timestamp, source, ingestion_run_id, is_final
		FROM eod_stock_records
		WHERE symbol = $1 AND trade_date = $2
	`

	var rec contracts.EODStockRecord
	err := r.pool.QueryRow(ctx, query, symbol, date).Scan(
		&rec.Symbol, &rec.TradeDate, &rec.ClosePrice, &rec.CloseTimestamp,
		&rec.Source, &rec.IngestionRunID, &rec.IsFinal,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", symbol, date.Format("2006-01-02"), contracts.ErrEODNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutStock upserts one stock snapshot. A single statement, so no partial
// state is ever reader-visible.
func (r *Repository) PutStock(ctx context.Context, rec *contracts.EODStockRecord) error {
	query := `
		INSERT INTO eod_stock_records (
			symbol, trade_date, close_price, close_timestamp, source, ingestion_run_id, is_final
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			close_timestamp = EXCLUDED.close_timestamp,
			source = EXCLUDED.source,
			ingestion_run_id = EXCLUDED.ingestion_run_id,
			is_final = EXCLUDED.is_final
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Symbol, rec.TradeDate, rec.ClosePrice, rec.CloseTimestamp,
		rec.Source, rec.IngestionRunID, rec.IsFinal,
	)
	return err
}

// GetChain returns the chain snapshot for (symbol, date) or ErrEODNotFound.
func (r *Repository) GetChain(ctx context.Context, symbol string, date time.Time) (*contracts.EODOptionsChainRecord, error) {
	query := `
		SELECT symbol, trade_date, stock_price_ref, calls, puts,
		       valid_contract_count, ingestion_run_id, is_final
		FROM eod_option_chains
		WHERE symbol = $1 AND trade_date = $2
	`

	var rec contracts.EODOptionsChainRecord
	var callsJSON, putsJSON []byte
	err := r.pool.QueryRow(ctx, query, symbol, date).Scan(
		&rec.Symbol, &rec.TradeDate, &rec.StockPriceRef, &callsJSON, &putsJSON,
		&rec.ValidContractCount, &rec.IngestionRunID, &rec.IsFinal,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", symbol, date.Format("2006-01-02"), contracts.ErrEODNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(callsJSON, &rec.Calls); err != nil {
		return nil, fmt.Errorf("unmarshal calls for %s: %w", symbol, err)
	}
	if err := json.Unmarshal(putsJSON, &rec.Puts); err != nil {
		return nil, fmt.Errorf("unmarshal puts for %s: %w", symbol, err)
	}

	return &rec, nil
}

// PutChain upserts one chain snapshot.
func (r *Repository) PutChain(ctx context.Context, rec *contracts.EODOptionsChainRecord) error {
	callsJSON, err := json.Marshal(rec.Calls)
	if err != nil {
		return fmt.Errorf("marshal calls for %s: %w", rec.Symbol, err)
	}
	putsJSON, err := json.Marshal(rec.Puts)
	if err != nil {
		return fmt.Errorf("marshal puts for %s: %w", rec.Symbol, err)
	}

	query := `
		INSERT INTO eod_option_chains (
			symbol, trade_date, stock_price_ref, calls, puts,
			valid_contract_count, ingestion_run_id, is_final
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			stock_price_ref = EXCLUDED.stock_price_ref,
			calls = EXCLUDED.calls,
			puts = EXCLUDED.puts,
			valid_contract_count = EXCLUDED.valid_contract_count,
			ingestion_run_id = EXCLUDED.ingestion_run_id,
			is_final = EXCLUDED.is_final
	`

	_, err = r.pool.Exec(ctx, query,
		rec.Symbol, rec.TradeDate, rec.StockPriceRef, callsJSON, putsJSON,
		rec.ValidContractCount, rec.IngestionRunID, rec.IsFinal,
	)
	return err
}

// CountStocks returns the number of finalized stock snapshots for a date.
func (r *Repository) CountStocks(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM eod_stock_records WHERE trade_date = $1 AND is_final`,
		date,
	).Scan(&count)
	return count, err
}
