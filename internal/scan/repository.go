package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hward/premia/internal/contracts"
)

// Repository implements contracts.ScanSink on PostgreSQL. Rows are upserted
// by (scan_date, contract_symbol), so a re-run of the same scan date
// replaces its own output instead of duplicating it.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a scan output repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WriteCandidates persists one scan run's enriched candidates in a single
// batch round trip.
func (r *Repository) WriteCandidates(ctx context.Context, date time.Time, candidates []contracts.ScanCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	query := `
		INSERT INTO scan_outputs (
			scan_date, symbol, contract_symbol, spot_close,
			strike, expiry, dte, bid, ask, open_interest, implied_volatility,
			delta, gamma, theta, vega, delta_source,
			iv_rank, iv_percentile, iv_confidence, iv_sample_count,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, NOW()
		)
		ON CONFLICT (scan_date, contract_symbol) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			spot_close = EXCLUDED.spot_close,
			strike = EXCLUDED.strike,
			expiry = EXCLUDED.expiry,
			dte = EXCLUDED.dte,
			bid = EXCLUDED.bid,
			ask = EXCLUDED.ask,
			open_interest = EXCLUDED.open_interest,
			implied_volatility = EXCLUDED.implied_volatility,
			delta = EXCLUDED.delta,
			gamma = EXCLUDED.gamma,
			theta = EXCLUDED.theta,
			vega = EXCLUDED.vega,
			delta_source = EXCLUDED.delta_source,
			iv_rank = EXCLUDED.iv_rank,
			iv_percentile = EXCLUDED.iv_percentile,
			iv_confidence = EXCLUDED.iv_confidence,
			iv_sample_count = EXCLUDED.iv_sample_count,
			created_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, c := range candidates {
		batch.Queue(query,
			date, c.Symbol, c.Contract.ContractSymbol, c.SpotClose,
			c.Contract.Strike, c.Contract.Expiry, c.Contract.DTE,
			c.Contract.Bid, c.Contract.Ask, c.Contract.OpenInterest, c.Contract.ImpliedVol,
			c.Greeks.Delta, c.Greeks.Gamma, c.Greeks.Theta, c.Greeks.Vega, string(c.Greeks.DeltaSource),
			c.IVRank.IVRank, c.IVRank.IVPercentile, string(c.IVRank.Confidence), c.IVRank.SampleCount,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range candidates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("persist scan candidate: %w", err)
		}
	}

	return nil
}
