package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/symbols"
)

// Repository implements contracts.UniverseStore on PostgreSQL. The
// universe_versions table is append-only: Save always inserts.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new universe repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Save appends a new universe version and returns its id.
func (r *Repository) Save(ctx context.Context, v *contracts.UniverseVersion) (int64, error) {
	tierJSON, err := json.Marshal(v.TierCounts)
	if err != nil {
		return 0, fmt.Errorf("marshal tier counts: %w", err)
	}

	query := `
		INSERT INTO universe_versions (symbols, tier_counts, created_at)
		VALUES ($1, $2, NOW())
		RETURNING version_id, created_at
	`

	var id int64
	if err := r.db.QueryRow(ctx, query, v.Symbols, tierJSON).Scan(&id, &v.CreatedAt); err != nil {
		return 0, fmt.Errorf("insert universe version: %w", err)
	}

	return id, nil
}

// Latest returns the most recently created universe version.
func (r *Repository) Latest(ctx context.Context) (*contracts.UniverseVersion, error) {
	query := `
		SELECT version_id, symbols, tier_counts, created_at
		FROM universe_versions
		ORDER BY version_id DESC
		LIMIT 1
	`

	v := &contracts.UniverseVersion{}
	var tierJSON []byte
	err := r.db.QueryRow(ctx, query).Scan(&v.VersionID, &v.Symbols, &tierJSON, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrUniverseEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("query latest universe version: %w", err)
	}

	if len(tierJSON) > 0 {
		if err := json.Unmarshal(tierJSON, &v.TierCounts); err != nil {
			return nil, fmt.Errorf("unmarshal tier counts: %w", err)
		}
	}

	return v, nil
}

// LiquidityRepository implements contracts.LiquiditySource against the
// security_liquidity table maintained by an upstream loader.
type LiquidityRepository struct {
	db *pgxpool.Pool
}

// NewLiquidityRepository creates a new liquidity source
func NewLiquidityRepository(db *pgxpool.Pool) *LiquidityRepository {
	return &LiquidityRepository{db: db}
}

// TopByDollarVolume returns expansion candidates ranked by 20-day dollar
// volume descending with symbol ascending as the tiebreak, so the same
// table contents always produce the same ordering.
func (r *LiquidityRepository) TopByDollarVolume(ctx context.Context, q contracts.LiquidityQuery) ([]string, error) {
	query := `
		SELECT symbol
		FROM security_liquidity
		WHERE avg_volume_20d >= $1
		  AND market_cap >= $2
		  AND last_close BETWEEN $3 AND $4
		  AND NOT is_etf
		ORDER BY dollar_volume_20d DESC, symbol ASC
		LIMIT $5
	`

	// Over-fetch to cover rows excluded below; already-included symbols
	// do not count against the limit.
	fetchLimit := q.Limit + len(q.ExcludeSymbols)

	rows, err := r.db.Query(ctx, query, q.MinAvgVolume, q.MinMarketCap, q.MinPrice, q.MaxPrice, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("query liquidity expansion: %w", err)
	}
	defer rows.Close()

	fetched := make([]string, 0, fetchLimit)
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan liquidity row: %w", err)
		}
		fetched = append(fetched, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return applyExclusions(fetched, q.ExcludeSymbols, q.Limit), nil
}

// applyExclusions drops excluded symbols and truncates to limit. Rows
// come back in the table's raw spelling while the exclusion set is keyed
// by normalized symbols, so each row is normalized before the lookup.
func applyExclusions(fetched []string, exclude map[string]bool, limit int) []string {
	out := make([]string, 0, limit)
	for _, raw := range fetched {
		sym := symbols.Normalize(raw)
		if exclude[sym] {
			continue
		}
		out = append(out, sym)
		if len(out) == limit {
			break
		}
	}
	return out
}
