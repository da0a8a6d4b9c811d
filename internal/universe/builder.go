// Package universe composes the deterministic, versioned symbol set the
// ingestion phase works through: three static tiers plus a dynamic
// liquidity expansion, concatenated in strict precedence order.
package universe

import (
	"context"
	"fmt"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/symbols"
	"github.com/hward/premia/pkg/config"
	"github.com/hward/premia/pkg/logger"
)

// Builder constructs universe versions.
type Builder struct {
	liquidity contracts.LiquiditySource
	store     contracts.UniverseStore
	config    config.UniverseConfig
	logger    *logger.Logger
}

// NewBuilder creates a universe builder
func NewBuilder(liquidity contracts.LiquiditySource, store contracts.UniverseStore, cfg config.UniverseConfig, log *logger.Logger) *Builder {
	return &Builder{
		liquidity: liquidity,
		store:     store,
		config:    cfg,
		logger:    log.WithField("module", "universe"),
	}
}

// Build composes the symbol set from the tiers. Symbols are normalized
// before every set operation so class-share aliases never inflate counts.
// A failed liquidity query degrades to an empty Tier4 with a logged
// shortfall; a smaller-than-target universe is valid, not fatal.
func (b *Builder) Build(ctx context.Context) (*contracts.UniverseVersion, error) {
	included := make(map[string]bool)
	var list []string

	add := func(syms []string) int {
		count := 0
		for _, sym := range symbols.NormalizeAll(syms) {
			if included[sym] {
				continue
			}
			included[sym] = true
			list = append(list, sym)
			count++
		}
		return count
	}

	counts := contracts.TierCounts{}
	counts.SP500 = add(tier1SP500Core)
	counts.NasdaqNet = add(tier2Nasdaq100)
	counts.ETFWhitelist = add(tier3ETFWhitelist)

	// Tier 4: liquidity expansion up to the target size.
	need := b.config.TargetSize - len(list)
	if need > 0 {
		expansion, err := b.liquidity.TopByDollarVolume(ctx, contracts.LiquidityQuery{
			MinAvgVolume:   b.config.MinAvgVolume,
			MinMarketCap:   b.config.MinMarketCap,
			MinPrice:       b.config.MinPrice,
			MaxPrice:       b.config.MaxPrice,
			ExcludeSymbols: included,
			Limit:          need,
		})
		if err != nil {
			b.logger.WithError(err).WithField("shortfall", need).
				Warn("Liquidity expansion failed, continuing with static tiers only")
		} else {
			counts.LiquidityExpansion = add(expansion)
		}
	}

	if len(list) < b.config.TargetSize {
		b.logger.WithFields(map[string]interface{}{
			"size":   len(list),
			"target": b.config.TargetSize,
		}).Warn("Universe below target size")
	}

	return &contracts.UniverseVersion{
		Symbols:    list,
		TierCounts: counts,
	}, nil
}

// Persist appends a new universe version to the log and returns its id.
// Versions are never overwritten, only superseded.
func (b *Builder) Persist(ctx context.Context, v *contracts.UniverseVersion) (int64, error) {
	id, err := b.store.Save(ctx, v)
	if err != nil {
		return 0, fmt.Errorf("persist universe version: %w", err)
	}
	v.VersionID = id

	b.logger.WithFields(map[string]interface{}{
		"version_id":          id,
		"size":                len(v.Symbols),
		"sp500":               v.TierCounts.SP500,
		"nasdaq_net":          v.TierCounts.NasdaqNet,
		"etf_whitelist":       v.TierCounts.ETFWhitelist,
		"liquidity_expansion": v.TierCounts.LiquidityExpansion,
	}).Info("Universe version persisted")

	return id, nil
}

// Latest returns the most recently created universe version.
func (b *Builder) Latest(ctx context.Context) (*contracts.UniverseVersion, error) {
	return b.store.Latest(ctx)
}
