// Package ivrank converts a raw IV reading into rank/percentile against
// the symbol's own trailing history, with small-sample shrinkage so thin
// histories never fabricate precision.
package ivrank

import (
	"context"
	"fmt"
	"time"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/pkg/logger"
)

// Sample-depth thresholds.
const (
	minSamples      = 5  // below this: neutral 50/50, LOW confidence
	fullSamples     = 20 // at or above this: no shrinkage
	highConfSamples = 60 // below this (but >= fullSamples): MEDIUM, not HIGH
)

// Source tags for rank results.
const (
	SourceHistory      = "IV_HISTORY"
	SourceInsufficient = "INSUFFICIENT_HISTORY"
)

// RetentionDays bounds the trailing history window.
const RetentionDays = 450

// Engine implements IV rank/percentile over an append-only history store.
type Engine struct {
	store  contracts.IVHistoryStore
	logger *logger.Logger
}

// NewEngine creates an IV rank engine
func NewEngine(store contracts.IVHistoryStore, log *logger.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: log.WithField("module", "ivrank"),
	}
}

// Rank computes IV rank and percentile for currentIV against the samples
// recorded strictly before date. It never inserts today's sample itself:
// callers must call RecordSample strictly after Rank, and the date bound
// keeps a re-run whose earlier attempt already recorded the sample from
// ranking today's value against itself. Every result field is always
// populated.
func (e *Engine) Rank(ctx context.Context, symbol string, currentIV float64, date time.Time) (contracts.IVRankResult, error) {
	samples, err := e.store.Samples(ctx, symbol, date)
	if err != nil {
		return contracts.IVRankResult{}, fmt.Errorf("load iv history for %s: %w", symbol, err)
	}

	n := len(samples)
	if n < minSamples {
		return contracts.IVRankResult{
			IVRank:       50,
			IVPercentile: 50,
			Confidence:   contracts.ConfidenceLow,
			Source:       SourceInsufficient,
			SampleCount:  n,
		}, nil
	}

	rank, percentile := trueRank(samples, currentIV)

	confidence := contracts.ConfidenceHigh
	switch {
	case n < fullSamples:
		// Linear shrinkage toward the neutral 50 by how far the sample
		// count falls below the full window.
		factor := float64(n) / float64(fullSamples)
		rank = 50 + (rank-50)*factor
		percentile = 50 + (percentile-50)*factor
		confidence = contracts.ConfidenceMedium
	case n < highConfSamples:
		confidence = contracts.ConfidenceMedium
	}

	return contracts.IVRankResult{
		IVRank:       rank,
		IVPercentile: percentile,
		Confidence:   confidence,
		Source:       SourceHistory,
		SampleCount:  n,
	}, nil
}

// RecordSample appends today's representative IV to history. Append-only,
// unique per (symbol, trading_date); re-recording the same date is a
// no-op at the store level.
func (e *Engine) RecordSample(ctx context.Context, symbol string, tradingDate time.Time, iv float64) error {
	if iv <= 0 {
		e.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"iv":     iv,
		}).Debug("Skipping non-positive IV sample")
		return nil
	}

	return e.store.Append(ctx, &contracts.IVHistorySample{
		Symbol:           symbol,
		TradingDate:      tradingDate,
		RepresentativeIV: iv,
	})
}

// TrimHistory drops samples older than the retention window.
func (e *Engine) TrimHistory(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -RetentionDays)
	return e.store.TrimOlderThan(ctx, cutoff)
}

// trueRank computes the unshrunk rank and percentile.
// rank = 100 * (cur - min) / (max - min), 0 when max == min.
// percentile = 100 * count(history < cur) / n.
func trueRank(samples []contracts.IVHistorySample, current float64) (rank, percentile float64) {
	minIV := samples[0].RepresentativeIV
	maxIV := samples[0].RepresentativeIV
	below := 0

	for _, s := range samples {
		if s.RepresentativeIV < minIV {
			minIV = s.RepresentativeIV
		}
		if s.RepresentativeIV > maxIV {
			maxIV = s.RepresentativeIV
		}
		if s.RepresentativeIV < current {
			below++
		}
	}

	if maxIV > minIV {
		rank = 100 * (current - minIV) / (maxIV - minIV)
	}
	percentile = 100 * float64(below) / float64(len(samples))
	return rank, percentile
}
