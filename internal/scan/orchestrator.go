// Package scan runs the post-lock analytics pass over finalized snapshots.
// It holds only a read capability on the snapshot store, so a live fetch
// from the scan path is a compile error, not a runtime bug.
package scan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/greeks"
	"github.com/hward/premia/internal/ivrank"
	"github.com/hward/premia/pkg/logger"
)

// targetDTE anchors the representative-IV selection near the monthly cycle.
const targetDTE = 30

// Config bounds the scan fan-out and filters.
type Config struct {
	Concurrency int
	Filter      contracts.ScanFilter
}

// DefaultFilter is the covered-call screening window: near-dated calls
// around the money with a real bid.
var DefaultFilter = contracts.ScanFilter{
	MinDTE:       7,
	MaxDTE:       60,
	MinMoneyness: 0.95,
	MaxMoneyness: 1.20,
	MinBid:       0.10,
}

// Orchestrator fans a scan out across the universe and enriches surviving
// contracts with greeks and IV rank.
type Orchestrator struct {
	reader contracts.EODReader
	greeks *greeks.Engine
	ivrank *ivrank.Engine
	sink   contracts.ScanSink
	logger *logger.Logger

	concurrency int
	filter      contracts.ScanFilter
}

// NewOrchestrator creates a scan orchestrator
func NewOrchestrator(reader contracts.EODReader, greeksEngine *greeks.Engine, rankEngine *ivrank.Engine, sink contracts.ScanSink, cfg Config, log *logger.Logger) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	filter := cfg.Filter
	if filter == (contracts.ScanFilter{}) {
		filter = DefaultFilter
	}

	return &Orchestrator{
		reader:      reader,
		greeks:      greeksEngine,
		ivrank:      rankEngine,
		sink:        sink,
		logger:      log.WithField("module", "scan"),
		concurrency: concurrency,
		filter:      filter,
	}
}

// Run scans the universe for the given date. When no finalized snapshot
// exists for the date the scan aborts loudly with zero writes; a silent
// empty result would be indistinguishable from "nothing passed".
func (o *Orchestrator) Run(ctx context.Context, universe []string, date time.Time) (*contracts.ScanSummary, error) {
	count, err := o.reader.SnapshotCount(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("snapshot count for %s: %w", date.Format("2006-01-02"), err)
	}
	if count == 0 {
		o.logger.WithField("date", date.Format("2006-01-02")).
			Error("No finalized snapshots for scan date, aborting")
		return &contracts.ScanSummary{ScanDate: date, Aborted: true},
			fmt.Errorf("scan for %s: %w", date.Format("2006-01-02"), contracts.ErrScanAborted)
	}

	o.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"symbols":   len(universe),
		"snapshots": count,
	}).Info("Starting scan")

	var (
		mu         sync.Mutex
		candidates []contracts.ScanCandidate
		skipped    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, sym := range universe {
		sym := sym
		g.Go(func() error {
			symCandidates, err := o.scanSymbol(gctx, sym, date)
			if err != nil {
				if contracts.IsNotFound(err) {
					mu.Lock()
					skipped++
					mu.Unlock()
					o.logger.WithField("symbol", sym).Debug("No snapshot for symbol, skipping")
					return nil
				}
				return fmt.Errorf("scan %s: %w", sym, err)
			}

			mu.Lock()
			candidates = append(candidates, symCandidates...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic output order regardless of goroutine scheduling.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Symbol != candidates[j].Symbol {
			return candidates[i].Symbol < candidates[j].Symbol
		}
		return candidates[i].Contract.ContractSymbol < candidates[j].Contract.ContractSymbol
	})

	if len(candidates) > 0 {
		if err := o.sink.WriteCandidates(ctx, date, candidates); err != nil {
			return nil, fmt.Errorf("persist scan output: %w", err)
		}
	}

	summary := &contracts.ScanSummary{
		ScanDate:   date,
		Scanned:    len(universe) - skipped,
		Skipped:    skipped,
		Candidates: len(candidates),
	}

	o.logger.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"scanned":    summary.Scanned,
		"skipped":    summary.Skipped,
		"candidates": summary.Candidates,
	}).Info("Scan completed")

	return summary, nil
}

// scanSymbol enriches one symbol's surviving calls. Rank only sees
// samples dated before the scan date, so today's reading never ranks
// against itself, even on a re-run whose first attempt already recorded
// the sample.
func (o *Orchestrator) scanSymbol(ctx context.Context, sym string, date time.Time) ([]contracts.ScanCandidate, error) {
	spot, err := o.reader.GetMarketClosePrice(ctx, sym, date)
	if err != nil {
		return nil, err
	}

	calls, err := o.reader.GetValidCallsForScan(ctx, sym, date, o.filter)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, nil
	}

	repIV := representativeIV(calls, spot)
	rank, err := o.ivrank.Rank(ctx, sym, repIV, date)
	if err != nil {
		return nil, err
	}
	if err := o.ivrank.RecordSample(ctx, sym, date, repIV); err != nil {
		return nil, err
	}

	out := make([]contracts.ScanCandidate, 0, len(calls))
	for _, oc := range calls {
		var sigma *float64
		if oc.ImpliedVol > 0 {
			iv := oc.ImpliedVol
			sigma = &iv
		}

		tYears := float64(oc.DTE) / 365.0
		g := o.greeks.Compute(spot, oc.Strike, tYears, sigma, greeks.Call)

		out = append(out, contracts.ScanCandidate{
			Symbol:    sym,
			ScanDate:  date,
			SpotClose: spot,
			Contract:  oc,
			Greeks:    g,
			IVRank:    rank,
		})
	}

	return out, nil
}

// representativeIV picks the day's single IV reading for a symbol: the
// contract with a positive IV closest to the money, ties broken by
// distance from the monthly expiry cycle. Zero when no contract carries
// a usable IV.
func representativeIV(calls []contracts.OptionContract, spot float64) float64 {
	best := -1
	for i, oc := range calls {
		if oc.ImpliedVol <= 0 {
			continue
		}
		if best < 0 || closerToATM(calls[i], calls[best], spot) {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return calls[best].ImpliedVol
}

func closerToATM(a, b contracts.OptionContract, spot float64) bool {
	da := math.Abs(a.Strike - spot)
	db := math.Abs(b.Strike - spot)
	if da != db {
		return da < db
	}
	return abs(a.DTE-targetDTE) < abs(b.DTE-targetDTE)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
