package eod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/quotes"
	"github.com/hward/premia/pkg/logger"
)

// Ingestor fans the daily snapshot run out across a bounded worker pool
// against the market-data provider. This is the scan-path fan-out: the
// concurrency cap is a hard limit, unlike the direct interactive path.
type Ingestor struct {
	contract   *Contract
	provider   contracts.MarketDataProvider
	clock      contracts.SessionClock
	quoteCache *quotes.Cache // optional; records chain bid/ask while live
	logger     *logger.Logger

	workers       int
	symbolTimeout time.Duration
	maxChainDTE   int
}

// IngestorConfig bounds the fan-out.
type IngestorConfig struct {
	Workers       int
	SymbolTimeout time.Duration
	MaxChainDTE   int
}

// NewIngestor creates a batch ingestor. quoteCache may be nil.
func NewIngestor(contract *Contract, provider contracts.MarketDataProvider, clock contracts.SessionClock, quoteCache *quotes.Cache, cfg IngestorConfig, log *logger.Logger) *Ingestor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := cfg.SymbolTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxDTE := cfg.MaxChainDTE
	if maxDTE <= 0 {
		maxDTE = 730 // cover LEAPS for PMCC scans
	}

	return &Ingestor{
		contract:      contract,
		provider:      provider,
		clock:         clock,
		quoteCache:    quoteCache,
		logger:        log.WithField("module", "eod_ingestor"),
		workers:       workers,
		symbolTimeout: timeout,
		maxChainDTE:   maxDTE,
	}
}

// SymbolResult is the outcome for one symbol in a batch run.
type SymbolResult struct {
	Symbol        string
	StockStatus   IngestStatus
	ChainIngested bool
	Error         error
}

// Report summarizes one batch run.
type Report struct {
	Date         time.Time
	Total        int
	Succeeded    int
	AlreadyFinal int
	Failed       int
}

// Run ingests closes and chains for every symbol in the universe.
// Individual symbol failures are counted and logged, never fatal to the
// batch; only batch-level failures (store unreachable, no trading day)
// return an error.
func (in *Ingestor) Run(ctx context.Context, universe []string, date time.Time) (*Report, error) {
	if !in.clock.IsTradingDay(date) {
		return nil, fmt.Errorf("ingestion for %s: not a trading day", date.Format("2006-01-02"))
	}

	in.logger.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"symbols": len(universe),
		"workers": in.workers,
	}).Info("Starting EOD ingestion")

	symbolCh := make(chan string, len(universe))
	resultCh := make(chan SymbolResult, len(universe))

	var wg sync.WaitGroup
	for i := 0; i < in.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			in.worker(ctx, workerID, date, symbolCh, resultCh)
		}(i)
	}

	for _, sym := range universe {
		symbolCh <- sym
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	report := &Report{Date: date, Total: len(universe)}
	for res := range resultCh {
		switch {
		case res.Error != nil:
			report.Failed++
		case res.StockStatus == StatusAlreadyFinal:
			report.AlreadyFinal++
		default:
			report.Succeeded++
		}
	}

	in.logger.WithFields(map[string]interface{}{
		"date":          date.Format("2006-01-02"),
		"succeeded":     report.Succeeded,
		"already_final": report.AlreadyFinal,
		"failed":        report.Failed,
	}).Info("EOD ingestion completed")

	return report, nil
}

// worker processes symbols until the channel drains or the run context
// dies. Each symbol gets its own bounded timeout so one stuck provider
// call cannot block the whole run.
func (in *Ingestor) worker(ctx context.Context, workerID int, date time.Time, symbolCh <-chan string, resultCh chan<- SymbolResult) {
	for sym := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- SymbolResult{Symbol: sym, Error: ctx.Err()}
			continue
		default:
		}

		symCtx, cancel := context.WithTimeout(ctx, in.symbolTimeout)
		res := in.ingestSymbol(symCtx, sym, date)
		cancel()

		if res.Error != nil {
			in.logger.WithError(res.Error).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": sym,
			}).Error("Symbol ingestion failed")
		}

		resultCh <- res
	}
}

// ingestSymbol runs the close-then-chain sequence for one symbol. The
// ordering matters: the chain ingest checks alignment against the close.
func (in *Ingestor) ingestSymbol(ctx context.Context, sym string, date time.Time) SymbolResult {
	res := SymbolResult{Symbol: sym}

	closePrice, err := in.provider.FetchClose(ctx, sym, date)
	if err != nil {
		res.Error = fmt.Errorf("fetch close: %w", err)
		return res
	}

	stockRes, err := in.contract.IngestStockClose(ctx, sym, date, closePrice, false)
	if err != nil {
		res.Error = fmt.Errorf("ingest close: %w", err)
		return res
	}
	res.StockStatus = stockRes.Status

	// On a guard re-run both records are usually final already; the chain
	// fetch is skipped so the provider is not hit for a no-op.
	if stockRes.Status == StatusAlreadyFinal {
		if _, err := in.contract.GetOptionsChain(ctx, sym, date); err == nil {
			return res
		} else if !contracts.IsNotFound(err) {
			res.Error = fmt.Errorf("lookup chain: %w", err)
			return res
		}
	}

	chain, err := in.provider.FetchOptionChain(ctx, sym, in.maxChainDTE)
	if err != nil {
		res.Error = fmt.Errorf("fetch chain: %w", err)
		return res
	}

	calls, puts := splitChain(chain)
	if _, err := in.contract.IngestOptionsChain(ctx, sym, closePrice, date, calls, puts, false); err != nil {
		res.Error = fmt.Errorf("ingest chain: %w", err)
		return res
	}
	res.ChainIngested = true

	if in.quoteCache != nil {
		in.recordQuotes(ctx, sym, date, chain)
	}

	return res
}

// recordQuotes feeds the after-hours quote cache while the session is
// still live. Failures here never fail the symbol.
func (in *Ingestor) recordQuotes(ctx context.Context, sym string, date time.Time, chain []contracts.OptionContract) {
	for _, oc := range chain {
		if !oc.Valid {
			continue
		}
		_, err := in.quoteCache.RecordIfLive(ctx, &contracts.QuoteCacheEntry{
			ContractSymbol: oc.ContractSymbol,
			Symbol:         sym,
			Strike:         oc.Strike,
			Expiry:         oc.Expiry,
			Bid:            oc.Bid,
			Ask:            oc.Ask,
			SessionDate:    date,
		})
		if err != nil {
			in.logger.WithError(err).WithField("contract", oc.ContractSymbol).
				Debug("Quote record failed")
		}
	}
}

// splitChain separates provider contracts into calls and puts by the OCC
// contract symbol's C/P marker.
func splitChain(chain []contracts.OptionContract) (calls, puts []contracts.OptionContract) {
	for _, oc := range chain {
		if isPut(oc.ContractSymbol) {
			puts = append(puts, oc)
		} else {
			calls = append(calls, oc)
		}
	}
	return calls, puts
}

// isPut reads the OCC option symbol type marker: the letter before the
// 8-digit strike suffix.
func isPut(contractSymbol string) bool {
	if len(contractSymbol) < 9 {
		return false
	}
	return contractSymbol[len(contractSymbol)-9] == 'P'
}
