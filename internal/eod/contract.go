// Package eod owns the immutable per-symbol/per-date snapshot store and
// enforces the ingest/read separation. Ingest-phase operations are
// idempotent and safe to re-run; read-phase operations only ever see
// finalized records.
package eod

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hward/premia/internal/contracts"
	"github.com/hward/premia/internal/symbols"
	"github.com/hward/premia/pkg/logger"
)

// IngestStatus describes the outcome of one ingest call.
type IngestStatus string

const (
	// StatusIngested means a new final record was written.
	StatusIngested IngestStatus = "INGESTED"

	// StatusAlreadyFinal means a final record already existed and the
	// call was a no-op. A success signal, not an error.
	StatusAlreadyFinal IngestStatus = "ALREADY_FINAL"

	// StatusOverridden means an existing final record was replaced
	// through the audited override path under a new run id.
	StatusOverridden IngestStatus = "OVERRIDDEN"
)

// IngestResult reports what one ingest call did.
type IngestResult struct {
	Status         IngestStatus
	IngestionRunID string
}

// Contract is the ingestion and read boundary over finalized snapshots.
// Per (symbol, trade_date) the state machine is MISSING -> FINAL, one-way,
// except the audited override transition which produces a new run id.
type Contract struct {
	store  contracts.EODStore
	clock  contracts.SessionClock
	source string // provenance tag written into every record
	logger *logger.Logger
}

// NewContract creates the EOD contract boundary
func NewContract(store contracts.EODStore, clock contracts.SessionClock, source string, log *logger.Logger) *Contract {
	return &Contract{
		store:  store,
		clock:  clock,
		source: source,
		logger: log.WithField("module", "eod_contract"),
	}
}

// IngestStockClose persists the finalized close for (symbol, date).
// Re-running with override=false against an existing final record is a
// zero-write no-op; ingestion is scheduled at the lock timestamp by
// design rather than gated on live-mode checks, so idempotency is the
// safety mechanism here.
func (c *Contract) IngestStockClose(ctx context.Context, symbol string, date time.Time, closePrice float64, override bool) (IngestResult, error) {
	sym := symbols.Normalize(symbol)

	existing, err := c.store.GetStock(ctx, sym, date)
	if err != nil && !contracts.IsNotFound(err) {
		return IngestResult{}, fmt.Errorf("lookup stock record %s %s: %w", sym, date.Format("2006-01-02"), err)
	}

	if existing != nil && existing.IsFinal && !override {
		return IngestResult{
			Status:         StatusAlreadyFinal,
			IngestionRunID: existing.IngestionRunID,
		}, nil
	}

	runID := uuid.NewString()
	rec := &contracts.EODStockRecord{
		Symbol:         sym,
		TradeDate:      date,
		ClosePrice:     closePrice,
		CloseTimestamp: c.clock.LockTimestamp(date),
		Source:         c.source,
		IngestionRunID: runID,
		IsFinal:        true,
	}

	if err := c.store.PutStock(ctx, rec); err != nil {
		return IngestResult{}, fmt.Errorf("persist stock record %s %s: %w", sym, date.Format("2006-01-02"), err)
	}

	status := StatusIngested
	if existing != nil && existing.IsFinal {
		status = StatusOverridden
		// Overrides of finalized data are audit events.
		c.logger.WithFields(map[string]interface{}{
			"symbol":      sym,
			"trade_date":  date.Format("2006-01-02"),
			"old_run_id":  existing.IngestionRunID,
			"new_run_id":  runID,
			"old_close":   existing.ClosePrice,
			"new_close":   closePrice,
		}).Warn("Final EOD stock record overridden")
	}

	return IngestResult{Status: status, IngestionRunID: runID}, nil
}

// IngestOptionsChain persists the finalized chain for (symbol, date). The
// alignment invariant is checked first: a chain can never exist ahead of
// or without its underlying's finalized close. Like the stock path,
// re-running against an existing final chain with override=false is a
// zero-write no-op.
func (c *Contract) IngestOptionsChain(ctx context.Context, symbol string, stockPrice float64, date time.Time, calls, puts []contracts.OptionContract, override bool) (IngestResult, error) {
	sym := symbols.Normalize(symbol)

	stock, err := c.store.GetStock(ctx, sym, date)
	if err != nil {
		if contracts.IsNotFound(err) {
			return IngestResult{}, fmt.Errorf("chain for %s %s: %w", sym, date.Format("2006-01-02"), contracts.ErrStockEODNotFound)
		}
		return IngestResult{}, fmt.Errorf("alignment lookup for %s %s: %w", sym, date.Format("2006-01-02"), err)
	}
	if !stock.IsFinal {
		return IngestResult{}, fmt.Errorf("chain for %s %s: %w", sym, date.Format("2006-01-02"), contracts.ErrStockEODNotFound)
	}

	existing, err := c.store.GetChain(ctx, sym, date)
	if err != nil && !contracts.IsNotFound(err) {
		return IngestResult{}, fmt.Errorf("lookup chain %s %s: %w", sym, date.Format("2006-01-02"), err)
	}

	if existing != nil && existing.IsFinal && !override {
		return IngestResult{
			Status:         StatusAlreadyFinal,
			IngestionRunID: existing.IngestionRunID,
		}, nil
	}

	valid := 0
	for _, oc := range calls {
		if oc.Valid {
			valid++
		}
	}
	for _, oc := range puts {
		if oc.Valid {
			valid++
		}
	}

	runID := uuid.NewString()
	rec := &contracts.EODOptionsChainRecord{
		Symbol:             sym,
		TradeDate:          date,
		StockPriceRef:      stockPrice,
		Calls:              calls,
		Puts:               puts,
		ValidContractCount: valid,
		IngestionRunID:     runID,
		IsFinal:            true,
	}

	if err := c.store.PutChain(ctx, rec); err != nil {
		return IngestResult{}, fmt.Errorf("persist chain %s %s: %w", sym, date.Format("2006-01-02"), err)
	}

	status := StatusIngested
	if existing != nil && existing.IsFinal {
		status = StatusOverridden
		// Overrides of finalized data are audit events.
		c.logger.WithFields(map[string]interface{}{
			"symbol":     sym,
			"trade_date": date.Format("2006-01-02"),
			"old_run_id": existing.IngestionRunID,
			"new_run_id": runID,
		}).Warn("Final EOD options chain overridden")
	}

	return IngestResult{Status: status, IngestionRunID: runID}, nil
}

// GetMarketClosePrice returns the finalized close for (symbol, date), or
// ErrEODNotFound. Callers must treat not-found as "cannot scan this
// symbol today", never substitute live or stale data.
func (c *Contract) GetMarketClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	rec, err := c.store.GetStock(ctx, symbols.Normalize(symbol), date)
	if err != nil {
		return 0, err
	}
	if !rec.IsFinal {
		return 0, fmt.Errorf("%s %s: %w", symbol, date.Format("2006-01-02"), contracts.ErrEODNotFound)
	}
	return rec.ClosePrice, nil
}

// GetOptionsChain returns the finalized chain for (symbol, date), or
// ErrEODNotFound.
func (c *Contract) GetOptionsChain(ctx context.Context, symbol string, date time.Time) (*contracts.EODOptionsChainRecord, error) {
	rec, err := c.store.GetChain(ctx, symbols.Normalize(symbol), date)
	if err != nil {
		return nil, err
	}
	if !rec.IsFinal {
		return nil, fmt.Errorf("%s %s: %w", symbol, date.Format("2006-01-02"), contracts.ErrEODNotFound)
	}
	return rec, nil
}

// GetValidCallsForScan returns the finalized calls passing the filter.
func (c *Contract) GetValidCallsForScan(ctx context.Context, symbol string, date time.Time, filter contracts.ScanFilter) ([]contracts.OptionContract, error) {
	chain, err := c.GetOptionsChain(ctx, symbol, date)
	if err != nil {
		return nil, err
	}

	spot := chain.StockPriceRef
	out := make([]contracts.OptionContract, 0, len(chain.Calls))
	for _, oc := range chain.Calls {
		if !oc.Valid {
			continue
		}
		if oc.DTE < filter.MinDTE || (filter.MaxDTE > 0 && oc.DTE > filter.MaxDTE) {
			continue
		}
		if oc.Bid < filter.MinBid {
			continue
		}
		if spot > 0 && (filter.MinMoneyness > 0 || filter.MaxMoneyness > 0) {
			m := oc.Strike / spot
			if filter.MinMoneyness > 0 && m < filter.MinMoneyness {
				continue
			}
			if filter.MaxMoneyness > 0 && m > filter.MaxMoneyness {
				continue
			}
		}
		out = append(out, oc)
	}

	return out, nil
}

// SnapshotCount returns how many finalized stock snapshots exist for a
// date. The scan phase aborts on zero.
func (c *Contract) SnapshotCount(ctx context.Context, date time.Time) (int, error) {
	return c.store.CountStocks(ctx, date)
}
