package contracts

import "errors"

// Error taxonomy for the snapshot pipeline.
//
// Individual-symbol failures during a batch are counted and logged, never
// fatal to the batch. Batch-level failures (store unreachable, trading-day
// status undeterminable) abort the run and are retried by the scheduler's
// guard job.
var (
	// ErrEODNotFound means no final snapshot exists for the requested
	// (symbol, date). Callers must treat this as "cannot scan this symbol
	// today", never substitute stale or live data.
	ErrEODNotFound = errors.New("no final EOD record for symbol and date")

	// ErrStockEODNotFound is the alignment failure: an options chain was
	// requested for a date with no finalized stock close for the symbol.
	ErrStockEODNotFound = errors.New("no final stock EOD record to align options chain against")

	// ErrLiveModeViolation flags a live fetch or ingest attempted while
	// EOD_LOCKED. This is a programming-contract violation, surfaced
	// loudly because it signals a potential data-integrity bug.
	ErrLiveModeViolation = errors.New("live-mode operation attempted while EOD_LOCKED")

	// ErrNoValidQuote means neither a live nor a cached positive quote is
	// available. An honest "unavailable", never a fabricated price.
	ErrNoValidQuote = errors.New("no valid quote available")

	// ErrScanAborted means the scan found zero snapshot rows for its date
	// and refused to run on stale or partial data.
	ErrScanAborted = errors.New("scan aborted: no finalized snapshots for date")

	// ErrUniverseEmpty means no universe version has been persisted yet.
	ErrUniverseEmpty = errors.New("no universe version available")
)

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEODNotFound) || errors.Is(err, ErrStockEODNotFound)
}
