package contracts

import (
	"context"
	"time"
)

// SessionClock decides whether the system may touch live market data.
type SessionClock interface {
	Mode(now time.Time) SessionMode
	IsTradingDay(date time.Time) bool
	LockTimestamp(date time.Time) time.Time
	Session(now time.Time) TradingSession

	// EnforceLive returns ErrLiveModeViolation (wrapped) when the current
	// mode is not LIVE. Every live-only code path calls this first.
	EnforceLive(operation string) error
}

// TradingCalendar answers market-holiday lookups.
// A failed lookup is treated conservatively as "not a holiday" by the
// clock, but is logged.
type TradingCalendar interface {
	IsHoliday(date time.Time) (bool, error)
}

// MarketDataProvider is the live market-data collaborator. The core calls
// it only from the ingest phase while in LIVE mode.
type MarketDataProvider interface {
	FetchClose(ctx context.Context, symbol string, date time.Time) (float64, error)
	FetchOptionChain(ctx context.Context, symbol string, maxDTE int) ([]OptionContract, error)
}

// LiquidityQuery parameterizes the Tier-4 universe expansion.
type LiquidityQuery struct {
	MinAvgVolume   int64
	MinMarketCap   int64
	MinPrice       float64
	MaxPrice       float64
	ExcludeSymbols map[string]bool
	Limit          int
}

// LiquiditySource ranks candidate symbols for the universe expansion tier.
// Results are ordered by 20-day dollar volume descending with symbol
// ascending as the tiebreak, so the ordering is a stable total order.
type LiquiditySource interface {
	TopByDollarVolume(ctx context.Context, q LiquidityQuery) ([]string, error)
}

// EODStore is the persistence boundary for finalized snapshots. All writes
// are idempotent upserts keyed by (symbol, trade_date); lookups return
// ErrEODNotFound when no row exists.
type EODStore interface {
	GetStock(ctx context.Context, symbol string, date time.Time) (*EODStockRecord, error)
	PutStock(ctx context.Context, rec *EODStockRecord) error
	GetChain(ctx context.Context, symbol string, date time.Time) (*EODOptionsChainRecord, error)
	PutChain(ctx context.Context, rec *EODOptionsChainRecord) error

	// CountStocks supports the scan-abort and guard checks.
	CountStocks(ctx context.Context, date time.Time) (int, error)
}

// EODReader is the read-only capability handed to the scan phase. It has
// no reference to the provider type, so the scan path structurally cannot
// perform a live fetch.
type EODReader interface {
	GetMarketClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error)
	GetOptionsChain(ctx context.Context, symbol string, date time.Time) (*EODOptionsChainRecord, error)
	GetValidCallsForScan(ctx context.Context, symbol string, date time.Time, filter ScanFilter) ([]OptionContract, error)
	SnapshotCount(ctx context.Context, date time.Time) (int, error)
}

// UniverseStore persists the append-only universe version log.
type UniverseStore interface {
	Save(ctx context.Context, v *UniverseVersion) (int64, error)
	Latest(ctx context.Context) (*UniverseVersion, error)
}

// QuoteStore persists the after-hours quote cache.
type QuoteStore interface {
	Put(ctx context.Context, entry *QuoteCacheEntry) error
	Get(ctx context.Context, contractSymbol string) (*QuoteCacheEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IVHistoryStore persists the append-only IV history log.
type IVHistoryStore interface {
	// Samples returns the retained samples for symbol with a trading date
	// strictly before the given date, oldest first. The bound keeps a
	// rank computed for that date from ever seeing its own sample.
	Samples(ctx context.Context, symbol string, before time.Time) ([]IVHistorySample, error)
	Append(ctx context.Context, sample *IVHistorySample) error
	TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ScanSink receives enriched candidates from the scan phase. Scoring and
// persistence of scan outputs live behind this boundary.
type ScanSink interface {
	WriteCandidates(ctx context.Context, date time.Time, candidates []ScanCandidate) error
}
