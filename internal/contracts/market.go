package contracts

import "time"

// SessionMode is the market session state derived from the wall clock.
type SessionMode string

const (
	// ModeLive means the exchange session is open (or inside the
	// post-close grace window) and live fetches are permitted.
	ModeLive SessionMode = "LIVE"

	// ModeEODLocked means only finalized end-of-day snapshots may be
	// read. No code path may perform a live external fetch in this mode.
	ModeEODLocked SessionMode = "EOD_LOCKED"
)

// TradingSession is a calendar date plus derived session state.
// Computed fresh from the wall clock and holiday calendar; never persisted.
type TradingSession struct {
	Date          time.Time   `json:"date"`
	IsTradingDay  bool        `json:"is_trading_day"`
	IsWeekend     bool        `json:"is_weekend"`
	IsHoliday     bool        `json:"is_holiday"`
	CurrentMode   SessionMode `json:"current_mode"`
	LockTimestamp time.Time   `json:"lock_timestamp"`
}

// EODStockRecord is the finalized close for one symbol on one trading day.
// Once IsFinal is set, the (Symbol, TradeDate) tuple is immutable except
// through the audited override path, which produces a new IngestionRunID.
type EODStockRecord struct {
	Symbol         string    `json:"symbol"`
	TradeDate      time.Time `json:"trade_date"`
	ClosePrice     float64   `json:"close_price"`
	CloseTimestamp time.Time `json:"close_timestamp"` // fixed at the lock time for the date
	Source         string    `json:"source"`
	IngestionRunID string    `json:"ingestion_run_id"`
	IsFinal        bool      `json:"is_final"`
}

// OptionContract is one call or put entry inside a chain snapshot.
type OptionContract struct {
	ContractSymbol string    `json:"contract_symbol"`
	Strike         float64   `json:"strike"`
	Bid            float64   `json:"bid"`
	Ask            float64   `json:"ask"`
	Expiry         time.Time `json:"expiry"`
	DTE            int       `json:"dte"`
	OpenInterest   int64     `json:"open_interest"`
	ImpliedVol     float64   `json:"implied_volatility"`
	Valid          bool      `json:"valid"`
}

// EODOptionsChainRecord is the finalized option chain for one symbol on one
// trading day. TradeDate must equal the trade date of an existing final
// EODStockRecord for the same symbol.
type EODOptionsChainRecord struct {
	Symbol             string           `json:"symbol"`
	TradeDate          time.Time        `json:"trade_date"`
	StockPriceRef      float64          `json:"stock_price_ref"`
	Calls              []OptionContract `json:"calls"`
	Puts               []OptionContract `json:"puts"`
	ValidContractCount int              `json:"valid_contract_count"`
	IngestionRunID     string           `json:"ingestion_run_id"`
	IsFinal            bool             `json:"is_final"`
}

// ScanFilter constrains which calls a scan considers.
type ScanFilter struct {
	MinDTE       int
	MaxDTE       int
	MinMoneyness float64 // strike / spot lower bound
	MaxMoneyness float64 // strike / spot upper bound
	MinBid       float64
}

// TierCounts records how many symbols each universe tier contributed.
type TierCounts struct {
	SP500              int `json:"sp500"`
	NasdaqNet          int `json:"nasdaq_net"`
	ETFWhitelist       int `json:"etf_whitelist"`
	LiquidityExpansion int `json:"liquidity_expansion"`
}

// UniverseVersion is one entry in the append-only universe log.
// Symbols is the concatenation of the tiers in precedence order with no
// duplicates; versions are never overwritten, only superseded.
type UniverseVersion struct {
	VersionID  int64      `json:"version_id"`
	Symbols    []string   `json:"symbols"`
	TierCounts TierCounts `json:"tier_counts"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Quote provenance labels.
const (
	QuoteSourceLive        = "LIVE"
	QuoteSourceLastSession = "LAST_MARKET_SESSION"
)

// QuoteCacheEntry is the last valid bid/ask seen for a contract during
// market hours. The stored Source is never mutated; the read path relabels
// it when serving outside the live session.
type QuoteCacheEntry struct {
	ContractSymbol string    `json:"contract_symbol"`
	Symbol         string    `json:"symbol"`
	Strike         float64   `json:"strike"`
	Expiry         time.Time `json:"expiry"`
	Bid            float64   `json:"bid"`
	Ask            float64   `json:"ask"`
	QuoteTimestamp time.Time `json:"quote_timestamp"`
	SessionDate    time.Time `json:"session_date"`
	Source         string    `json:"source"`
}

// Quote is a provenance-labelled price served to callers.
type Quote struct {
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Age returns how stale the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

// IVHistorySample is one end-of-day representative IV reading.
// Append-only, unique per (Symbol, TradingDate).
type IVHistorySample struct {
	Symbol           string    `json:"symbol"`
	TradingDate      time.Time `json:"trading_date"`
	RepresentativeIV float64   `json:"representative_iv"`
}

// Confidence grades an IV rank result by sample depth.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// IVRankResult is the normalized position of current IV within its own
// trailing history. Every field is always populated.
type IVRankResult struct {
	IVRank       float64    `json:"iv_rank"`
	IVPercentile float64    `json:"iv_percentile"`
	Confidence   Confidence `json:"confidence"`
	Source       string     `json:"source"`
	SampleCount  int        `json:"sample_count"`
}

// DeltaSource marks whether greeks were computed from a real IV reading or
// the fixed proxy volatility.
type DeltaSource string

const (
	DeltaSourceExact DeltaSource = "BS_EXACT"
	DeltaSourceProxy DeltaSource = "BS_PROXY_SIGMA"
)

// GreeksResult holds Black-Scholes greeks for one contract. Ephemeral:
// always derivable, never persisted as ground truth.
type GreeksResult struct {
	Delta       float64     `json:"delta"`
	Gamma       float64     `json:"gamma"`
	Theta       float64     `json:"theta"` // per calendar day
	Vega        float64     `json:"vega"`  // per vol point
	DeltaSource DeltaSource `json:"delta_source"`
}

// ScanCandidate is one enriched short-call candidate produced by the scan
// phase. Scoring and weighting live in a downstream collaborator.
type ScanCandidate struct {
	Symbol     string         `json:"symbol"`
	ScanDate   time.Time      `json:"scan_date"`
	SpotClose  float64        `json:"spot_close"`
	Contract   OptionContract `json:"contract"`
	Greeks     GreeksResult   `json:"greeks"`
	IVRank     IVRankResult   `json:"iv_rank"`
}

// ScanSummary reports the outcome of one scan run.
type ScanSummary struct {
	ScanDate   time.Time `json:"scan_date"`
	Scanned    int       `json:"scanned"`
	Skipped    int       `json:"skipped"`
	Candidates int       `json:"candidates"`
	Aborted    bool      `json:"aborted"`
}
