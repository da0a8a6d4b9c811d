package provider

import (
	"fmt"
	"time"

	"github.com/hward/premia/internal/contracts"
)

// closeResponse is the provider's daily close payload.
type closeResponse struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
}

// chainResponse is the provider's option chain payload.
type chainResponse struct {
	Symbol    string        `json:"symbol"`
	Contracts []rawContract `json:"contracts"`
}

// rawContract is one chain entry as the feed serves it.
type rawContract struct {
	ContractSymbol string  `json:"contract_symbol"`
	Strike         float64 `json:"strike"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Expiry         string  `json:"expiry"` // YYYY-MM-DD
	OpenInterest   int64   `json:"open_interest"`
	ImpliedVol     float64 `json:"implied_volatility"`
}

// toContract converts a feed entry into a snapshot contract. Structural
// problems (no symbol, unparseable expiry) are errors; quote-quality
// problems only clear the Valid flag so the snapshot keeps the row.
func (r rawContract) toContract(now time.Time) (contracts.OptionContract, error) {
	if r.ContractSymbol == "" {
		return contracts.OptionContract{}, fmt.Errorf("missing contract symbol")
	}

	expiry, err := time.Parse("2006-01-02", r.Expiry)
	if err != nil {
		return contracts.OptionContract{}, fmt.Errorf("parse expiry %q: %w", r.Expiry, err)
	}

	dte := int(expiry.Sub(now).Hours() / 24)
	if dte < 0 {
		dte = 0
	}

	return contracts.OptionContract{
		ContractSymbol: r.ContractSymbol,
		Strike:         r.Strike,
		Bid:            r.Bid,
		Ask:            r.Ask,
		Expiry:         expiry,
		DTE:            dte,
		OpenInterest:   r.OpenInterest,
		ImpliedVol:     r.ImpliedVol,
		Valid:          r.isQuotable(expiry, now),
	}, nil
}

// isQuotable applies the quote-quality checks behind the Valid flag.
func (r rawContract) isQuotable(expiry, now time.Time) bool {
	if r.Strike <= 0 {
		return false
	}
	if !expiry.After(now) {
		return false
	}
	if r.Bid < 0 || r.Ask <= 0 {
		return false
	}
	if r.Ask < r.Bid {
		return false
	}
	return true
}
