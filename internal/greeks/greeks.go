// Package greeks computes Black-Scholes option greeks. This engine is the
// single source of truth for delta; no other code path may approximate
// delta from moneyness.
package greeks

import (
	"math"

	"github.com/hward/premia/internal/contracts"
)

const (
	// proxySigma substitutes for missing or non-positive implied vol.
	proxySigma = 0.35

	// minTimeYears floors time-to-expiry at roughly one tenth of a
	// trading day so expiring contracts never divide by zero.
	minTimeYears = 1.0 / 3650.0

	minPositive = 1e-6

	minRate = 0.001
	maxRate = 0.20

	daysPerYear = 365.0
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Engine computes Black-Scholes greeks with a configured risk-free rate.
type Engine struct {
	riskFreeRate float64
}

// NewEngine creates a greeks engine. The risk-free rate is clamped to a
// sane bound so a bad config value cannot poison every delta in a scan.
func NewEngine(riskFreeRate float64) *Engine {
	r := riskFreeRate
	if r < minRate {
		r = minRate
	}
	if r > maxRate {
		r = maxRate
	}
	return &Engine{riskFreeRate: r}
}

// RiskFreeRate returns the clamped rate in effect.
func (e *Engine) RiskFreeRate() float64 {
	return e.riskFreeRate
}

// Compute returns the four Black-Scholes greeks for a contract. A nil or
// non-positive sigma falls back to the proxy volatility and the result is
// tagged BS_PROXY_SIGMA. Degenerate inputs are clamped, never rejected:
// this function must not return NaN or panic for any input.
func (e *Engine) Compute(spot, strike, timeToExpiryYears float64, sigma *float64, optType OptionType) contracts.GreeksResult {
	source := contracts.DeltaSourceExact
	vol := proxySigma
	if sigma != nil && *sigma > 0 {
		vol = *sigma
	} else {
		source = contracts.DeltaSourceProxy
	}

	s := math.Max(spot, minPositive)
	k := math.Max(strike, minPositive)
	t := math.Max(timeToExpiryYears, minTimeYears)
	v := math.Max(vol, minPositive)
	r := e.riskFreeRate

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+v*v/2)*t) / (v * sqrtT)
	d2 := d1 - v*sqrtT

	nd1 := normPDF(d1)

	var delta, theta float64
	if optType == Put {
		delta = normCDF(d1) - 1
		theta = (-s*nd1*v/(2*sqrtT) + r*k*math.Exp(-r*t)*normCDF(-d2)) / daysPerYear
	} else {
		delta = normCDF(d1)
		theta = (-s*nd1*v/(2*sqrtT) - r*k*math.Exp(-r*t)*normCDF(d2)) / daysPerYear
	}

	gamma := nd1 / (s * v * sqrtT)
	vega := s * nd1 * sqrtT / 100 // per one vol point

	return contracts.GreeksResult{
		Delta:       sanitize(delta),
		Gamma:       sanitize(gamma),
		Theta:       sanitize(theta),
		Vega:        sanitize(vega),
		DeltaSource: source,
	}
}

// sanitize keeps the no-NaN guarantee even if an extreme input slips
// through the clamps.
func sanitize(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
