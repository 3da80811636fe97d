// Package volatility maintains an exponentially weighted estimate of
// annualized return volatility from a sequence of mid prices.
package volatility

import "math"

// AnnualizationFactor encodes the one-second inter-arrival assumption:
// 252 trading days times the number of seconds in a day.
const AnnualizationFactor = 252 * 86400

// DefaultAlpha is the EWMA smoothing factor, giving roughly a 4-second
// half-life on one-second ticks (0.85^4.3 ≈ 0.5).
const DefaultAlpha = 0.15

// DefaultFloor is the minimum annualized volatility ever reported, so a
// quiet market doesn't collapse the quote generator's half-spread to the
// fill-probability term alone.
const DefaultFloor = 0.02

// DefaultInitial is the volatility reported before the estimator has seen
// a second valid price (i.e. before the first variance update).
const DefaultInitial = 0.05

// Estimator is a pure EWMA variance-of-log-returns volatility tracker. The
// first Update call only latches the starting price; no variance update
// occurs until the second valid price arrives. Given the same sequence of
// valid prices it always produces the same σ path.
type Estimator struct {
	alpha       float64
	floor       float64
	current     float64
	variance    float64
	lastPrice   float64
	initialized bool
}

// NewEstimator builds an estimator with the given smoothing factor and
// floor. A non-positive alpha or floor falls back to the package default.
func NewEstimator(alpha, floor float64) *Estimator {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &Estimator{
		alpha:   alpha,
		floor:   floor,
		current: DefaultInitial,
	}
}

// Update advances the estimator with the next observed price. Prices ≤ 0
// are degenerate inputs per the estimator's contract: they are silently
// skipped and the state is left unchanged.
func (e *Estimator) Update(price float64) {
	if price <= 0 {
		return
	}
	if !e.initialized {
		e.lastPrice = price
		e.initialized = true
		return
	}

	logReturn := math.Log(price / e.lastPrice)
	variance := logReturn * logReturn
	e.variance = e.alpha*variance + (1-e.alpha)*e.variance
	e.current = math.Max(e.floor, math.Sqrt(e.variance*AnnualizationFactor))
	e.lastPrice = price
}

// Volatility returns the current annualized volatility estimate.
func (e *Estimator) Volatility() float64 {
	return e.current
}

// Variance returns the raw EWMA variance of log returns.
func (e *Estimator) Variance() float64 {
	return e.variance
}

// Initialized reports whether the estimator has latched its starting price.
func (e *Estimator) Initialized() bool {
	return e.initialized
}
