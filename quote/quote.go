// Package quote implements the Avellaneda-Stoikov optimal quoting model:
// an inventory-skewed reservation price and a half-spread split between an
// inventory-risk term and a fill-probability term, with constants
// precomputed whenever a parameter changes.
package quote

import (
	"fmt"
	"math"

	"asmm-engine/symbol"
)

// Quote is a two-sided price the engine is willing to trade at.
type Quote struct {
	Symbol   symbol.Symbol
	BidPrice float64
	AskPrice float64
	BidSize  float64
	AskSize  float64
	OrderID  uint64
}

// Mid returns the midpoint of the quote.
func (q Quote) Mid() float64 {
	return (q.BidPrice + q.AskPrice) / 2
}

// Spread returns ask minus bid.
func (q Quote) Spread() float64 {
	return q.AskPrice - q.BidPrice
}

// SpreadBps returns the spread in basis points of the quote's midpoint.
func (q Quote) SpreadBps() float64 {
	mid := q.Mid()
	if mid == 0 {
		return 0
	}
	return q.Spread() / mid * 10000
}

// Valid reports whether the quote is usable: ask strictly above bid.
func (q Quote) Valid() bool {
	return q.AskPrice > q.BidPrice
}

func (q Quote) String() string {
	return fmt.Sprintf("Quote{%s bid=%.8f ask=%.8f spread_bps=%.2f}",
		q.Symbol, q.BidPrice, q.AskPrice, q.SpreadBps())
}

// DefaultSize is the fixed unit size used for both sides of a generated
// quote, per the reference design.
const DefaultSize = 1.0

// Config holds the Avellaneda-Stoikov parameters. Volatility is typically
// overridden every tick from the live estimator rather than held static.
type Config struct {
	// RiskAversion (γ) controls how strongly the reservation price and
	// half-spread react to inventory and variance.
	RiskAversion float64
	// Volatility (σ) is the fallback used when a tick carries no live
	// estimate (≤ 0).
	Volatility float64
	// TimeHorizon (T) is the remaining horizon in seconds.
	TimeHorizon float64
	// InventoryPenalty (κ) is the order-flow intensity parameter.
	InventoryPenalty float64
	// Size is the fixed unit quote size for both sides.
	Size float64
}

// DefaultConfig mirrors the reference implementation's defaults.
func DefaultConfig() Config {
	return Config{
		RiskAversion:     0.1,
		Volatility:       0.05,
		TimeHorizon:      60.0,
		InventoryPenalty: 1.5,
		Size:             DefaultSize,
	}
}

// Generator produces Avellaneda-Stoikov quotes from precomputed constants.
// It is not safe for concurrent use without external synchronization; the
// engine owns a single instance on its single-threaded hot path.
type Generator struct {
	cfg Config

	// Precomputed on construction and on every parameter change:
	a float64 // A = γσ²
	l float64 // L = ln(1 + γ/κ)
	g float64 // G = 2/γ
}

// NewGenerator builds a Generator and computes its initial constants.
func NewGenerator(cfg Config) *Generator {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	g := &Generator{cfg: cfg}
	g.recompute()
	return g
}

func (g *Generator) recompute() {
	g.a = g.cfg.RiskAversion * g.cfg.Volatility * g.cfg.Volatility
	g.l = math.Log(1 + g.cfg.RiskAversion/g.cfg.InventoryPenalty)
	g.g = 2.0 / g.cfg.RiskAversion
}

// SetRiskAversion updates γ and recomputes the derived constants.
func (g *Generator) SetRiskAversion(gamma float64) {
	g.cfg.RiskAversion = gamma
	g.recompute()
}

// SetVolatility updates the fallback σ and recomputes the derived
// constants. The engine calls this every tick with the live estimate.
func (g *Generator) SetVolatility(sigma float64) {
	g.cfg.Volatility = sigma
	g.recompute()
}

// SetTimeHorizon updates T and recomputes the derived constants.
func (g *Generator) SetTimeHorizon(t float64) {
	g.cfg.TimeHorizon = t
	g.recompute()
}

// SetInventoryPenalty updates κ and recomputes the derived constants.
func (g *Generator) SetInventoryPenalty(kappa float64) {
	g.cfg.InventoryPenalty = kappa
	g.recompute()
}

// Config returns the generator's current parameters.
func (g *Generator) Config() Config {
	return g.cfg
}

// RiskAversion returns the generator's current γ.
func (g *Generator) RiskAversion() float64 {
	return g.cfg.RiskAversion
}

// Volatility returns the generator's configured fallback σ.
func (g *Generator) Volatility() float64 {
	return g.cfg.Volatility
}

// TimeHorizon returns the generator's current T.
func (g *Generator) TimeHorizon() float64 {
	return g.cfg.TimeHorizon
}

// InventoryPenalty returns the generator's current κ.
func (g *Generator) InventoryPenalty() float64 {
	return g.cfg.InventoryPenalty
}

// ReservationPrice returns r = m - q*A*T.
func (g *Generator) ReservationPrice(mid, inventory float64) float64 {
	return mid - inventory*g.a*g.cfg.TimeHorizon
}

// HalfSpreadSpan returns δ = A*T + G*L, the full span between bid and ask.
// volatility, when > 0, overrides the generator's configured σ for this
// call only (the per-tick live estimate); otherwise the configured
// fallback is used.
func (g *Generator) HalfSpreadSpan(volatility float64) float64 {
	vol := volatility
	if vol <= 0 {
		vol = g.cfg.Volatility
	}
	return g.cfg.RiskAversion*vol*vol*g.cfg.TimeHorizon + g.g*g.l
}

// Generate produces a two-sided quote for a given symbol, mid price,
// live volatility estimate, and current inventory.
func (g *Generator) Generate(sym symbol.Symbol, mid, volatility, inventory float64) Quote {
	reservation := g.ReservationPrice(mid, inventory)
	span := g.HalfSpreadSpan(volatility)

	return Quote{
		Symbol:   sym,
		BidPrice: reservation - span/2,
		AskPrice: reservation + span/2,
		BidSize:  g.cfg.Size,
		AskSize:  g.cfg.Size,
	}
}

// Input is one entry of a batch quoting request.
type Input struct {
	Symbol     symbol.Symbol
	Mid        float64
	Volatility float64
	Inventory  float64
}

// GenerateBatch produces quotes for a slice of inputs, semantically
// equivalent to calling Generate once per element. A zero-length input
// returns an empty, non-nil result.
func (g *Generator) GenerateBatch(inputs []Input) []Quote {
	quotes := make([]Quote, len(inputs))
	for i, in := range inputs {
		quotes[i] = g.Generate(in.Symbol, in.Mid, in.Volatility, in.Inventory)
	}
	return quotes
}

// ErrLengthMismatch is returned by GenerateParallel when the ticks and
// inventories vectors it's given don't have equal length; it is a
// programmer error, not a runtime condition to recover from.
var ErrLengthMismatch = fmt.Errorf("quote: ticks and inventories must have equal length")

// Tick is the minimal market-snapshot shape the parallel batch entry
// point needs: a symbol, a mid price, and a live volatility estimate.
type Tick struct {
	Symbol     symbol.Symbol
	Mid        float64
	Volatility float64
}

// GenerateParallel mirrors the reference design's batch entry point: two
// parallel vectors (ticks, inventories) of equal length produce one quote
// per element, semantically equivalent to calling Generate in a loop.
func (g *Generator) GenerateParallel(ticks []Tick, inventories []float64) ([]Quote, error) {
	if len(ticks) != len(inventories) {
		return nil, ErrLengthMismatch
	}
	quotes := make([]Quote, len(ticks))
	for i, t := range ticks {
		quotes[i] = g.Generate(t.Symbol, t.Mid, t.Volatility, inventories[i])
	}
	return quotes, nil
}
