// Package fill simulates passive maker fills against a public top-of-book
// when the engine's quote is competitive, using a seedable uniform draw so
// runs are deterministically replayable.
package fill

import (
	"fmt"
	"math/rand/v2"
	"time"

	"asmm-engine/quote"
	"asmm-engine/symbol"
)

// Side identifies which side of a quote produced a fill.
type Side int

const (
	Buy  Side = iota // the engine bought, i.e. its bid was hit
	Sell             // the engine sold, i.e. its ask was lifted
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Fill is a single simulated trade against one side of an engine quote.
type Fill struct {
	Symbol  symbol.Symbol
	Side    Side
	Price   float64
	Size    float64
	OrderID uint64
	// Fee is negative for a maker rebate, which increases realized P&L.
	Fee float64
}

// NotionalValue returns price * size.
func (f Fill) NotionalValue() float64 {
	return f.Price * f.Size
}

// EffectiveSpread returns the round-trip cost implied by this fill against
// a reference price (typically the market mid at fill time): twice the
// absolute distance between the fill price and the reference.
func (f Fill) EffectiveSpread(referencePrice float64) float64 {
	d := f.Price - referencePrice
	if d < 0 {
		d = -d
	}
	return d * 2
}

// SlippageBps returns the absolute distance between the fill price and a
// reference price, in basis points of the reference. Returns 0 for a
// non-positive reference.
func (f Fill) SlippageBps(referencePrice float64) float64 {
	if referencePrice <= 0 {
		return 0
	}
	d := f.Price - referencePrice
	if d < 0 {
		d = -d
	}
	return d / referencePrice * 10000
}

func (f Fill) String() string {
	return fmt.Sprintf("Fill{%s %s price=%.8f size=%.8f fee=%.8f}", f.Symbol, f.Side, f.Price, f.Size, f.Fee)
}

// Competitiveness is the relative-distance threshold under which a quoted
// price is considered at-or-better-than the public top-of-book. The
// comparison is strict: exactly 10⁻³ does not qualify.
const Competitiveness = 1e-3

// DefaultSize is the fixed quantity used for every simulated fill.
const DefaultSize = 0.01

// RebateRate is the maker rebate applied to a fill's notional value; the
// resulting fee is negative (a rebate increases realized P&L).
const RebateRate = 1e-4

// BidDrawCeiling is the uniform-draw upper bound (exclusive comparison:
// u < BidDrawCeiling) that triggers a bid-side fill.
const BidDrawCeiling = 0.05

// AskDrawFloor is the uniform-draw lower bound (exclusive comparison:
// u > AskDrawFloor) that triggers an ask-side fill.
const AskDrawFloor = 0.95

// Simulator draws a single uniform variate per quoting step and decides
// whether either side of the quote is hit. It owns its own seeded source
// so runs are reproducible independent of any other randomness in the
// process.
type Simulator struct {
	rng     *rand.Rand
	size    float64
	orderID uint64
}

// NewSimulator builds a Simulator seeded from the current time. Use
// NewSimulatorSeeded for deterministic replay.
func NewSimulator() *Simulator {
	return NewSimulatorSeeded(uint64(time.Now().UnixNano()))
}

// NewSimulatorSeeded builds a Simulator with an explicit seed, the
// deterministic-replay entry point §8's scenarios depend on.
func NewSimulatorSeeded(seed uint64) *Simulator {
	return &Simulator{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		size: DefaultSize,
	}
}

// nextOrderID hands out a monotonically increasing id for simulated fills.
func (s *Simulator) nextOrderID() uint64 {
	s.orderID++
	return s.orderID
}

// competitive reports whether quoted is within the relative-distance
// competitiveness band of public. The comparison is strict.
func competitive(quoted, public float64) bool {
	if public == 0 {
		return false
	}
	diff := quoted - public
	if diff < 0 {
		diff = -diff
	}
	return diff/public < Competitiveness
}

// Simulate checks competitiveness of both sides of q against the public
// bid/ask, draws one uniform variate, and returns zero or one fill. Both
// sides are tested against the same draw; since the tail zones are
// disjoint, at most one side fires per step.
// It is the caller's responsibility to only call this for a valid quote.
func (s *Simulator) Simulate(q quote.Quote, publicBid, publicAsk float64) []Fill {
	u := s.rng.Float64()

	bidCompetitive := competitive(q.BidPrice, publicBid)
	askCompetitive := competitive(q.AskPrice, publicAsk)

	var fills []Fill

	if bidCompetitive && u < BidDrawCeiling {
		rebate := q.BidPrice * s.size * RebateRate
		fills = append(fills, Fill{
			Symbol:  q.Symbol,
			Side:    Buy,
			Price:   q.BidPrice,
			Size:    s.size,
			OrderID: s.nextOrderID(),
			Fee:     -rebate,
		})
	}

	if askCompetitive && u > AskDrawFloor {
		rebate := q.AskPrice * s.size * RebateRate
		fills = append(fills, Fill{
			Symbol:  q.Symbol,
			Side:    Sell,
			Price:   q.AskPrice,
			Size:    s.size,
			OrderID: s.nextOrderID(),
			Fee:     -rebate,
		})
	}

	return fills
}
