// Package position implements a fixed-size, symbol-indexed position table:
// fill application (open/add/reduce/flip), continuous mark-to-market, and
// aggregate realized/unrealized P&L recomputed by summing the table.
package position

import (
	"fmt"
	"sync"

	"asmm-engine/fill"
	"asmm-engine/symbol"
)

// Position is one symbol's resident trading state: signed quantity,
// volume-weighted average entry price, and accumulated realized P&L. Its
// unrealized P&L is re-marked on every tick regardless of fills.
type Position struct {
	Symbol        symbol.Symbol
	Quantity      float64
	AveragePrice  float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

// IsLong reports whether the position is net long.
func (p Position) IsLong() bool { return p.Quantity > 0 }

// IsShort reports whether the position is net short.
func (p Position) IsShort() bool { return p.Quantity < 0 }

// IsFlat reports whether the position is net zero.
func (p Position) IsFlat() bool { return p.Quantity == 0 }

// TotalPnL returns realized plus unrealized P&L.
func (p Position) TotalPnL() float64 { return p.RealizedPnL + p.UnrealizedPnL }

func (p Position) String() string {
	dir := "FLAT"
	if p.IsLong() {
		dir = "LONG"
	} else if p.IsShort() {
		dir = "SHORT"
	}
	return fmt.Sprintf("Position{%s %s qty=%.8f avg=%.8f realized=%.8f unrealized=%.8f total=%.8f}",
		p.Symbol, dir, p.Quantity, p.AveragePrice, p.RealizedPnL, p.UnrealizedPnL, p.TotalPnL())
}

// Tracker is the process-resident, symbol-indexed position table. An
// unknown symbol silently drops the fill/mark and increments Unknown; it
// never allocates a new slot.
type Tracker struct {
	mu    sync.RWMutex
	table [symbol.Count]Position

	// Unknown counts fills/marks addressed to an unrecognized symbol.
	Unknown int
}

// NewTracker builds a Tracker with every supported symbol resident and
// flat.
func NewTracker() *Tracker {
	t := &Tracker{}
	for _, s := range symbol.All {
		t.table[s].Symbol = s
	}
	return t
}

// ApplyFill applies f to its symbol's position per the open/add/reduce/flip
// rules. An unknown symbol is dropped and counted.
func (t *Tracker) ApplyFill(f fill.Fill) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !f.Symbol.IsKnown() {
		t.Unknown++
		return
	}

	pos := &t.table[f.Symbol]
	oldQty := pos.Quantity
	oldAvg := pos.AveragePrice

	signedSize := f.Size
	if f.Side == fill.Sell {
		signedSize = -f.Size
	}
	pos.Quantity = oldQty + signedSize

	switch {
	case oldQty == 0:
		pos.AveragePrice = f.Price
	case (oldQty > 0 && f.Side == fill.Buy) || (oldQty < 0 && f.Side == fill.Sell):
		pos.AveragePrice = (absF(oldQty)*oldAvg + f.Size*f.Price) / absF(pos.Quantity)
	default:
		closed := minF(absF(oldQty), f.Size)
		if oldQty > 0 {
			pos.RealizedPnL += closed * (f.Price - oldAvg)
		} else {
			pos.RealizedPnL += closed * (oldAvg - f.Price)
		}
		if absF(oldQty) < f.Size {
			pos.AveragePrice = f.Price
		}
	}

	pos.RealizedPnL += -f.Fee
}

// Mark re-marks the unrealized P&L of sym's position to the given current
// price. An unknown symbol is dropped and counted.
func (t *Tracker) Mark(sym symbol.Symbol, currentPrice float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !sym.IsKnown() {
		t.Unknown++
		return
	}

	pos := &t.table[sym]
	switch {
	case pos.Quantity > 0:
		pos.UnrealizedPnL = pos.Quantity * (currentPrice - pos.AveragePrice)
	case pos.Quantity < 0:
		pos.UnrealizedPnL = absF(pos.Quantity) * (pos.AveragePrice - currentPrice)
	default:
		pos.UnrealizedPnL = 0
	}
}

// Position returns a snapshot of sym's resident position. Unknown symbols
// return the zero value.
func (t *Tracker) Position(sym symbol.Symbol) Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !sym.IsKnown() {
		return Position{}
	}
	return t.table[sym]
}

// RealizedPnL returns the sum of realized P&L across every symbol. The
// table is small and fixed, so this is O(|symbols|), at or below the cost
// of a single hash probe.
func (t *Tracker) RealizedPnL() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var sum float64
	for _, p := range t.table {
		sum += p.RealizedPnL
	}
	return sum
}

// UnrealizedPnL returns the sum of unrealized P&L across every symbol.
func (t *Tracker) UnrealizedPnL() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var sum float64
	for _, p := range t.table {
		sum += p.UnrealizedPnL
	}
	return sum
}

// TotalPnL returns RealizedPnL() + UnrealizedPnL().
func (t *Tracker) TotalPnL() float64 {
	return t.RealizedPnL() + t.UnrealizedPnL()
}

// Snapshot returns a copy of every resident position, in table order.
func (t *Tracker) Snapshot() [symbol.Count]Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
