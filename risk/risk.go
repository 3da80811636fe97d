// Package risk implements the two safety mechanisms that sit between quote
// generation and fill simulation: a cumulative P&L kill switch, and
// inventory-proportional spread widening that preserves the quote's
// midpoint.
package risk

import (
	"math"
	"sync"

	"asmm-engine/quote"
)

// DefaultKillSwitchThreshold is the cumulative total P&L, in quote
// currency, at or below which the engine stops quoting.
const DefaultKillSwitchThreshold = -10.0

// DefaultMaxInventory is the inventory magnitude treated as 100% of
// capacity when computing the widening ratio ρ.
const DefaultMaxInventory = 0.1

// DefaultMaxSpreadMultiplier (M) bounds how far the half-spread can widen
// as inventory approaches max capacity.
const DefaultMaxSpreadMultiplier = 3.0

// Gate holds the risk-control configuration and is applied once per
// quoting step, strictly before fill simulation can run. Its thresholds
// can be updated from an ambient config reload goroutine while the
// engine's hot-path goroutine reads them concurrently, so every access
// goes through the mutex.
type Gate struct {
	mu                  sync.RWMutex
	killSwitchThreshold float64
	maxInventory        float64
	maxSpreadMultiplier float64
}

// NewGate builds a Gate with the reference defaults.
func NewGate() *Gate {
	return &Gate{
		killSwitchThreshold: DefaultKillSwitchThreshold,
		maxInventory:        DefaultMaxInventory,
		maxSpreadMultiplier: DefaultMaxSpreadMultiplier,
	}
}

// NewGateWithThresholds builds a Gate from explicit thresholds, falling
// back to the reference defaults for any non-positive maxInventory.
func NewGateWithThresholds(killSwitchThreshold, maxInventory, maxSpreadMultiplier float64) *Gate {
	g := NewGate()
	g.killSwitchThreshold = killSwitchThreshold
	if maxInventory > 0 {
		g.maxInventory = maxInventory
	}
	g.maxSpreadMultiplier = maxSpreadMultiplier
	return g
}

// KillSwitchThreshold returns the current kill switch threshold.
func (g *Gate) KillSwitchThreshold() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.killSwitchThreshold
}

// SetKillSwitchThreshold updates the kill switch threshold.
func (g *Gate) SetKillSwitchThreshold(threshold float64) {
	g.mu.Lock()
	g.killSwitchThreshold = threshold
	g.mu.Unlock()
}

// MaxInventory returns the current inventory-capacity denominator.
func (g *Gate) MaxInventory() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxInventory
}

// SetMaxInventory updates the inventory-capacity denominator.
func (g *Gate) SetMaxInventory(maxInventory float64) {
	g.mu.Lock()
	g.maxInventory = maxInventory
	g.mu.Unlock()
}

// MaxSpreadMultiplier returns the current widening bound.
func (g *Gate) MaxSpreadMultiplier() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxSpreadMultiplier
}

// SetMaxSpreadMultiplier updates the widening bound.
func (g *Gate) SetMaxSpreadMultiplier(multiplier float64) {
	g.mu.Lock()
	g.maxSpreadMultiplier = multiplier
	g.mu.Unlock()
}

// ShouldStop reports whether cumulative total P&L has crossed the kill
// switch threshold. Callers must check this before generating a new fill
// for the step; a true result means the engine should cease quoting and
// begin a graceful shutdown.
func (g *Gate) ShouldStop(totalPnL float64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return totalPnL <= g.killSwitchThreshold
}

// WidenForInventory returns q with inventory-proportional spread widening
// applied, preserving q's midpoint; the caller's q is not modified. ρ = |inventory| / MaxInventory; widening
// only occurs when ρ > 0.5.
func (g *Gate) WidenForInventory(q quote.Quote, inventory float64) quote.Quote {
	g.mu.RLock()
	maxInventory := g.maxInventory
	maxSpreadMultiplier := g.maxSpreadMultiplier
	g.mu.RUnlock()

	if maxInventory <= 0 {
		return q
	}
	ratio := math.Abs(inventory) / maxInventory
	if ratio <= 0.5 {
		return q
	}

	multiplier := 1 + (ratio-0.5)*maxSpreadMultiplier
	currentSpread := q.Spread()
	newSpread := currentSpread * multiplier
	adjustment := (newSpread - currentSpread) / 2

	q.BidPrice -= adjustment
	q.AskPrice += adjustment
	return q
}
