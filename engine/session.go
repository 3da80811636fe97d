package engine

import (
	"fmt"
	"time"
)

// Session records the bookkeeping an operator needs to find a run again:
// when it started, what it was running, and how it ended. It mirrors the
// run/session row a TimescaleDB-backed deployment would insert at start
// and update at stop.
type Session struct {
	ID              string
	Symbol          string
	StartTime       time.Time
	DurationBudget  time.Duration
	AlgorithmParams string
	EndTime         time.Time
	Status          string // "running", "completed", "stopped"
	FinalStats      string
}

// NewSession generates a session ID from the current time, in the same
// sim_YYYYMMDD_HHMMSS_mmm shape a deployment's logs use to correlate a run
// with its database rows.
func NewSession(symbol string, duration time.Duration, algorithmParams string, now time.Time) Session {
	return Session{
		ID:              fmt.Sprintf("sim_%s_%03d", now.UTC().Format("20060102_150405"), now.Nanosecond()/1e6),
		Symbol:          symbol,
		StartTime:       now,
		DurationBudget:  duration,
		AlgorithmParams: algorithmParams,
		Status:          "running",
	}
}

// Finish marks the session ended at now with the given terminal status and
// a compact final-stats string, matching the fields the original engine's
// UPDATE statement populated on completion.
func (s Session) Finish(now time.Time, status string, totalPnL, realizedPnL, unrealizedPnL float64, fillCount, quoteCount int, finalPosition float64) Session {
	s.EndTime = now
	s.Status = status
	s.FinalStats = fmt.Sprintf(
		"total_pnl=%.6f,realized_pnl=%.6f,unrealized_pnl=%.6f,fill_count=%d,quote_count=%d,final_position=%.8f",
		totalPnL, realizedPnL, unrealizedPnL, fillCount, quoteCount, finalPosition,
	)
	return s
}
