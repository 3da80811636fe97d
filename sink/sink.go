// Package sink batches tick, quote, and stat rows per row-type and flushes
// size-capped batches to an external append-only store, tolerating
// transient flush failures by logging and continuing.
package sink

import (
	"sync"

	"asmm-engine/logging"
)

// DefaultBatchSize is the target buffer size that triggers an automatic
// flush for a row-type.
const DefaultBatchSize = 50

// TickRow is one row of the ticks table.
type TickRow struct {
	Time      string
	Symbol    string
	Bid       float64
	BidSize   float64
	Ask       float64
	AskSize   float64
	Spread    float64
	Mid       float64
	SessionID string
}

// QuoteRow is one row of the quotes table.
type QuoteRow struct {
	Time       string
	Symbol     string
	OurBid     float64
	OurAsk     float64
	OurSpread  float64
	SpreadBps  float64
	MarketMid  float64
	Position   float64
	AvgEntry   float64
	Volatility float64
	// Notional is the resting two-sided quote's total exposure
	// (BidSize*BidPrice + AskSize*AskPrice).
	Notional  float64
	SessionID string
}

// StatRow is one row of the stats table.
type StatRow struct {
	Time          string
	Symbol        string
	Position      float64
	AvgEntry      float64
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
	FillCount     int64
	QuoteCount    int64
	FillRate      float64
	// Notional is the cumulative notional value of all fills this session.
	Notional  float64
	SessionID string
}

// Store is the external append-only sink the batcher flushes into. A
// flush error is treated as transient by the batcher: logged, and the
// buffer is cleared rather than retried.
type Store interface {
	AppendTicks(rows []TickRow) error
	AppendQuotes(rows []QuoteRow) error
	AppendStats(rows []StatRow) error
}

// Batcher buffers rows per row-type and flushes to Store when a buffer
// reaches its target size or on an explicit Flush call.
type Batcher struct {
	mu sync.Mutex

	store     Store
	logger    *logging.Logger
	batchSize int

	ticks  []TickRow
	quotes []QuoteRow
	stats  []StatRow

	// TickFlushes counts completed tick-row flushes, exposed for tests and
	// status reporting (invariant 6: after n ticks the batcher has emitted
	// floor(n/batch_size) flushes, modulo the trailing partial batch).
	TickFlushes int
}

// NewBatcher builds a Batcher with the given target batch size (falling
// back to DefaultBatchSize when non-positive).
func NewBatcher(store Store, logger *logging.Logger, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{store: store, logger: logger, batchSize: batchSize}
}

// AppendTick buffers a tick row, flushing immediately if the buffer has
// reached its target size.
func (b *Batcher) AppendTick(row TickRow) {
	b.mu.Lock()
	b.ticks = append(b.ticks, row)
	full := len(b.ticks) >= b.batchSize
	b.mu.Unlock()
	if full {
		b.flushTicks()
	}
}

// AppendQuote buffers a quote row, flushing immediately if full.
func (b *Batcher) AppendQuote(row QuoteRow) {
	b.mu.Lock()
	b.quotes = append(b.quotes, row)
	full := len(b.quotes) >= b.batchSize
	b.mu.Unlock()
	if full {
		b.flushQuotes()
	}
}

// AppendStat buffers a stat row, flushing immediately if full.
func (b *Batcher) AppendStat(row StatRow) {
	b.mu.Lock()
	b.stats = append(b.stats, row)
	full := len(b.stats) >= b.batchSize
	b.mu.Unlock()
	if full {
		b.flushStats()
	}
}

func (b *Batcher) flushTicks() {
	b.mu.Lock()
	rows := b.ticks
	b.ticks = nil
	b.mu.Unlock()

	if len(rows) == 0 {
		return
	}
	if err := b.store.AppendTicks(rows); err != nil {
		b.logFailure("ticks", len(rows), err)
		return
	}
	b.mu.Lock()
	b.TickFlushes++
	b.mu.Unlock()
}

func (b *Batcher) flushQuotes() {
	b.mu.Lock()
	rows := b.quotes
	b.quotes = nil
	b.mu.Unlock()

	if len(rows) == 0 {
		return
	}
	if err := b.store.AppendQuotes(rows); err != nil {
		b.logFailure("quotes", len(rows), err)
	}
}

func (b *Batcher) flushStats() {
	b.mu.Lock()
	rows := b.stats
	b.stats = nil
	b.mu.Unlock()

	if len(rows) == 0 {
		return
	}
	if err := b.store.AppendStats(rows); err != nil {
		b.logFailure("stats", len(rows), err)
	}
}

func (b *Batcher) logFailure(rowType string, rows int, err error) {
	if b.logger != nil {
		b.logger.LogSinkFailure(rowType, rows, err)
	}
}

// Flush forces a flush of every row-type regardless of whether the target
// size has been reached, for shutdown or a session transition. Unflushed
// rows are not retained across a hard termination; this is the one
// opportunity to emit them.
func (b *Batcher) Flush() {
	b.flushTicks()
	b.flushQuotes()
	b.flushStats()
}

// SetBatchSize updates the target batch size, for ambient config reload.
// Already-buffered rows are left in place; the new size takes effect on
// the next Append call.
func (b *Batcher) SetBatchSize(size int) {
	if size <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batchSize = size
}

// PendingCounts reports how many rows of each type are currently buffered,
// for status reporting.
func (b *Batcher) PendingCounts() (ticks, quotes, stats int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ticks), len(b.quotes), len(b.stats)
}
