package sink

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"asmm-engine/logging"
)

type countingStore struct {
	mu          sync.Mutex
	tickBatches [][]TickRow
	failNext    bool
}

func (s *countingStore) AppendTicks(rows []TickRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("transient failure")
	}
	batch := make([]TickRow, len(rows))
	copy(batch, rows)
	s.tickBatches = append(s.tickBatches, batch)
	return nil
}
func (s *countingStore) AppendQuotes(rows []QuoteRow) error { return nil }
func (s *countingStore) AppendStats(rows []StatRow) error   { return nil }

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return &logging.Logger{Logger: zap.NewNop()}
}

func TestFlushesWhenBatchSizeReached(t *testing.T) {
	store := &countingStore{}
	b := NewBatcher(store, testLogger(t), 3)

	for i := 0; i < 3; i++ {
		b.AppendTick(TickRow{Symbol: "BTCUSDT"})
	}

	store.mu.Lock()
	n := len(store.tickBatches)
	store.mu.Unlock()
	if n != 1 {
		t.Fatalf("batches flushed = %d, want 1", n)
	}
	if b.TickFlushes != 1 {
		t.Errorf("TickFlushes = %d, want 1", b.TickFlushes)
	}
}

func TestScenarioFBatchFlush(t *testing.T) {
	// 123 ticks at batch size 50: 2 full flushes during the run.
	store := &countingStore{}
	b := NewBatcher(store, testLogger(t), 50)

	for i := 0; i < 123; i++ {
		b.AppendTick(TickRow{Symbol: "BTCUSDT"})
	}
	if b.TickFlushes != 2 {
		t.Errorf("flushes during run = %d, want 2", b.TickFlushes)
	}
	ticksPending, _, _ := b.PendingCounts()
	if ticksPending != 23 {
		t.Errorf("pending ticks = %d, want 23", ticksPending)
	}

	b.Flush()
	if b.TickFlushes != 3 {
		t.Errorf("flushes after shutdown flush = %d, want 3", b.TickFlushes)
	}
}

func TestFlushFailureClearsBufferAndContinues(t *testing.T) {
	store := &countingStore{failNext: true}
	b := NewBatcher(store, testLogger(t), 2)

	b.AppendTick(TickRow{Symbol: "BTCUSDT"})
	b.AppendTick(TickRow{Symbol: "BTCUSDT"}) // triggers flush -> fails

	ticksPending, _, _ := b.PendingCounts()
	if ticksPending != 0 {
		t.Errorf("pending ticks after failed flush = %d, want 0 (buffer cleared)", ticksPending)
	}
	if b.TickFlushes != 0 {
		t.Errorf("TickFlushes after failure = %d, want 0", b.TickFlushes)
	}

	// Pipeline continues: subsequent appends still work.
	b.AppendTick(TickRow{Symbol: "BTCUSDT"})
	b.AppendTick(TickRow{Symbol: "BTCUSDT"})
	if b.TickFlushes != 1 {
		t.Errorf("TickFlushes after recovery = %d, want 1", b.TickFlushes)
	}
}

func TestFlushOnEmptyBuffersIsNoop(t *testing.T) {
	store := &countingStore{}
	b := NewBatcher(store, testLogger(t), 50)
	b.Flush()
	if b.TickFlushes != 0 {
		t.Errorf("TickFlushes = %d, want 0", b.TickFlushes)
	}
}
