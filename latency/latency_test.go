package latency

import (
	"testing"
	"time"
)

func TestRecordUpdatesAggregates(t *testing.T) {
	m := NewMeter()
	m.Record("parse", 10*time.Microsecond)
	m.Record("parse", 30*time.Microsecond)
	m.Record("parse", 20*time.Microsecond)

	s := m.Stats("parse")
	if s.Count() != 3 {
		t.Errorf("count = %d, want 3", s.Count())
	}
	if s.MinNs() != 10000 {
		t.Errorf("min = %d, want 10000", s.MinNs())
	}
	if s.MaxNs() != 30000 {
		t.Errorf("max = %d, want 30000", s.MaxNs())
	}
}

func TestAvgBetweenMinAndMax(t *testing.T) {
	m := NewMeter()
	for _, d := range []time.Duration{5 * time.Microsecond, 15 * time.Microsecond, 25 * time.Microsecond} {
		m.Record("op", d)
	}
	s := m.Stats("op")
	avg := s.AvgNs()
	if avg < float64(s.MinNs()) || avg > float64(s.MaxNs()) {
		t.Errorf("avg %v not within [min=%v, max=%v]", avg, s.MinNs(), s.MaxNs())
	}
}

func TestRingNeverExceedsMaxSamples(t *testing.T) {
	m := NewMeter()
	for i := 0; i < MaxSamples+500; i++ {
		m.Record("busy", time.Nanosecond)
	}
	s := m.Stats("busy")
	s.mu.Lock()
	n := len(s.samples)
	s.mu.Unlock()
	if n != MaxSamples {
		t.Errorf("ring length = %d, want %d", n, MaxSamples)
	}
	if s.Count() != int64(MaxSamples+500) {
		t.Errorf("count = %d, want %d (count tracks all samples, not just the ring)", s.Count(), MaxSamples+500)
	}
}

func TestPercentileOnEmptyRingIsZero(t *testing.T) {
	m := NewMeter()
	if got := m.Stats("never-recorded"); got != nil {
		t.Errorf("expected nil stats for unrecorded operation, got %v", got)
	}
	if got := newStats("empty").Percentile(0.5); got != 0 {
		t.Errorf("Percentile on empty ring = %v, want 0", got)
	}
}

func TestDisabledMeterRecordsNothing(t *testing.T) {
	m := NewMeter()
	m.SetEnabled(false)
	m.Record("op", time.Microsecond)
	if m.Stats("op") != nil {
		t.Error("expected no stats entry when disabled")
	}
}

func TestStartReturnsRecordingCloser(t *testing.T) {
	m := NewMeter()
	stop := m.Start("stage")
	time.Sleep(time.Microsecond)
	stop()

	s := m.Stats("stage")
	if s == nil || s.Count() != 1 {
		t.Error("expected one recorded sample from Start/stop")
	}
}

func TestPercentileOrdering(t *testing.T) {
	m := NewMeter()
	for i := 1; i <= 100; i++ {
		m.Record("p", time.Duration(i)*time.Microsecond)
	}
	s := m.Stats("p")
	p50 := s.Percentile(0.50)
	p99 := s.Percentile(0.99)
	if p99 < p50 {
		t.Errorf("p99 (%v) should be >= p50 (%v)", p99, p50)
	}
}
