// Package latency is a process-wide, operation-keyed timing registry:
// count/sum/min/max plus a bounded ring of recent samples for percentile
// reporting. The map of operations is guarded by a read-write lock, and
// each operation's Stats carries its own mutex, taken on every recorded
// sample and every read.
package latency

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaxSamples bounds the ring of recent samples kept per operation; the
// oldest sample is evicted once this many are held.
const MaxSamples = 1000

// Stats holds the running statistics for a single operation.
type Stats struct {
	mu      sync.Mutex
	name    string
	count   int64
	sumNs   int64
	minNs   int64
	maxNs   int64
	samples []int64
}

func newStats(name string) *Stats {
	return &Stats{name: name, minNs: math.MaxInt64}
}

func (s *Stats) addSample(ns int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.sumNs += ns
	if ns < s.minNs {
		s.minNs = ns
	}
	if ns > s.maxNs {
		s.maxNs = ns
	}

	s.samples = append(s.samples, ns)
	if len(s.samples) > MaxSamples {
		s.samples = s.samples[1:]
	}
}

// AvgNs returns the running mean latency in nanoseconds.
func (s *Stats) AvgNs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return 0
	}
	return float64(s.sumNs) / float64(s.count)
}

// Count, MinNs, MaxNs expose the running aggregates.
func (s *Stats) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Stats) MinNs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return 0
	}
	return s.minNs
}

func (s *Stats) MaxNs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxNs
}

// Percentile sorts a copy of the current sample ring and returns the
// element at floor(p * n), clamped to the last valid index. Returns 0 if
// no samples have been recorded.
func (s *Stats) Percentile(p float64) float64 {
	s.mu.Lock()
	samples := make([]int64, len(s.samples))
	copy(samples, s.samples)
	s.mu.Unlock()

	if len(samples) == 0 {
		return 0
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	idx := int(math.Floor(p * float64(len(samples))))
	if idx >= len(samples) {
		idx = len(samples) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return float64(samples[idx])
}

func (s *Stats) String() string {
	return fmt.Sprintf("%s: count=%d avg=%.2fus min=%.2fus max=%.2fus p50=%.2fus p95=%.2fus p99=%.2fus",
		s.name, s.Count(), s.AvgNs()/1000, float64(s.MinNs())/1000, float64(s.MaxNs())/1000,
		s.Percentile(0.50)/1000, s.Percentile(0.95)/1000, s.Percentile(0.99)/1000)
}

// histogramVec is observed alongside the spec's own percentile ring so the
// same per-stage timings are visible on a Prometheus scrape.
var histogramVec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "asmm_stage_latency_seconds",
	Help:    "Per-stage processing latency of the market-making pipeline.",
	Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
}, []string{"operation"})

// Meter is the process-wide registry. It may be globally disabled to
// eliminate recording overhead.
type Meter struct {
	mu      sync.RWMutex
	ops     map[string]*Stats
	enabled bool
}

// NewMeter builds an enabled, empty Meter.
func NewMeter() *Meter {
	return &Meter{ops: make(map[string]*Stats), enabled: true}
}

// SetEnabled toggles whether Record and Start do any work.
func (m *Meter) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Enabled reports whether the meter is currently recording.
func (m *Meter) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// statsFor returns the Stats for operation, creating it lazily.
func (m *Meter) statsFor(operation string) *Stats {
	m.mu.RLock()
	s, ok := m.ops[operation]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.ops[operation]; ok {
		return s
	}
	s = newStats(operation)
	m.ops[operation] = s
	return s
}

// Record adds one latency sample for operation, a no-op when disabled.
func (m *Meter) Record(operation string, d time.Duration) {
	if !m.Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.statsFor(operation).addSample(ns)
	histogramVec.WithLabelValues(operation).Observe(d.Seconds())
}

// Start begins timing operation and returns a function that records the
// elapsed duration when called, the Go analogue of the reference design's
// RAII scoped timer: `defer meter.Start("stage")()`.
func (m *Meter) Start(operation string) func() {
	if !m.Enabled() {
		return func() {}
	}
	begin := time.Now()
	return func() {
		m.Record(operation, time.Since(begin))
	}
}

// Stats returns the Stats for operation, or nil if nothing has been
// recorded for it yet.
func (m *Meter) Stats(operation string) *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ops[operation]
}

// Report renders every registered operation's statistics, one per line.
func (m *Meter) Report() string {
	m.mu.RLock()
	names := make([]string, 0, len(m.ops))
	for name := range m.ops {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	out := ""
	for _, name := range names {
		out += m.Stats(name).String() + "\n"
	}
	return out
}

// Reset clears every operation's statistics.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = make(map[string]*Stats)
}

// Collector returns the Prometheus collector the meter feeds, for
// registration against a metrics registry.
func Collector() prometheus.Collector {
	return histogramVec
}
