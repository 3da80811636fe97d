package transport

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Simulated is a deterministic, seedable Source that generates its own
// random-walk top-of-book frames rather than connecting to a venue. It is
// the default source for local runs and the one used by tests.
type Simulated struct {
	symbol   string
	interval time.Duration
	rng      *rand.Rand

	mid      float64
	halfTick float64
	closed   chan struct{}
}

// NewSimulated builds a Simulated source around symbol, emitting one frame
// every interval starting from startMid, seeded for deterministic replay.
func NewSimulated(symbol string, startMid float64, interval time.Duration, seed uint64) *Simulated {
	return &Simulated{
		symbol:   symbol,
		interval: interval,
		rng:      rand.New(rand.NewPCG(seed, seed^0xabad1dea)),
		mid:      startMid,
		halfTick: startMid * 1e-5,
		closed:   make(chan struct{}),
	}
}

// Run emits frames until ctx is canceled.
func (s *Simulated) Run(ctx context.Context, handler Handler) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case <-ticker.C:
			handler(s.nextFrame())
		}
	}
}

// Close stops further frame generation.
func (s *Simulated) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func (s *Simulated) nextFrame() []byte {
	step := (s.rng.Float64() - 0.5) * s.mid * 2e-4
	s.mid += step
	if s.mid <= 0 {
		s.mid = 1
	}
	spread := s.mid * 1e-4
	bid := s.mid - spread/2
	ask := s.mid + spread/2
	bidSize := 0.5 + s.rng.Float64()
	askSize := 0.5 + s.rng.Float64()

	return []byte(fmt.Sprintf(
		`{"s":"%s","b":"%.8f","B":"%.8f","a":"%.8f","A":"%.8f"}`,
		s.symbol, bid, bidSize, ask, askSize,
	))
}
