package transport

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSimulatedEmitsWellFormedFrames(t *testing.T) {
	s := NewSimulated("BTCUSDT", 100, time.Millisecond, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var frames []string
	err := s.Run(ctx, func(f []byte) {
		frames = append(frames, string(f))
	})
	if err != context.DeadlineExceeded {
		t.Fatalf("Run returned %v, want DeadlineExceeded", err)
	}
	if len(frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	for _, f := range frames {
		for _, key := range []string{`"s":"BTCUSDT"`, `"b":"`, `"B":"`, `"a":"`, `"A":"`} {
			if !strings.Contains(f, key) {
				t.Errorf("frame %q missing key %q", f, key)
			}
		}
	}
}

func TestSimulatedDeterministicWithSameSeed(t *testing.T) {
	run := func() []string {
		s := NewSimulated("BTCUSDT", 100, time.Millisecond, 42)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		var frames []string
		_ = s.Run(ctx, func(f []byte) { frames = append(frames, string(f)) })
		return frames
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("frame counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("frame %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestSimulatedCloseStopsRun(t *testing.T) {
	s := NewSimulated("BTCUSDT", 100, time.Millisecond, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background(), func([]byte) {})
	}()
	time.Sleep(5 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error after Close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}
