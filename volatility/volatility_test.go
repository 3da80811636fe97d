package volatility

import (
	"math"
	"testing"
)

func TestFirstUpdateLatchesWithoutVarianceChange(t *testing.T) {
	e := NewEstimator(DefaultAlpha, DefaultFloor)
	e.Update(100)
	if !e.Initialized() {
		t.Fatal("expected estimator to be initialized after first update")
	}
	if e.Variance() != 0 {
		t.Errorf("variance after first update = %v, want 0", e.Variance())
	}
	if e.Volatility() != DefaultInitial {
		t.Errorf("volatility after first update = %v, want default initial %v", e.Volatility(), DefaultInitial)
	}
}

func TestUpdateAppliesFloor(t *testing.T) {
	e := NewEstimator(DefaultAlpha, DefaultFloor)
	e.Update(100)
	e.Update(100.0001) // tiny return -> floor should dominate
	if e.Volatility() < DefaultFloor {
		t.Errorf("volatility = %v, should never fall below floor %v", e.Volatility(), DefaultFloor)
	}
}

func TestUpdateMatchesClosedForm(t *testing.T) {
	e := NewEstimator(0.15, 0.02)
	e.Update(100)
	e.Update(101)

	logReturn := math.Log(101.0 / 100.0)
	wantVariance := 0.15 * logReturn * logReturn
	if math.Abs(e.Variance()-wantVariance) > 1e-12 {
		t.Errorf("variance = %v, want %v", e.Variance(), wantVariance)
	}
	wantVol := math.Max(0.02, math.Sqrt(wantVariance*AnnualizationFactor))
	if math.Abs(e.Volatility()-wantVol) > 1e-9 {
		t.Errorf("volatility = %v, want %v", e.Volatility(), wantVol)
	}
}

func TestNonPositivePriceSkipped(t *testing.T) {
	e := NewEstimator(DefaultAlpha, DefaultFloor)
	e.Update(100)
	e.Update(101)
	before := e.Volatility()
	e.Update(0)
	e.Update(-5)
	if e.Volatility() != before {
		t.Errorf("volatility changed after degenerate input: before=%v after=%v", before, e.Volatility())
	}
}

func TestMonotoneInLogReturnMagnitudeModuloFloor(t *testing.T) {
	small := NewEstimator(0.15, 0.0) // disable floor to test raw monotonicity
	small.Update(100)
	small.Update(100.1)

	large := NewEstimator(0.15, 0.0)
	large.Update(100)
	large.Update(110)

	if large.Volatility() <= small.Volatility() {
		t.Errorf("expected larger log-return to produce larger volatility: small=%v large=%v", small.Volatility(), large.Volatility())
	}
}

func TestPure(t *testing.T) {
	prices := []float64{100, 101, 99, 102, 98.5, 103}
	run := func() []float64 {
		e := NewEstimator(DefaultAlpha, DefaultFloor)
		out := make([]float64, 0, len(prices))
		for _, p := range prices {
			e.Update(p)
			out = append(out, e.Volatility())
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("non-deterministic path at step %d: %v vs %v", i, a[i], b[i])
		}
	}
}
