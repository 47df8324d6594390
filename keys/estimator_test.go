package keys

import (
	"math"
	"testing"
)

// Every profile correlated against its own vector must win with a perfect
// coefficient, for all 24 keys.
func TestEstimateSelfCorrelation(t *testing.T) {
	e := NewEstimator()

	for _, profile := range Profiles() {
		chromagram := make([]float64, 12)
		copy(chromagram, profile.Vector)

		est := e.Estimate(chromagram, nil)
		if !est.OK {
			t.Fatalf("%s: expected an estimate", profile.Label)
		}
		if est.Key != profile.Key {
			t.Errorf("%s: estimator selected %s", profile.Label, est.Key.Label())
		}
		if math.Abs(est.Confidence-1.0) > 1e-9 {
			t.Errorf("%s: self-correlation = %.12f, want 1.0", profile.Label, est.Confidence)
		}
	}
}

func TestEstimateZeroChromagram(t *testing.T) {
	e := NewEstimator()

	est := e.Estimate(make([]float64, 12), nil)
	if est.OK {
		t.Errorf("zero chromagram produced an estimate: %s (%.3f)", est.Key.Label(), est.Confidence)
	}
	if est.Label() != "none" {
		t.Errorf("no-estimate label = %q, want \"none\"", est.Label())
	}
}

func TestEstimateWrongLength(t *testing.T) {
	e := NewEstimator()
	if est := e.Estimate([]float64{1, 2, 3}, nil); est.OK {
		t.Error("short chromagram should produce no estimate")
	}
	if est := e.Estimate(nil, nil); est.OK {
		t.Error("nil chromagram should produce no estimate")
	}
}

// A chromagram with energy only on C, E, G must read as C major
func TestEstimateTriad(t *testing.T) {
	e := NewEstimator()

	chromagram := make([]float64, 12)
	chromagram[0] = 0.4 // C
	chromagram[4] = 0.3 // E
	chromagram[7] = 0.3 // G

	est := e.Estimate(chromagram, nil)
	if !est.OK {
		t.Fatal("expected an estimate")
	}
	if got := est.Key.Label(); got != "C major" {
		t.Errorf("C-E-G triad estimated as %s", got)
	}
}

func TestEstimateTieBreakPrefersPreviousKey(t *testing.T) {
	e := NewEstimator()

	// A perfectly uniform chromagram correlates identically (zero) with
	// every profile; the previous key must win the tie.
	uniform := make([]float64, 12)
	for i := range uniform {
		uniform[i] = 1.0 / 12
	}

	prev := Key{Tonic: 4, Mode: ModeMinor}
	est := e.Estimate(uniform, &prev)
	if !est.OK {
		t.Fatal("expected an estimate")
	}
	if est.Key != prev {
		t.Errorf("tie-break ignored previous key: got %s, want %s", est.Key.Label(), prev.Label())
	}
}

func TestEstimateTieBreakWithoutPrevious(t *testing.T) {
	e := NewEstimator()

	uniform := make([]float64, 12)
	for i := range uniform {
		uniform[i] = 1.0 / 12
	}

	// With no previous key, the tie falls to major mode and the lowest tonic
	est := e.Estimate(uniform, nil)
	if !est.OK {
		t.Fatal("expected an estimate")
	}
	if est.Key.Mode != ModeMajor || est.Key.Tonic != 0 {
		t.Errorf("tie-break without previous key: got %s, want C major", est.Key.Label())
	}
}
