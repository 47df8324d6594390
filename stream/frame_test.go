package stream

import (
	"testing"
	"time"
)

func TestFrameDuration(t *testing.T) {
	f := Frame{Samples: make([]float64, 44100), SampleRate: 44100, Channels: 1}
	if d := f.Duration(); d != time.Second {
		t.Errorf("Duration = %v, want 1s", d)
	}

	stereo := Frame{Samples: make([]float64, 88200), SampleRate: 44100, Channels: 2}
	if d := stereo.Duration(); d != time.Second {
		t.Errorf("stereo Duration = %v, want 1s", d)
	}

	invalid := Frame{Samples: make([]float64, 100)}
	if d := invalid.Duration(); d != 0 {
		t.Errorf("invalid frame Duration = %v, want 0", d)
	}
}

func TestFrameMono(t *testing.T) {
	// Interleaved stereo: L=1, R=3 averages to 2
	f := Frame{
		Samples:    []float64{1, 3, 1, 3, 1, 3},
		SampleRate: 44100,
		Channels:   2,
	}
	mono := f.Mono()
	if len(mono) != 3 {
		t.Fatalf("mono length = %d, want 3", len(mono))
	}
	for i, v := range mono {
		if v != 2 {
			t.Errorf("mono[%d] = %v, want 2", i, v)
		}
	}
}

func TestFrameMonoPassthrough(t *testing.T) {
	f := Frame{Samples: []float64{0.5, -0.5}, SampleRate: 44100, Channels: 1}
	mono := f.Mono()
	if &mono[0] != &f.Samples[0] {
		t.Error("mono frame should be returned without copying")
	}
}
