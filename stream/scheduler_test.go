package stream

import (
	"testing"
)

func ramp(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

func TestSchedulerExactWindow(t *testing.T) {
	s := NewScheduler(1000, 1000, 4)

	// Less than one window yields nothing
	if err := s.Push(ramp(0, 999), 8000); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, ok := s.Poll(); ok {
		t.Error("window emitted before enough samples accumulated")
	}

	// Exactly one window's worth yields exactly one window
	if err := s.Push(ramp(999, 1), 8000); err != nil {
		t.Fatalf("Push: %v", err)
	}
	window, ok := s.Poll()
	if !ok {
		t.Fatal("expected a window after exactly window-length samples")
	}
	if len(window) != 1000 {
		t.Fatalf("window length = %d, want 1000", len(window))
	}
	if window[0] != 0 || window[999] != 999 {
		t.Errorf("window content wrong: first=%v last=%v", window[0], window[999])
	}
	if _, ok := s.Poll(); ok {
		t.Error("second window emitted without new samples")
	}
}

func TestSchedulerHop(t *testing.T) {
	s := NewScheduler(1000, 500, 4)

	if err := s.Push(ramp(0, 2000), 8000); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// 2000 samples with window 1000, hop 500: windows at 0, 500, 1000
	starts := []float64{0, 500, 1000}
	for i, want := range starts {
		window, ok := s.Poll()
		if !ok {
			t.Fatalf("window %d not emitted", i)
		}
		if window[0] != want {
			t.Errorf("window %d starts at sample %v, want %v", i, window[0], want)
		}
	}
	if _, ok := s.Poll(); ok {
		t.Error("extra window emitted")
	}
}

func TestSchedulerBoundedMemory(t *testing.T) {
	s := NewScheduler(100, 100, 2) // capacity 200 samples

	for i := 0; i < 100; i++ {
		if err := s.Push(ramp(i*50, 50), 8000); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	if s.Buffered() > 200 {
		t.Errorf("buffer grew past capacity: %d", s.Buffered())
	}
	if s.Dropped() != 5000-200 {
		t.Errorf("dropped = %d, want %d", s.Dropped(), 5000-200)
	}

	// The next window must come from samples still buffered, skipping
	// evicted positions.
	window, ok := s.Poll()
	if !ok {
		t.Fatal("expected a window from the retained tail")
	}
	if window[0] < 4800 {
		t.Errorf("window starts at evicted sample %v", window[0])
	}
}

func TestSchedulerOversizedFrame(t *testing.T) {
	s := NewScheduler(100, 100, 2)

	// A frame larger than the whole buffer keeps only its tail
	if err := s.Push(ramp(0, 1000), 8000); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if s.Buffered() != 200 {
		t.Errorf("buffered = %d, want 200", s.Buffered())
	}
	window, ok := s.Poll()
	if !ok {
		t.Fatal("expected a window")
	}
	if window[0] != 800 {
		t.Errorf("window starts at %v, want 800", window[0])
	}
}

func TestSchedulerRejectsSampleRateChange(t *testing.T) {
	s := NewScheduler(100, 100, 2)

	if err := s.Push(ramp(0, 10), 44100); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s.Push(ramp(0, 10), 48000); err != ErrSampleRateChanged {
		t.Errorf("expected ErrSampleRateChanged, got %v", err)
	}
	if s.SampleRate() != 44100 {
		t.Errorf("pinned sample rate = %d, want 44100", s.SampleRate())
	}
}

func TestSchedulerRejectsEmptyFrame(t *testing.T) {
	s := NewScheduler(100, 100, 2)
	if err := s.Push(nil, 44100); err != ErrEmptyFrame {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
}
