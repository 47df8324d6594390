package chroma

import (
	"math"
	"testing"
)

func sine(freq float64, sampleRate, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func mix(signals ...[]float64) []float64 {
	out := make([]float64, len(signals[0]))
	for _, s := range signals {
		for i, v := range s {
			out[i] += v / float64(len(signals))
		}
	}
	return out
}

// A 440 Hz sine is pitch class A (bin 9)
func TestComputeSineA4(t *testing.T) {
	sampleRate := 44100
	e := NewExtractor(sampleRate)

	chromagram := e.Compute(sine(440, sampleRate, sampleRate))
	if len(chromagram) != NumBins {
		t.Fatalf("chromagram length = %d, want %d", len(chromagram), NumBins)
	}

	peak := 0
	for i, v := range chromagram {
		if v > chromagram[peak] {
			peak = i
		}
	}
	if peak != 9 {
		t.Errorf("A4 sine peaked at bin %d (%s), want 9 (A): %v",
			peak, Labels()[peak], chromagram)
	}
}

func TestComputeUnitSum(t *testing.T) {
	sampleRate := 44100
	e := NewExtractor(sampleRate)

	chromagram := e.Compute(sine(261.63, sampleRate, sampleRate))
	sum := 0.0
	for _, v := range chromagram {
		if v < 0 {
			t.Errorf("negative chroma energy: %v", chromagram)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("chromagram sum = %.12f, want 1.0", sum)
	}
}

func TestComputeSilence(t *testing.T) {
	e := NewExtractor(44100)

	chromagram := e.Compute(make([]float64, 44100))
	if !IsZero(chromagram) {
		t.Errorf("silence produced energy: %v", chromagram)
	}
}

func TestComputeEmptyAndShortInput(t *testing.T) {
	e := NewExtractor(44100)

	if !IsZero(e.Compute(nil)) {
		t.Error("empty input should yield the zero chromagram")
	}

	// Shorter than one FFT window still analyzes as a single frame
	short := e.Compute(sine(440, 44100, 1024))
	if IsZero(short) {
		t.Error("short sine block should still carry energy")
	}
}

// C major triad: the three strongest bins must be C, E, G
func TestComputeTriad(t *testing.T) {
	sampleRate := 44100
	e := NewExtractor(sampleRate)

	signal := mix(
		sine(261.63, sampleRate, sampleRate), // C4
		sine(329.63, sampleRate, sampleRate), // E4
		sine(392.00, sampleRate, sampleRate), // G4
	)
	chromagram := e.Compute(signal)

	triad := map[int]bool{0: true, 4: true, 7: true}
	for bin := 0; bin < NumBins; bin++ {
		if triad[bin] {
			continue
		}
		for member := range triad {
			if chromagram[bin] > chromagram[member] {
				t.Errorf("non-triad bin %d (%s, %.4f) outweighs triad bin %d (%s, %.4f)",
					bin, Labels()[bin], chromagram[bin],
					member, Labels()[member], chromagram[member])
			}
		}
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero(make([]float64, NumBins)) {
		t.Error("all-zero vector should read as zero")
	}
	v := make([]float64, NumBins)
	v[5] = 0.1
	if IsZero(v) {
		t.Error("non-zero vector should not read as zero")
	}
}
