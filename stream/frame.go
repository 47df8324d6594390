package stream

import (
	"time"
)

// Frame is one block of PCM audio moving through the pipeline. Samples are
// float64 in [-1, 1], interleaved when Channels > 1.
type Frame struct {
	Samples    []float64
	SampleRate int
	Channels   int
	Timestamp  time.Time
}

// Duration returns the frame's play time
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	perChannel := len(f.Samples) / f.Channels
	return time.Duration(perChannel) * time.Second / time.Duration(f.SampleRate)
}

// Mono returns the frame's samples folded down to a single channel by
// averaging. Already-mono frames are returned as-is without copying.
func (f *Frame) Mono() []float64 {
	if f.Channels <= 1 {
		return f.Samples
	}

	perChannel := len(f.Samples) / f.Channels
	mono := make([]float64, perChannel)
	scale := 1.0 / float64(f.Channels)
	for i := 0; i < perChannel; i++ {
		var sum float64
		for c := 0; c < f.Channels; c++ {
			sum += f.Samples[i*f.Channels+c]
		}
		mono[i] = sum * scale
	}
	return mono
}
