package stream

import (
	"errors"
	"sync"
)

// Scheduler errors
var (
	ErrEmptyFrame        = errors.New("empty frame pushed to scheduler")
	ErrSampleRateChanged = errors.New("sample rate changed mid-stream")
)

// Scheduler accumulates mono samples from arbitrarily-sized frames and slices
// them into fixed-length analysis windows at hop-length intervals. The buffer
// is bounded: when the producer outruns the analysis loop the oldest samples
// are evicted so analysis always sees the freshest audio, and the eviction
// count is reported through Dropped.
//
// Safe for one producer and one consumer running concurrently.
type Scheduler struct {
	mu sync.Mutex

	windowSamples int
	hopSamples    int

	buf   []float64 // ring buffer holding the most recent samples
	start int       // index of the oldest sample
	size  int

	sampleRate    int   // pinned by the first Push
	totalReceived int64 // lifetime samples pushed
	emitted       int64 // windows handed out
	dropped       int64 // samples evicted under backpressure
}

// NewScheduler creates a scheduler emitting windows of windowSamples every
// hopSamples, buffering up to bufferWindows window-lengths of audio.
func NewScheduler(windowSamples, hopSamples, bufferWindows int) *Scheduler {
	if hopSamples <= 0 || hopSamples > windowSamples {
		hopSamples = windowSamples
	}
	if bufferWindows < 1 {
		bufferWindows = 1
	}
	return &Scheduler{
		windowSamples: windowSamples,
		hopSamples:    hopSamples,
		buf:           make([]float64, windowSamples*bufferWindows),
	}
}

// Push appends a frame's mono samples to the buffer. The first push pins the
// stream's sample rate; a later push at a different rate is rejected, since
// mixing rates would silently corrupt the pitch analysis.
func (s *Scheduler) Push(samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return ErrEmptyFrame
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sampleRate == 0 {
		s.sampleRate = sampleRate
	} else if sampleRate != s.sampleRate {
		return ErrSampleRateChanged
	}

	// A frame larger than the whole buffer keeps only its tail
	if len(samples) > len(s.buf) {
		s.dropped += int64(len(samples) - len(s.buf))
		samples = samples[len(samples)-len(s.buf):]
	}

	// Evict oldest samples to make room
	overflow := s.size + len(samples) - len(s.buf)
	if overflow > 0 {
		s.start = (s.start + overflow) % len(s.buf)
		s.size -= overflow
		s.dropped += int64(overflow)
	}

	end := (s.start + s.size) % len(s.buf)
	n := copy(s.buf[end:], samples)
	copy(s.buf, samples[n:])
	s.size += len(samples)

	s.totalReceived += int64(len(samples))
	return nil
}

// Poll returns the next ready analysis window, or false when no window is
// due yet. Windows start at hop-aligned positions in the sample stream;
// positions whose samples were already evicted under backpressure are
// skipped, so a lagging consumer lands on the freshest audio still buffered
// instead of an ever-growing backlog.
func (s *Scheduler) Poll() ([]float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		windowStart := s.emitted * int64(s.hopSamples)
		if s.totalReceived < windowStart+int64(s.windowSamples) {
			return nil, false
		}

		oldest := s.totalReceived - int64(s.size)
		if windowStart < oldest {
			// Window's leading samples were evicted
			s.emitted++
			continue
		}

		offset := int(windowStart - oldest)
		from := (s.start + offset) % len(s.buf)
		window := make([]float64, s.windowSamples)
		n := copy(window, s.buf[from:])
		copy(window[n:], s.buf)

		s.emitted++
		return window, true
	}
}

// Dropped returns the number of samples evicted due to backpressure
func (s *Scheduler) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Buffered returns the number of samples currently held
func (s *Scheduler) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// SampleRate returns the pinned stream sample rate, 0 before the first push
func (s *Scheduler) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}
