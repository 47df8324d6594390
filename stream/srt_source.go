package stream

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/sonido-labs/keyscope/logging"
)

// SRTSourceConfig holds network stream parameters
type SRTSourceConfig struct {
	FFmpegPath   string
	SampleRate   int
	BlockSize    int
	MaxRetries   int           // reconnect attempts before giving up
	RetryBackoff time.Duration // base backoff, doubled per consecutive failure
}

// DefaultSRTSourceConfig returns network stream defaults
func DefaultSRTSourceConfig() SRTSourceConfig {
	return SRTSourceConfig{
		FFmpegPath:   "ffmpeg",
		SampleRate:   44100,
		BlockSize:    2048,
		MaxRetries:   5,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// SRTSource pulls audio from an SRT network stream through ffmpeg, decoded to
// mono PCM. Transient connection failures are retried with exponential
// backoff; a period of successful streaming resets the retry budget, so a
// long-lived stream survives occasional hiccups while a dead endpoint fails
// terminally after MaxRetries consecutive attempts.
type SRTSource struct {
	url    string
	config SRTSourceConfig

	frames chan Frame
	errs   chan error

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	done   chan struct{}
}

// NewSRTSource creates a source for an srt:// URL
func NewSRTSource(url string, config SRTSourceConfig) *SRTSource {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 44100
	}
	if config.BlockSize <= 0 {
		config.BlockSize = 2048
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 500 * time.Millisecond
	}
	return &SRTSource{
		url:    url,
		config: config,
		frames: make(chan Frame, 8),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the initial connection. The first connection failure is
// still subject to the retry budget, so Start itself only fails on setup
// problems; connection errors surface through Errors once the budget is
// exhausted.
func (ss *SRTSource) Start(ctx context.Context) error {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return ErrSourceClosed
	}
	runCtx, cancel := context.WithCancel(ctx)
	ss.cancel = cancel
	ss.mu.Unlock()

	go ss.run(runCtx)
	return nil
}

// run owns the connect/stream/reconnect loop
func (ss *SRTSource) run(ctx context.Context) {
	defer close(ss.done)
	defer close(ss.frames)

	logger := logging.WithFields(logging.Fields{
		"component": "srt_source",
		"url":       ss.url,
	})

	retries := 0
	backoff := ss.config.RetryBackoff

	for {
		streamed, err := ss.streamOnce(ctx, logger)
		if ctx.Err() != nil || ss.isClosed() {
			return
		}

		// Any meaningful streaming period earns a fresh retry budget
		if streamed > 10*time.Second {
			retries = 0
			backoff = ss.config.RetryBackoff
		}

		retries++
		if retries > ss.config.MaxRetries {
			logger.Error(err, "Stream connection failed permanently", logging.Fields{
				"attempts": retries,
			})
			ss.errs <- fmt.Errorf("%w after %d attempts: %v", ErrStreamTerminal, retries, err)
			return
		}

		logger.Warn("Stream interrupted, reconnecting", logging.Fields{
			"attempt": retries,
			"backoff": backoff.String(),
			"error":   fmt.Sprint(err),
		})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
	}
}

// streamOnce runs one ffmpeg connection until it ends, returning how long it
// streamed and the error that ended it.
func (ss *SRTSource) streamOnce(ctx context.Context, logger logging.Logger) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-rw_timeout", "5000000",
		"-i", ss.url,
		"-vn",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(ss.config.SampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, ss.config.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to open stream pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	logger.Debug("Stream connection opened")
	started := time.Now()

	raw := make([]byte, ss.config.BlockSize*8)
	for {
		n, readErr := io.ReadFull(stdout, raw)
		if n >= 8 {
			samples := bytesToSamples(raw[:n-(n%8)])
			select {
			case ss.frames <- Frame{
				Samples:    samples,
				SampleRate: ss.config.SampleRate,
				Channels:   1,
				Timestamp:  time.Now(),
			}:
			case <-ctx.Done():
				_ = cmd.Wait()
				return time.Since(started), ctx.Err()
			}
		}
		if readErr != nil {
			waitErr := cmd.Wait()
			if waitErr != nil {
				return time.Since(started), fmt.Errorf("stream decode ended: %w", waitErr)
			}
			return time.Since(started), fmt.Errorf("stream ended: %w", readErr)
		}
	}
}

// Frames returns the stream's frame channel; closed on terminal failure or Close
func (ss *SRTSource) Frames() <-chan Frame { return ss.frames }

// Errors returns the error stream; carries the terminal failure, if any
func (ss *SRTSource) Errors() <-chan error { return ss.errs }

// SampleRate returns the decode target sample rate
func (ss *SRTSource) SampleRate() int { return ss.config.SampleRate }

// Channels returns 1; network decode always downmixes to mono
func (ss *SRTSource) Channels() int { return 1 }

// Close terminates the connection loop and the ffmpeg process. Idempotent.
func (ss *SRTSource) Close() error {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return nil
	}
	ss.closed = true
	cancel := ss.cancel
	ss.mu.Unlock()

	if cancel != nil {
		cancel()
		<-ss.done
	}
	return nil
}

func (ss *SRTSource) isClosed() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.closed
}
