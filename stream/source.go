package stream

import (
	"context"
	"errors"
)

// Common source errors
var (
	// ErrSourceClosed is returned by operations on a source after Close
	ErrSourceClosed = errors.New("source closed")

	// ErrStreamTerminal signals that a network source has exhausted its
	// reconnect budget and will produce no more frames.
	ErrStreamTerminal = errors.New("stream connection failed permanently")
)

// Source produces PCM frames from some audio origin: a file decode, a live
// capture device, or a network stream.
//
// Contract: Start begins production and fails fast when the origin cannot be
// opened. Frames is closed when the source ends, normally or not; Errors
// carries at most the failure that ended production. SampleRate and Channels
// are valid after a successful Start. Close is idempotent and releases the
// origin; it causes Frames to close promptly.
type Source interface {
	Start(ctx context.Context) error
	Frames() <-chan Frame
	Errors() <-chan error
	SampleRate() int
	Channels() int
	Close() error
}
