package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/sonido-labs/keyscope/config"
	"github.com/sonido-labs/keyscope/stream"
)

// DetectFromFile runs the full pipeline over the first AnalysisDuration
// seconds of an audio file and returns the detected key label. The decode
// runs faster than real time; the call is synchronous and the source is
// released on every exit path.
//
// Returns "none" (with nil error) when the file carries no detectable key,
// for instance silence.
func DetectFromFile(ctx context.Context, cfg *config.Config, path string, opts ...Option) (string, error) {
	source := stream.NewFileSource(path, stream.FileSourceConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		SampleRate:  cfg.SampleRate,
		BlockSize:   cfg.BlockSize,
		MaxDuration: time.Duration(cfg.AnalysisDuration * float64(time.Second)),
	})

	d := New(cfg, source, opts...)
	if err := d.Start(ctx); err != nil {
		_ = source.Close()
		return "", err
	}

	err := d.Wait()
	stopErr := d.Stop()
	if err != nil {
		return "", fmt.Errorf("file analysis failed: %w", err)
	}
	if stopErr != nil {
		return "", stopErr
	}

	// A short file may end before the confirmation count is reached; the
	// strongest candidate is still the right answer for one-shot analysis.
	if best, ok := d.tracker.Best(); ok {
		return best.Label(), nil
	}
	return "none", nil
}
