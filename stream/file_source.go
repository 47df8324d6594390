package stream

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/sonido-labs/keyscope/logging"
)

// FileSourceConfig holds decode parameters for file input
type FileSourceConfig struct {
	FFmpegPath  string        // path to ffmpeg binary, "ffmpeg" assumes PATH
	FFprobePath string        // path to ffprobe binary
	SampleRate  int           // decode target sample rate
	BlockSize   int           // samples per emitted frame
	MaxDuration time.Duration // 0 decodes the whole file
}

// DefaultFileSourceConfig returns sensible decode defaults
func DefaultFileSourceConfig() FileSourceConfig {
	return FileSourceConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		SampleRate:  44100,
		BlockSize:   2048,
	}
}

// fileMetadata holds detected audio properties from ffprobe
type fileMetadata struct {
	SampleRate int
	Channels   int
	Codec      string
	Duration   float64
}

// FileSource decodes an audio file through ffmpeg and emits its PCM as a
// stream of mono frames. Decoding is resampled to the configured rate and
// downmixed to one channel so the analysis pipeline sees a uniform format
// regardless of the container.
type FileSource struct {
	path   string
	config FileSourceConfig

	frames chan Frame
	errs   chan error

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	closed bool
	done   chan struct{}
}

// NewFileSource creates a source decoding the given audio file
func NewFileSource(path string, config FileSourceConfig) *FileSource {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 44100
	}
	if config.BlockSize <= 0 {
		config.BlockSize = 2048
	}
	return &FileSource{
		path:   path,
		config: config,
		frames: make(chan Frame, 8),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Start probes the file and launches the decode. It fails fast: a missing
// file or a container with no audio stream is reported here, before any
// frame is produced.
func (fs *FileSource) Start(ctx context.Context) error {
	logger := logging.WithFields(logging.Fields{
		"component": "file_source",
		"path":      fs.path,
	})

	if _, err := os.Stat(fs.path); err != nil {
		return fmt.Errorf("audio file not accessible: %w", err)
	}

	meta, err := probeFile(ctx, fs.config.FFprobePath, fs.path)
	if err != nil {
		return err
	}

	logger.Debug("Audio file probed", logging.Fields{
		"codec":       meta.Codec,
		"sample_rate": meta.SampleRate,
		"channels":    meta.Channels,
		"duration":    meta.Duration,
	})

	args := []string{
		"-v", "error",
		"-i", fs.path,
	}
	if fs.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", fs.config.MaxDuration.Seconds()))
	}
	args = append(args,
		"-vn",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(fs.config.SampleRate),
		"pipe:1",
	)

	decodeCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(decodeCtx, fs.config.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open decode pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		cancel()
		_ = cmd.Wait()
		return ErrSourceClosed
	}
	fs.cmd = cmd
	fs.cancel = cancel
	fs.mu.Unlock()

	go fs.pump(decodeCtx, stdout, cmd, logger)
	return nil
}

// pump reads raw f64le samples from ffmpeg and emits block-sized frames
func (fs *FileSource) pump(ctx context.Context, stdout io.Reader, cmd *exec.Cmd, logger logging.Logger) {
	defer close(fs.done)
	defer close(fs.frames)

	raw := make([]byte, fs.config.BlockSize*8)
	filled := 0

	for {
		n, err := io.ReadFull(stdout, raw[filled:])
		filled += n

		if filled > 0 {
			samples := bytesToSamples(raw[:filled-(filled%8)])
			if len(samples) > 0 {
				select {
				case fs.frames <- Frame{
					Samples:    samples,
					SampleRate: fs.config.SampleRate,
					Channels:   1,
					Timestamp:  time.Now(),
				}:
				case <-ctx.Done():
					_ = cmd.Wait()
					return
				}
			}
			filled = 0
		}

		if err != nil {
			waitErr := cmd.Wait()
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				fs.errs <- fmt.Errorf("decode read failed: %w", err)
			} else if waitErr != nil && !fs.isClosed() {
				fs.errs <- fmt.Errorf("ffmpeg decode failed: %w", waitErr)
			} else {
				logger.Debug("File decode completed")
			}
			return
		}
	}
}

// Frames returns the decoded frame stream; closed when the file ends
func (fs *FileSource) Frames() <-chan Frame { return fs.frames }

// Errors returns the error stream; carries at most one terminal failure
func (fs *FileSource) Errors() <-chan error { return fs.errs }

// SampleRate returns the decode target sample rate
func (fs *FileSource) SampleRate() int { return fs.config.SampleRate }

// Channels returns 1; file decode always downmixes to mono
func (fs *FileSource) Channels() int { return 1 }

// Close stops the decode and releases the ffmpeg process. Idempotent.
func (fs *FileSource) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	cancel := fs.cancel
	started := fs.cmd != nil
	fs.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-fs.done
	}
	return nil
}

func (fs *FileSource) isClosed() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.closed
}

// probeFile runs ffprobe against a path or URL and parses the first audio
// stream's properties.
func probeFile(ctx context.Context, ffprobePath, target string) (*fileMetadata, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		target,
	}

	cmd := exec.CommandContext(probeCtx, ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found in %s", target)
	}

	s := probe.Streams[0]
	if s.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", s.CodecType)
	}

	sampleRate, err := strconv.Atoi(s.SampleRate)
	if err != nil {
		sampleRate = 44100
	}
	duration, err := strconv.ParseFloat(s.Duration, 64)
	if err != nil {
		duration = 0
	}
	if s.Channels <= 0 || s.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", s.Channels)
	}

	return &fileMetadata{
		SampleRate: sampleRate,
		Channels:   s.Channels,
		Codec:      s.CodecName,
		Duration:   duration,
	}, nil
}

// bytesToSamples converts raw little-endian float64 bytes to samples
func bytesToSamples(data []byte) []float64 {
	count := len(data) / 8
	if count == 0 {
		return nil
	}
	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}
