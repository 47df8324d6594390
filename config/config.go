package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full configuration for a detection session
type Config struct {
	// Audio format
	SampleRate int `mapstructure:"sample_rate" json:"sample_rate"`
	Channels   int `mapstructure:"channels" json:"channels"`
	BlockSize  int `mapstructure:"block_size" json:"block_size"` // samples per source frame

	// Analysis windowing
	WindowDuration   float64 `mapstructure:"window_duration" json:"window_duration"`     // seconds per analysis window
	HopDuration      float64 `mapstructure:"hop_duration" json:"hop_duration"`           // seconds between windows
	AnalysisDuration float64 `mapstructure:"analysis_duration" json:"analysis_duration"` // seconds analyzed for file input
	BufferWindows    int     `mapstructure:"buffer_windows" json:"buffer_windows"`       // scheduler capacity in window-durations

	// Key tracking
	ConfirmationCount int     `mapstructure:"confirmation_count" json:"confirmation_count"`
	MinConfidence     float64 `mapstructure:"min_confidence" json:"min_confidence"`

	// Chroma extraction
	TuningFreq float64 `mapstructure:"tuning_freq" json:"tuning_freq"`
	MinFreq    float64 `mapstructure:"min_freq" json:"min_freq"`
	MaxFreq    float64 `mapstructure:"max_freq" json:"max_freq"`
	FFTSize    int     `mapstructure:"fft_size" json:"fft_size"`
	FFTHop     int     `mapstructure:"fft_hop" json:"fft_hop"`

	// External decode binaries
	FFmpegPath  string `mapstructure:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path" json:"ffprobe_path"`

	// Network stream retry policy
	StreamRetries      int           `mapstructure:"stream_retries" json:"stream_retries"`
	StreamRetryBackoff time.Duration `mapstructure:"stream_retry_backoff" json:"stream_retry_backoff"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SampleRate:         44100,
		Channels:           1, // mono for key analysis
		BlockSize:          2048,
		WindowDuration:     3.0,
		HopDuration:        3.0,
		AnalysisDuration:   30.0,
		BufferWindows:      4,
		ConfirmationCount:  2,
		MinConfidence:      0.1,
		TuningFreq:         440.0,
		MinFreq:            80.0,
		MaxFreq:            8000.0,
		FFTSize:            4096,
		FFTHop:             2048,
		FFmpegPath:         "ffmpeg",  // assume in PATH
		FFprobePath:        "ffprobe", // assume in PATH
		StreamRetries:      5,
		StreamRetryBackoff: 500 * time.Millisecond,
	}
}

// defaultSettings flattens the default configuration into viper keys.
// Registering every key as a default is what lets AutomaticEnv resolve
// KEYSCOPE_* variables for keys absent from the config file.
func defaultSettings() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"sample_rate":          d.SampleRate,
		"channels":             d.Channels,
		"block_size":           d.BlockSize,
		"window_duration":      d.WindowDuration,
		"hop_duration":         d.HopDuration,
		"analysis_duration":    d.AnalysisDuration,
		"buffer_windows":       d.BufferWindows,
		"confirmation_count":   d.ConfirmationCount,
		"min_confidence":       d.MinConfidence,
		"tuning_freq":          d.TuningFreq,
		"min_freq":             d.MinFreq,
		"max_freq":             d.MaxFreq,
		"fft_size":             d.FFTSize,
		"fft_hop":              d.FFTHop,
		"ffmpeg_path":          d.FFmpegPath,
		"ffprobe_path":         d.FFprobePath,
		"stream_retries":       d.StreamRetries,
		"stream_retry_backoff": d.StreamRetryBackoff,
	}
}

// Load reads configuration from an optional YAML file merged over defaults,
// with KEYSCOPE_* environment variables taking precedence over both. An
// empty path skips the file layer.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KEYSCOPE")
	v.AutomaticEnv()

	for key, value := range defaultSettings() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive: %d", c.SampleRate)
	}
	if c.Channels <= 0 || c.Channels > 8 {
		return fmt.Errorf("channels must be between 1 and 8: %d", c.Channels)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive: %d", c.BlockSize)
	}
	if c.WindowDuration <= 0 {
		return fmt.Errorf("window_duration must be positive: %.2f", c.WindowDuration)
	}
	if c.HopDuration <= 0 || c.HopDuration > c.WindowDuration {
		return fmt.Errorf("hop_duration must be in (0, window_duration]: %.2f", c.HopDuration)
	}
	if c.AnalysisDuration <= 0 {
		return fmt.Errorf("analysis_duration must be positive: %.2f", c.AnalysisDuration)
	}
	if c.BufferWindows < 1 {
		return fmt.Errorf("buffer_windows must be at least 1: %d", c.BufferWindows)
	}
	if c.ConfirmationCount < 1 {
		return fmt.Errorf("confirmation_count must be at least 1: %d", c.ConfirmationCount)
	}
	if c.MinConfidence < -1 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be within [-1, 1]: %.2f", c.MinConfidence)
	}
	if c.TuningFreq <= 0 {
		return fmt.Errorf("tuning_freq must be positive: %.1f", c.TuningFreq)
	}
	if c.MinFreq <= 0 || c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("freq range invalid: [%.1f, %.1f]", c.MinFreq, c.MaxFreq)
	}
	if c.FFTSize <= 0 || c.FFTHop <= 0 {
		return fmt.Errorf("fft_size and fft_hop must be positive: %d/%d", c.FFTSize, c.FFTHop)
	}
	if c.StreamRetries < 0 {
		return fmt.Errorf("stream_retries must be non-negative: %d", c.StreamRetries)
	}
	return nil
}

// WindowSamples returns the analysis window length in samples
func (c *Config) WindowSamples() int {
	return int(c.WindowDuration * float64(c.SampleRate))
}

// HopSamples returns the hop length in samples
func (c *Config) HopSamples() int {
	return int(c.HopDuration * float64(c.SampleRate))
}
