package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SampleRate != 44100 || cfg.Channels != 1 {
		t.Errorf("unexpected audio defaults: %d Hz, %d ch", cfg.SampleRate, cfg.Channels)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"too many channels", func(c *Config) { c.Channels = 9 }},
		{"zero window", func(c *Config) { c.WindowDuration = 0 }},
		{"hop exceeds window", func(c *Config) { c.HopDuration = c.WindowDuration + 1 }},
		{"negative hop", func(c *Config) { c.HopDuration = -1 }},
		{"zero confirmation count", func(c *Config) { c.ConfirmationCount = 0 }},
		{"confidence out of range", func(c *Config) { c.MinConfidence = 2 }},
		{"inverted freq range", func(c *Config) { c.MinFreq = 5000; c.MaxFreq = 100 }},
		{"zero buffer windows", func(c *Config) { c.BufferWindows = 0 }},
		{"negative retries", func(c *Config) { c.StreamRetries = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate accepted %s", tc.name)
			}
		})
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != DefaultConfig().SampleRate {
		t.Errorf("empty path should yield defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KEYSCOPE_SAMPLE_RATE", "48000")
	t.Setenv("KEYSCOPE_MIN_CONFIDENCE", "0.25")
	t.Setenv("KEYSCOPE_FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000 from env", cfg.SampleRate)
	}
	if cfg.MinConfidence != 0.25 {
		t.Errorf("min_confidence = %.2f, want 0.25 from env", cfg.MinConfidence)
	}
	if cfg.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg_path = %q, want env value", cfg.FFmpegPath)
	}
	// Untouched keys keep their defaults
	if cfg.ConfirmationCount != DefaultConfig().ConfirmationCount {
		t.Errorf("confirmation_count = %d, want default", cfg.ConfirmationCount)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyscope.yaml")
	if err := os.WriteFile(path, []byte("sample_rate: 22050\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("KEYSCOPE_SAMPLE_RATE", "96000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != 96000 {
		t.Errorf("sample_rate = %d, want env to win over file", cfg.SampleRate)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyscope.yaml")
	content := "sample_rate: 48000\nwindow_duration: 2.5\nhop_duration: 1.25\nconfirmation_count: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.WindowDuration != 2.5 || cfg.HopDuration != 1.25 {
		t.Errorf("window/hop = %.2f/%.2f, want 2.50/1.25", cfg.WindowDuration, cfg.HopDuration)
	}
	if cfg.ConfirmationCount != 3 {
		t.Errorf("confirmation_count = %d, want 3", cfg.ConfirmationCount)
	}
	// Values absent from the file keep their defaults
	if cfg.TuningFreq != 440.0 {
		t.Errorf("tuning_freq = %.1f, want 440.0", cfg.TuningFreq)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("sample_rate: -5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for negative sample rate")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWindowAndHopSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.WindowDuration = 1.5
	cfg.HopDuration = 0.5

	if got := cfg.WindowSamples(); got != 12000 {
		t.Errorf("WindowSamples = %d, want 12000", got)
	}
	if got := cfg.HopSamples(); got != 4000 {
		t.Errorf("HopSamples = %d, want 4000", got)
	}
}
