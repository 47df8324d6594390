package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonido-labs/keyscope/stream"
)

var srtCmd = &cobra.Command{
	Use:   "srt <url>",
	Short: "Detect keys from an SRT network stream",
	Long: `Srt connects to an SRT endpoint and prints the detected key as it
stabilizes and changes. Transient network gaps are retried with backoff;
a dead endpoint terminates the session. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if !strings.HasPrefix(url, "srt://") {
			return fmt.Errorf("expected an srt:// URL, got %q", url)
		}

		source := stream.NewSRTSource(url, stream.SRTSourceConfig{
			FFmpegPath:   cfg.FFmpegPath,
			SampleRate:   cfg.SampleRate,
			BlockSize:    cfg.BlockSize,
			MaxRetries:   cfg.StreamRetries,
			RetryBackoff: cfg.StreamRetryBackoff,
		})
		return runLive(cmd.Context(), source)
	},
}
