package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonido-labs/keyscope/detector"
)

var analysisDuration float64

var detectCmd = &cobra.Command{
	Use:   "detect <audio-file>",
	Short: "Detect the key of an audio file",
	Long: `Detect analyzes the first seconds of an audio file (any format ffmpeg
can decode) and prints the detected key, e.g. "C major".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("duration") {
			cfg.AnalysisDuration = analysisDuration
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		var opts []detector.Option
		chain, err := buildChain(cfg.SampleRate)
		if err != nil {
			return err
		}
		if chain != nil {
			opts = append(opts, detector.WithChain(chain))
		}

		key, err := detector.DetectFromFile(cmd.Context(), cfg, args[0], opts...)
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

func init() {
	detectCmd.Flags().Float64Var(&analysisDuration, "duration", 30.0,
		"seconds of audio to analyze")
}
