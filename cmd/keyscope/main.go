package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonido-labs/keyscope/config"
	"github.com/sonido-labs/keyscope/logging"
)

var (
	cfg     *config.Config
	cfgFile string
	verbose bool

	// shared analysis flags
	windowDuration float64
	hopDuration    float64
	chainFile      string
	paramFlags     []string
)

var rootCmd = &cobra.Command{
	Use:   "keyscope",
	Short: "Real-time musical key detection",
	Long: `Keyscope detects the musical key of audio using Krumhansl-Schmuckler
profile correlation over streaming chromagrams.

It analyzes audio files, live capture devices, and SRT network streams,
optionally running the audio through an effects chain first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logging.SetLevel(logging.DebugLevel)
		} else {
			logging.SetLevel(logging.WarnLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("window") {
			cfg.WindowDuration = windowDuration
			if !cmd.Flags().Changed("hop") {
				cfg.HopDuration = windowDuration
			}
		}
		if cmd.Flags().Changed("hop") {
			cfg.HopDuration = hopDuration
		}
		return cfg.Validate()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Float64Var(&windowDuration, "window", 3.0, "analysis window duration in seconds")
	rootCmd.PersistentFlags().Float64Var(&hopDuration, "hop", 3.0, "hop between analysis windows in seconds")
	rootCmd.PersistentFlags().StringVar(&chainFile, "chain", "", "effects chain file (YAML)")
	rootCmd.PersistentFlags().StringArrayVar(&paramFlags, "param", nil,
		"effects parameter override, plugin:name=value (repeatable)")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(srtCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(pluginsCmd)
}
