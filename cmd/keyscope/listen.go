package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonido-labs/keyscope/detector"
	"github.com/sonido-labs/keyscope/stream"
)

var deviceIndex int

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Detect keys from a live capture device",
	Long: `Listen captures audio from an input device and prints the detected key
as it stabilizes and changes. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source := stream.NewDeviceSource(stream.DeviceSourceConfig{
			DeviceIndex: deviceIndex,
			SampleRate:  cfg.SampleRate,
			Channels:    cfg.Channels,
			BlockSize:   cfg.BlockSize,
		})
		return runLive(cmd.Context(), source)
	},
}

func init() {
	listenCmd.Flags().IntVar(&deviceIndex, "device", -1,
		"input device index (see 'keyscope devices'), -1 for default")
}

// runLive drives a live session: start, print key changes, stop on signal
// or terminal pipeline error.
func runLive(ctx context.Context, source stream.Source) error {
	chain, err := buildChain(cfg.SampleRate)
	if err != nil {
		return err
	}

	var opts []detector.Option
	if chain != nil {
		opts = append(opts, detector.WithChain(chain))
	}
	opts = append(opts, detector.WithChangeHandler(func(old, new string) {
		fmt.Printf("%s  key: %s (was %s)\n", time.Now().Format("15:04:05"), new, old)
	}))

	d := detector.New(cfg, source, opts...)
	if err := d.Start(ctx); err != nil {
		_ = source.Close()
		return err
	}

	fmt.Println("listening... press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	waitCh := make(chan error, 1)
	go func() { waitCh <- d.Wait() }()

	select {
	case <-sigCh:
		fmt.Println("\nstopping...")
	case err = <-waitCh:
	}

	stopErr := d.Stop()
	if err != nil {
		return err
	}
	if stopErr != nil {
		return stopErr
	}

	stats := d.Stats()
	fmt.Printf("final key: %s (windows analyzed: %d, samples dropped: %d)\n",
		d.CurrentKey(), stats.WindowsAnalyzed, stats.SamplesDropped)
	return nil
}
