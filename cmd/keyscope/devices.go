package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonido-labs/keyscope/stream"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := stream.ListDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("no input devices found")
			return nil
		}
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Printf("%s %3d  %-40s %d ch @ %d Hz\n",
				marker, d.Index, d.Name, d.Channels, d.SampleRate)
		}
		return nil
	},
}
