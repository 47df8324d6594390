package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonido-labs/keyscope/effects"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List effects plugins and their parameters",
	Long: `Plugins lists the available effects plugins. With --chain, it shows the
chain's current parameter values instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if chainFile != "" {
			chain, err := buildChain(cfg.SampleRate)
			if err != nil {
				return err
			}
			printChainParameters(chain)
			return nil
		}

		for _, name := range effects.Available() {
			plugin, err := effects.Load(name, cfg.SampleRate)
			if err != nil {
				continue
			}
			fmt.Println(plugin.Name())
			for _, spec := range plugin.Parameters() {
				fmt.Printf("   %-12s default %8.3f %-4s [%.3f .. %.3f]\n",
					spec.Name, spec.Default, spec.Unit, spec.Min, spec.Max)
			}
		}
		return nil
	},
}
