package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sonido-labs/keyscope/effects"
)

// buildChain assembles the effects chain from the --chain file and --param
// overrides. Returns nil when no chain is configured.
func buildChain(sampleRate int) (*effects.Chain, error) {
	var chain *effects.Chain
	var err error

	if chainFile != "" {
		chain, err = effects.LoadChainFile(chainFile, sampleRate)
		if err != nil {
			return nil, err
		}
	}

	if len(paramFlags) > 0 {
		if chain == nil {
			return nil, fmt.Errorf("--param requires --chain")
		}
		for _, flag := range paramFlags {
			plugin, name, value, err := parseParamFlag(flag)
			if err != nil {
				return nil, err
			}
			if err := chain.SetParameter(plugin, name, value); err != nil {
				return nil, err
			}
		}
	}

	return chain, nil
}

// parseParamFlag splits "plugin:name=value"
func parseParamFlag(flag string) (plugin, name string, value float64, err error) {
	plugin, rest, ok := strings.Cut(flag, ":")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid --param %q, expected plugin:name=value", flag)
	}
	name, valueStr, ok := strings.Cut(rest, "=")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid --param %q, expected plugin:name=value", flag)
	}
	value, err = strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid --param value %q: %w", valueStr, err)
	}
	return plugin, name, value, nil
}

// printChainParameters dumps every plugin's current parameters
func printChainParameters(chain *effects.Chain) {
	for i, plugin := range chain.Plugins() {
		fmt.Printf("%d. %s\n", i, plugin.Name())
		for _, spec := range plugin.Parameters() {
			value, err := plugin.GetParameter(spec.Name)
			if err != nil {
				continue
			}
			fmt.Printf("   %-12s %8.3f %-4s [%.3f .. %.3f]\n",
				spec.Name, value, spec.Unit, spec.Min, spec.Max)
		}
	}
}
