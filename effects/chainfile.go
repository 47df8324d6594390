package effects

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChainFile is the on-disk description of an effects chain:
//
//	plugins:
//	  - name: highpass
//	    params:
//	      cutoff_hz: 120
//	  - name: gain
//	    params:
//	      gain_db: -3
type ChainFile struct {
	Plugins []ChainEntry `yaml:"plugins"`
}

// ChainEntry is one plugin slot in a chain file
type ChainEntry struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// LoadChainFile reads a YAML chain description and builds the chain,
// instantiating each plugin at the given sample rate. Any unknown plugin,
// unknown parameter, or out-of-range value fails the whole load.
func LoadChainFile(path string, sampleRate int) (*Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	return BuildChain(data, sampleRate)
}

// BuildChain parses YAML chain bytes and assembles the chain
func BuildChain(data []byte, sampleRate int) (*Chain, error) {
	var cf ChainFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse chain file: %w", err)
	}

	chain := NewChain()
	for i, entry := range cf.Plugins {
		plugin, err := Load(entry.Name, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("chain entry %d: %w", i, err)
		}
		if err := chain.Add(plugin, entry.Params); err != nil {
			return nil, fmt.Errorf("chain entry %d: %w", i, err)
		}
	}
	return chain, nil
}
