package effects

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sonido-labs/keyscope/logging"
	"github.com/sonido-labs/keyscope/stream"
)

// Chain is an ordered sequence of plugins applied to every frame before it
// reaches analysis. Order is insertion order and is significant: each plugin
// consumes the previous one's output.
//
// Process runs on the frame-producer path while Add/Remove/SetParameter run
// on a control path; the chain slice is guarded by a read lock around
// Process, and per-plugin parameters are atomic inside the plugins
// themselves, so a control update never tears a value seen by an in-flight
// Process call.
type Chain struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewChain creates an empty effects chain
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a plugin to the end of the chain and applies its initial
// parameters. Fails without mutating the chain when any initial parameter
// is unknown or out of range.
func (c *Chain) Add(plugin Plugin, initial map[string]float64) error {
	for name, value := range initial {
		if err := plugin.SetParameter(name, value); err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins = append(c.plugins, plugin)
	return nil
}

// Remove deletes the plugin at the given position, preserving the order of
// the rest. The remaining plugins are rebuilt into a fresh slice: Process
// iterates a snapshot of the slice outside the lock, so splicing in place
// would shift elements under an in-flight frame.
func (c *Chain) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.plugins) {
		return fmt.Errorf("%w: index %d", ErrPluginNotFound, index)
	}
	next := make([]Plugin, 0, len(c.plugins)-1)
	next = append(next, c.plugins[:index]...)
	next = append(next, c.plugins[index+1:]...)
	c.plugins = next
	return nil
}

// Len returns the number of plugins in the chain
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plugins)
}

// Process runs a frame through every plugin in order. Exceeding the frame's
// real-time budget means the pipeline is falling behind; that is logged as a
// caller-visible signal rather than silently absorbed.
func (c *Chain) Process(frame stream.Frame) stream.Frame {
	c.mu.RLock()
	plugins := c.plugins
	c.mu.RUnlock()

	if len(plugins) == 0 {
		return frame
	}

	budget := frame.Duration()
	start := time.Now()

	for _, p := range plugins {
		frame = p.Process(frame)
	}

	if elapsed := time.Since(start); budget > 0 && elapsed > budget {
		logging.Warn("Effects chain exceeded real-time budget", logging.Fields{
			"component": "effects_chain",
			"elapsed":   elapsed.String(),
			"budget":    budget.String(),
		})
	}
	return frame
}

// SetParameter updates one plugin's parameter. The plugin is selected by
// numeric index or by name; name selection targets the first match. Unknown
// parameter names and out-of-range values fail without mutating state.
func (c *Chain) SetParameter(indexOrName string, param string, value float64) error {
	plugin, err := c.lookup(indexOrName)
	if err != nil {
		return err
	}
	return plugin.SetParameter(param, value)
}

// ListParameters returns the current name to value mapping of one plugin
func (c *Chain) ListParameters(indexOrName string) (map[string]float64, error) {
	plugin, err := c.lookup(indexOrName)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, spec := range plugin.Parameters() {
		v, err := plugin.GetParameter(spec.Name)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = v
	}
	return out, nil
}

// Plugins returns the chain's plugins in order
func (c *Chain) Plugins() []Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Plugin, len(c.plugins))
	copy(out, c.plugins)
	return out
}

func (c *Chain) lookup(indexOrName string) (Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index, err := strconv.Atoi(indexOrName); err == nil {
		if index < 0 || index >= len(c.plugins) {
			return nil, fmt.Errorf("%w: index %d", ErrPluginNotFound, index)
		}
		return c.plugins[index], nil
	}

	for _, p := range c.plugins {
		if p.Name() == indexOrName {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPluginNotFound, indexOrName)
}
