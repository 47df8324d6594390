package effects

import (
	"errors"
	"fmt"

	"github.com/sonido-labs/keyscope/stream"
)

// Effects chain errors
var (
	ErrUnknownPlugin    = errors.New("unknown plugin")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidValue     = errors.New("parameter value out of range")
	ErrPluginNotFound   = errors.New("plugin not found in chain")
)

// ParamSpec declares one plugin parameter: its name, legal range, and
// default. Plugins expose their specs so the host can validate values
// without knowing the DSP behind them.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Unit    string
}

// Validate checks a value against the spec's range
func (p ParamSpec) Validate(value float64) error {
	if value < p.Min || value > p.Max {
		return fmt.Errorf("%w: %s=%.3f outside [%.3f, %.3f]",
			ErrInvalidValue, p.Name, value, p.Min, p.Max)
	}
	return nil
}

// Plugin is one audio transform in a chain. The host treats it as opaque:
// process a frame, expose parameters. Process may be called from the frame
// producer path concurrently with SetParameter from a control path, so
// implementations must make each parameter individually atomic.
type Plugin interface {
	Name() string
	Process(frame stream.Frame) stream.Frame
	Parameters() []ParamSpec
	GetParameter(name string) (float64, error)
	SetParameter(name string, value float64) error
}
