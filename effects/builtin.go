package effects

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sonido-labs/keyscope/stream"
)

// atomicFloat is a float64 readable and writable without locks, stored as
// raw bits. Plugins use it for every parameter so the control path can
// update values while Process runs on the frame-producer path: a reader
// sees either the old or new value, never a torn one.
type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) Load() float64   { return math.Float64frombits(a.bits.Load()) }
func (a *atomicFloat) Store(v float64) { a.bits.Store(math.Float64bits(v)) }

func newAtomicFloat(v float64) *atomicFloat {
	a := &atomicFloat{}
	a.Store(v)
	return a
}

// paramTable is the shared parameter plumbing for builtin plugins
type paramTable struct {
	specs  []ParamSpec
	values map[string]*atomicFloat
}

func newParamTable(specs []ParamSpec) *paramTable {
	values := make(map[string]*atomicFloat, len(specs))
	for _, s := range specs {
		values[s.Name] = newAtomicFloat(s.Default)
	}
	return &paramTable{specs: specs, values: values}
}

func (p *paramTable) get(name string) (float64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return v.Load(), nil
}

func (p *paramTable) set(name string, value float64) error {
	v, ok := p.values[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	for _, s := range p.specs {
		if s.Name == name {
			if err := s.Validate(value); err != nil {
				return err
			}
			break
		}
	}
	v.Store(value)
	return nil
}

// GainPlugin scales sample amplitude by a dB gain
type GainPlugin struct {
	params *paramTable
}

// NewGainPlugin creates a gain stage, default 0 dB (unity)
func NewGainPlugin() *GainPlugin {
	return &GainPlugin{params: newParamTable([]ParamSpec{
		{Name: "gain_db", Min: -60, Max: 24, Default: 0, Unit: "dB"},
	})}
}

func (g *GainPlugin) Name() string { return "gain" }

func (g *GainPlugin) Process(frame stream.Frame) stream.Frame {
	db, _ := g.params.get("gain_db")
	if db == 0 {
		return frame
	}
	scale := math.Pow(10, db/20)
	out := make([]float64, len(frame.Samples))
	for i, s := range frame.Samples {
		out[i] = s * scale
	}
	frame.Samples = out
	return frame
}

func (g *GainPlugin) Parameters() []ParamSpec { return g.params.specs }
func (g *GainPlugin) GetParameter(name string) (float64, error) {
	return g.params.get(name)
}
func (g *GainPlugin) SetParameter(name string, value float64) error {
	return g.params.set(name, value)
}

// LowpassPlugin is a one-pole lowpass filter. Filter memory persists across
// frames; the cutoff is re-read per frame so parameter changes take effect
// on the next Process call.
type LowpassPlugin struct {
	params     *paramTable
	sampleRate int
	state      []float64 // one accumulator per channel
}

// NewLowpassPlugin creates a lowpass filter, default cutoff 2 kHz
func NewLowpassPlugin(sampleRate int) *LowpassPlugin {
	return &LowpassPlugin{
		params: newParamTable([]ParamSpec{
			{Name: "cutoff_hz", Min: 20, Max: 20000, Default: 2000, Unit: "Hz"},
		}),
		sampleRate: sampleRate,
	}
}

func (l *LowpassPlugin) Name() string { return "lowpass" }

func (l *LowpassPlugin) Process(frame stream.Frame) stream.Frame {
	cutoff, _ := l.params.get("cutoff_hz")
	alpha := onePoleAlpha(cutoff, l.sampleRate)

	if len(l.state) != frame.Channels {
		l.state = make([]float64, frame.Channels)
	}

	out := make([]float64, len(frame.Samples))
	for i, s := range frame.Samples {
		c := i % frame.Channels
		l.state[c] += alpha * (s - l.state[c])
		out[i] = l.state[c]
	}
	frame.Samples = out
	return frame
}

func (l *LowpassPlugin) Parameters() []ParamSpec { return l.params.specs }
func (l *LowpassPlugin) GetParameter(name string) (float64, error) {
	return l.params.get(name)
}
func (l *LowpassPlugin) SetParameter(name string, value float64) error {
	return l.params.set(name, value)
}

// HighpassPlugin is a one-pole highpass filter (input minus lowpassed input)
type HighpassPlugin struct {
	params     *paramTable
	sampleRate int
	state      []float64
}

// NewHighpassPlugin creates a highpass filter, default cutoff 80 Hz
func NewHighpassPlugin(sampleRate int) *HighpassPlugin {
	return &HighpassPlugin{
		params: newParamTable([]ParamSpec{
			{Name: "cutoff_hz", Min: 20, Max: 20000, Default: 80, Unit: "Hz"},
		}),
		sampleRate: sampleRate,
	}
}

func (h *HighpassPlugin) Name() string { return "highpass" }

func (h *HighpassPlugin) Process(frame stream.Frame) stream.Frame {
	cutoff, _ := h.params.get("cutoff_hz")
	alpha := onePoleAlpha(cutoff, h.sampleRate)

	if len(h.state) != frame.Channels {
		h.state = make([]float64, frame.Channels)
	}

	out := make([]float64, len(frame.Samples))
	for i, s := range frame.Samples {
		c := i % frame.Channels
		h.state[c] += alpha * (s - h.state[c])
		out[i] = s - h.state[c]
	}
	frame.Samples = out
	return frame
}

func (h *HighpassPlugin) Parameters() []ParamSpec { return h.params.specs }
func (h *HighpassPlugin) GetParameter(name string) (float64, error) {
	return h.params.get(name)
}
func (h *HighpassPlugin) SetParameter(name string, value float64) error {
	return h.params.set(name, value)
}

// TransposePlugin shifts pitch by a semitone offset using linear-interpolated
// resampling. Output frames are shorter or longer than input by the pitch
// ratio; the downstream scheduler absorbs the length change. Intended for
// verifying detection against transposed material.
type TransposePlugin struct {
	params *paramTable
}

// NewTransposePlugin creates a transposer, default 0 semitones (passthrough)
func NewTransposePlugin() *TransposePlugin {
	return &TransposePlugin{params: newParamTable([]ParamSpec{
		{Name: "semitones", Min: -12, Max: 12, Default: 0, Unit: "st"},
	})}
}

func (t *TransposePlugin) Name() string { return "transpose" }

func (t *TransposePlugin) Process(frame stream.Frame) stream.Frame {
	semitones, _ := t.params.get("semitones")
	if semitones == 0 || frame.Channels != 1 {
		return frame
	}

	ratio := math.Pow(2, semitones/12)
	outLen := int(float64(len(frame.Samples)) / ratio)
	if outLen < 2 {
		return frame
	}

	out := make([]float64, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(frame.Samples)-1 {
			out[i] = frame.Samples[len(frame.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = frame.Samples[j]*(1-frac) + frame.Samples[j+1]*frac
	}
	frame.Samples = out
	return frame
}

func (t *TransposePlugin) Parameters() []ParamSpec { return t.params.specs }
func (t *TransposePlugin) GetParameter(name string) (float64, error) {
	return t.params.get(name)
}
func (t *TransposePlugin) SetParameter(name string, value float64) error {
	return t.params.set(name, value)
}

// onePoleAlpha derives the smoothing coefficient for a one-pole filter
func onePoleAlpha(cutoff float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 1
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	return dt / (rc + dt)
}

// Load instantiates a builtin plugin by name
func Load(name string, sampleRate int) (Plugin, error) {
	switch name {
	case "gain":
		return NewGainPlugin(), nil
	case "lowpass":
		return NewLowpassPlugin(sampleRate), nil
	case "highpass":
		return NewHighpassPlugin(sampleRate), nil
	case "transpose":
		return NewTransposePlugin(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
	}
}

// Available returns the builtin plugin names
func Available() []string {
	return []string{"gain", "lowpass", "highpass", "transpose"}
}
