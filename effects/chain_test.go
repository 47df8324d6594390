package effects

import (
	"errors"
	"math"
	"testing"

	"github.com/sonido-labs/keyscope/stream"
)

func testFrame(samples ...float64) stream.Frame {
	return stream.Frame{Samples: samples, SampleRate: 44100, Channels: 1}
}

func TestChainProcessOrder(t *testing.T) {
	chain := NewChain()

	// Two gain stages: +6 dB then -6 dB must cancel out
	first := NewGainPlugin()
	second := NewGainPlugin()
	if err := chain.Add(first, map[string]float64{"gain_db": 6}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := chain.Add(second, map[string]float64{"gain_db": -6}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	out := chain.Process(testFrame(0.5))
	if math.Abs(out.Samples[0]-0.5) > 1e-12 {
		t.Errorf("chained +6/-6 dB output = %v, want 0.5", out.Samples[0])
	}

	// Output must equal sequential application in insertion order
	sequential := second.Process(first.Process(testFrame(0.25)))
	chained := chain.Process(testFrame(0.25))
	if math.Abs(sequential.Samples[0]-chained.Samples[0]) > 1e-12 {
		t.Errorf("chain output %v differs from sequential %v",
			chained.Samples[0], sequential.Samples[0])
	}
}

func TestChainEmptyPassthrough(t *testing.T) {
	chain := NewChain()
	in := testFrame(0.1, 0.2, 0.3)
	out := chain.Process(in)
	if &out.Samples[0] != &in.Samples[0] {
		t.Error("empty chain should pass the frame through untouched")
	}
}

func TestChainRemove(t *testing.T) {
	chain := NewChain()
	_ = chain.Add(NewGainPlugin(), map[string]float64{"gain_db": 20})
	_ = chain.Add(NewTransposePlugin(), nil)

	if err := chain.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if chain.Len() != 1 {
		t.Fatalf("Len = %d after remove, want 1", chain.Len())
	}
	if chain.Plugins()[0].Name() != "transpose" {
		t.Errorf("wrong plugin removed: %s remains", chain.Plugins()[0].Name())
	}

	if err := chain.Remove(5); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("out-of-range remove: got %v, want ErrPluginNotFound", err)
	}
}

// Remove must never shift plugins under an in-flight Process: frames run on
// the producer path while the chain is edited from a control path, so every
// processed frame sees either the old chain or the new one, nothing mixed.
func TestChainRemoveDuringProcess(t *testing.T) {
	chain := NewChain()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			out := chain.Process(testFrame(0.05))
			// Every chain state is gain-only: +20 dB, unity, or empty
			got := out.Samples[0]
			if math.Abs(got-0.05) > 1e-12 && math.Abs(got-0.5) > 1e-12 {
				t.Errorf("processed output %v matches no chain state", got)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if err := chain.Add(NewGainPlugin(), map[string]float64{"gain_db": 20}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := chain.Remove(0); err != nil {
			t.Fatalf("Remove: %v", err)
		}
	}
	<-done

	if chain.Len() != 0 {
		t.Errorf("Len = %d after balanced add/remove, want 0", chain.Len())
	}
}

func TestChainSetParameterUnknownName(t *testing.T) {
	chain := NewChain()
	_ = chain.Add(NewGainPlugin(), nil)

	before, err := chain.ListParameters("gain")
	if err != nil {
		t.Fatalf("ListParameters: %v", err)
	}

	if err := chain.SetParameter("gain", "bogus", 1); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("unknown parameter: got %v, want ErrUnknownParameter", err)
	}

	// Failed set must not mutate existing parameter state
	after, err := chain.ListParameters("gain")
	if err != nil {
		t.Fatalf("ListParameters: %v", err)
	}
	for name, v := range before {
		if after[name] != v {
			t.Errorf("parameter %s mutated by failed set: %v -> %v", name, v, after[name])
		}
	}
}

func TestChainSetParameterOutOfRange(t *testing.T) {
	chain := NewChain()
	_ = chain.Add(NewGainPlugin(), nil)

	if err := chain.SetParameter("gain", "gain_db", 100); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("out-of-range value: got %v, want ErrInvalidValue", err)
	}
	params, _ := chain.ListParameters("gain")
	if params["gain_db"] != 0 {
		t.Errorf("gain_db mutated by rejected set: %v", params["gain_db"])
	}
}

func TestChainSetParameterByIndex(t *testing.T) {
	chain := NewChain()
	_ = chain.Add(NewGainPlugin(), nil)
	_ = chain.Add(NewLowpassPlugin(44100), nil)

	if err := chain.SetParameter("1", "cutoff_hz", 500); err != nil {
		t.Fatalf("SetParameter by index: %v", err)
	}
	params, _ := chain.ListParameters("lowpass")
	if params["cutoff_hz"] != 500 {
		t.Errorf("cutoff_hz = %v, want 500", params["cutoff_hz"])
	}

	if err := chain.SetParameter("9", "cutoff_hz", 500); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("bad index: got %v, want ErrPluginNotFound", err)
	}
	if err := chain.SetParameter("reverb", "wet", 0.5); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("bad name: got %v, want ErrPluginNotFound", err)
	}
}

func TestChainAddRejectsBadInitialParams(t *testing.T) {
	chain := NewChain()
	err := chain.Add(NewGainPlugin(), map[string]float64{"nope": 1})
	if !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("bad initial params: got %v, want ErrUnknownParameter", err)
	}
	if chain.Len() != 0 {
		t.Errorf("failed Add still appended; Len = %d", chain.Len())
	}
}

func TestGainPlugin(t *testing.T) {
	g := NewGainPlugin()
	if err := g.SetParameter("gain_db", 20); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	out := g.Process(testFrame(0.05))
	if math.Abs(out.Samples[0]-0.5) > 1e-12 {
		t.Errorf("+20 dB of 0.05 = %v, want 0.5", out.Samples[0])
	}
}

func TestTransposePluginRatio(t *testing.T) {
	tr := NewTransposePlugin()
	if err := tr.SetParameter("semitones", 12); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}

	in := testFrame(make([]float64, 1000)...)
	out := tr.Process(in)

	// One octave up halves the sample count
	if math.Abs(float64(len(out.Samples))-500) > 1 {
		t.Errorf("octave-up output length = %d, want ~500", len(out.Samples))
	}
}

func TestHighpassRemovesDC(t *testing.T) {
	hp := NewHighpassPlugin(44100)

	constant := make([]float64, 8192)
	for i := range constant {
		constant[i] = 1.0
	}
	out := hp.Process(stream.Frame{Samples: constant, SampleRate: 44100, Channels: 1})

	// DC settles toward zero once the filter memory charges up
	tail := out.Samples[len(out.Samples)-1]
	if math.Abs(tail) > 0.05 {
		t.Errorf("highpass DC tail = %v, want near 0", tail)
	}
}
