package chroma

import (
	"math"

	"github.com/sonido-labs/keyscope/dsp"
)

// NumBins is the number of pitch classes in a chromagram (C, C#, ..., B)
const NumBins = 12

// energyEpsilon is the total-energy floor below which a block is treated as
// silence and the extractor returns the all-zero chromagram.
const energyEpsilon = 1e-10

// Extractor converts a mono sample block into a 12-bin pitch-class energy
// profile (chromagram).
//
// Algorithm: short-time Fourier analysis with a Hann window; each frequency
// bin's squared magnitude is accumulated into the pitch class
//
//	pc = round(69 + 12*log2(f/tuning)) mod 12
//
// over the frequency range [minFreq, maxFreq], summed across frames and
// normalized to unit sum. This is the STFT-chroma variant (rather than a
// full constant-Q transform); its parameters are fixed and documented here
// because the correlation-based key estimate only needs octave-folded energy
// ratios, not bin-exact CQT output.
type Extractor struct {
	sampleRate int
	tuningFreq float64 // A4 reference frequency (default 440 Hz)
	minFreq    float64 // lowest frequency considered (default 80 Hz, ~E2)
	maxFreq    float64 // highest frequency considered (default 8 kHz)
	fftSize    int
	fftHop     int

	stft   *dsp.STFT
	window *dsp.HannWindow

	// frequency bin -> chroma bin mapping, cached per (fftSize, sampleRate)
	mapping []int
}

// Params configures an Extractor. Zero values fall back to defaults.
type Params struct {
	TuningFreq float64
	MinFreq    float64
	MaxFreq    float64
	FFTSize    int
	FFTHop     int
}

// NewExtractor creates a chromagram extractor with standard A4=440Hz tuning
func NewExtractor(sampleRate int) *Extractor {
	return NewExtractorWithParams(sampleRate, Params{})
}

// NewExtractorWithParams creates a chromagram extractor with custom parameters
func NewExtractorWithParams(sampleRate int, p Params) *Extractor {
	if p.TuningFreq <= 0 {
		p.TuningFreq = 440.0
	}
	if p.MinFreq <= 0 {
		p.MinFreq = 80.0
	}
	if p.MaxFreq <= 0 {
		p.MaxFreq = 8000.0
	}
	if p.FFTSize <= 0 {
		p.FFTSize = 4096
	}
	if p.FFTHop <= 0 {
		p.FFTHop = p.FFTSize / 2
	}

	e := &Extractor{
		sampleRate: sampleRate,
		tuningFreq: p.TuningFreq,
		minFreq:    p.MinFreq,
		maxFreq:    p.MaxFreq,
		fftSize:    p.FFTSize,
		fftHop:     p.FFTHop,
		stft:       dsp.NewSTFT(),
		window:     dsp.NewHannWindow(p.FFTSize),
	}
	e.mapping = e.buildMapping(p.FFTSize/2+1, float64(sampleRate)/float64(p.FFTSize))
	return e
}

// Compute returns the normalized 12-bin chromagram for a mono sample block.
// Near-silent or empty input yields an all-zero vector; callers detect that
// with IsZero and treat it as "no estimate".
func (e *Extractor) Compute(samples []float64) []float64 {
	chromagram := make([]float64, NumBins)
	if len(samples) == 0 {
		return chromagram
	}

	var spec *dsp.Spectrogram
	var err error
	var mapping []int

	if len(samples) >= e.fftSize {
		spec, err = e.stft.Compute(samples, e.fftSize, e.fftHop, e.sampleRate, e.window)
		mapping = e.mapping
	} else {
		// Block shorter than one window: analyze it as a single frame
		spec, err = e.stft.ComputeSingleFrame(samples, e.sampleRate)
		if err == nil {
			mapping = e.buildMapping(spec.FreqBins, spec.FreqResolution)
		}
	}
	if err != nil {
		return chromagram
	}

	for t := 0; t < spec.TimeFrames; t++ {
		for f := 0; f < spec.FreqBins; f++ {
			bin := mapping[f]
			if bin < 0 {
				continue
			}
			magnitude := spec.Magnitude[t][f]
			chromagram[bin] += magnitude * magnitude
		}
	}

	dsp.NormalizeSum(chromagram, energyEpsilon)
	return chromagram
}

// buildMapping maps FFT bins to chroma bins; bins outside [minFreq, maxFreq]
// map to -1.
func (e *Extractor) buildMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := 0; f < freqBins; f++ {
		frequency := float64(f) * freqResolution

		if frequency < e.minFreq || frequency > e.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := 69.0 + 12.0*math.Log2(frequency/e.tuningFreq)
		mapping[f] = ((int(math.Round(midiNote)) % NumBins) + NumBins) % NumBins
	}

	return mapping
}

// IsZero reports whether a chromagram carries no energy (the "no estimate"
// sentinel produced for silence).
func IsZero(chromagram []float64) bool {
	for _, v := range chromagram {
		if v != 0 {
			return false
		}
	}
	return true
}

// Labels returns the chroma bin labels in order
func Labels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}
