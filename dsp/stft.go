package dsp

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"
)

// STFT computes magnitude spectrograms for the chroma extractor. Phase is
// never needed for pitch-class analysis, so only magnitudes are kept.
type STFT struct {
	fft *FFT
}

// Spectrogram holds the result of a magnitude STFT
type Spectrogram struct {
	Magnitude      [][]float64 // Time x Frequency magnitude matrix
	TimeFrames     int         // Number of time frames
	FreqBins       int         // Number of frequency bins (positive half)
	SampleRate     int         // Sample rate
	WindowSize     int         // FFT window size
	HopSize        int         // Hop size between frames
	FreqResolution float64     // Frequency resolution (Hz/bin)
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{fft: NewFFT()}
}

// Compute computes the magnitude spectrogram of a mono signal with the given
// window function. Frames are processed in parallel across a worker pool.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int, window *HannWindow) (*Spectrogram, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := min(runtime.NumCPU(), numFrames)

	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse the frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				startIdx := frameIdx * hopSize
				copy(frameBuffer, signal[startIdx:startIdx+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						continue
					}
				}

				fftResult := s.fft.Compute(frameBuffer)
				for i := 0; i < freqBins; i++ {
					magnitude[frameIdx][i] = cmplx.Abs(fftResult[i])
				}
			}
		}()
	}

	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	return &Spectrogram{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
	}, nil
}

// ComputeSingleFrame computes a single whole-signal magnitude spectrum.
// Used when the analysis block is shorter than one STFT window.
func (s *STFT) ComputeSingleFrame(signal []float64, sampleRate int) (*Spectrogram, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	fftResult := s.fft.Compute(signal)
	freqBins := min(len(fftResult), len(fftResult)/2+1)

	magnitude := make([][]float64, 1)
	magnitude[0] = make([]float64, freqBins)
	for i := 0; i < freqBins; i++ {
		magnitude[0][i] = cmplx.Abs(fftResult[i])
	}

	return &Spectrogram{
		Magnitude:      magnitude,
		TimeFrames:     1,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     len(signal),
		HopSize:        len(signal),
		FreqResolution: float64(sampleRate) / float64(len(signal)),
	}, nil
}
