package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers used across the pipeline, backed by gonum

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, val := range data {
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// PearsonCorrelation calculates the Pearson correlation coefficient between
// two equal-length vectors. Returns 0 for degenerate inputs (mismatched
// lengths, empty vectors, or zero variance) rather than NaN.
func PearsonCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) {
		return 0.0
	}
	return r
}

// NormalizeSum scales a vector in-place so its elements sum to 1. Vectors
// whose total is below epsilon are zeroed instead, so near-silence never
// produces a fabricated distribution.
func NormalizeSum(data []float64, epsilon float64) {
	total := floats.Sum(data)
	if total < epsilon {
		for i := range data {
			data[i] = 0.0
		}
		return
	}
	floats.Scale(1.0/total, data)
}
