package keys

import (
	"github.com/sonido-labs/keyscope/chroma"
	"github.com/sonido-labs/keyscope/dsp"
)

// tieEpsilon bounds how close two correlation scores must be before the
// tie-break order applies instead of the raw maximum.
const tieEpsilon = 1e-9

// Estimate is the result of correlating one chromagram against the profile
// table. OK is false when the input carried no usable signal; such results
// assert no key and must be treated as "insufficient signal", never as a
// key change.
type Estimate struct {
	Key        Key
	Confidence float64 // Pearson coefficient of the winning profile, [-1, 1]
	OK         bool
}

// Label returns the estimate's key name, or "none" for a no-estimate result
func (e Estimate) Label() string {
	if !e.OK {
		return "none"
	}
	return e.Key.Label()
}

// Estimator selects the best-matching key profile for a chromagram
type Estimator struct{}

// NewEstimator creates a key estimator
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate correlates the chromagram against all 24 key profiles and returns
// the best match. prev, when non-nil, is the previously confirmed key; a
// profile matching it wins ties within tieEpsilon to reduce flapping.
// Remaining ties prefer major over minor, then the lower tonic index.
func (e *Estimator) Estimate(chromagram []float64, prev *Key) Estimate {
	if len(chromagram) != chroma.NumBins || chroma.IsZero(chromagram) {
		return Estimate{}
	}

	var best Estimate
	for _, profile := range Profiles() {
		r := dsp.PearsonCorrelation(chromagram, profile.Vector)

		switch {
		case !best.OK || r > best.Confidence+tieEpsilon:
			best = Estimate{Key: profile.Key, Confidence: r, OK: true}
		case r > best.Confidence-tieEpsilon:
			// Within epsilon of the current best: apply tie-break order
			if e.breaksTie(profile.Key, best.Key, prev) {
				best = Estimate{Key: profile.Key, Confidence: r, OK: true}
			}
		}
	}

	return best
}

// breaksTie reports whether candidate should displace incumbent when their
// scores are indistinguishable.
func (e *Estimator) breaksTie(candidate, incumbent Key, prev *Key) bool {
	if prev != nil {
		if candidate == *prev {
			return true
		}
		if incumbent == *prev {
			return false
		}
	}
	if candidate.Mode != incumbent.Mode {
		return candidate.Mode == ModeMajor
	}
	return candidate.Tonic < incumbent.Tonic
}
