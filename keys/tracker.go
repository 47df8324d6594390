package keys

import (
	"sync"
)

// trackerState enumerates the hysteresis states
type trackerState int

const (
	stateNoKey trackerState = iota
	stateCandidate
	stateConfirmed
)

// Change describes one confirmed key transition. Old is "none" when the
// first key of a session is confirmed.
type Change struct {
	Old string
	New string
}

// Tracker smooths noisy per-window key estimates into confirmed key-change
// events. It is the pipeline's anti-flicker mechanism: a key only becomes
// externally visible after ConfirmationCount consecutive windows agree, so a
// single outlier window can never produce a visible change.
//
// Safe for concurrent use: the analysis loop calls Observe while callers
// read Confirmed/Best at their own pace.
type Tracker struct {
	mu sync.Mutex

	confirmations int
	minConfidence float64

	state     trackerState
	candidate Key
	count     int
	confirmed Key
	hasKey    bool
}

// NewTracker creates a tracker requiring confirmations consecutive agreeing
// estimates (minimum 1) with confidence at least minConfidence.
func NewTracker(confirmations int, minConfidence float64) *Tracker {
	if confirmations < 1 {
		confirmations = 1
	}
	return &Tracker{
		confirmations: confirmations,
		minConfidence: minConfidence,
	}
}

// Observe feeds one estimate through the state machine. It returns the
// visible key change and true exactly when a Candidate -> Confirmed
// transition changes the externally-visible key.
func (t *Tracker) Observe(e Estimate) (Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Degenerate estimates never perturb state
	if !e.OK || e.Confidence < t.minConfidence {
		if t.state == stateCandidate {
			t.state = stateNoKey
			t.count = 0
			if t.hasKey {
				// A confirmed key stays visible through low-confidence gaps
				t.state = stateConfirmed
			}
		}
		return Change{}, false
	}

	switch t.state {
	case stateNoKey:
		t.state = stateCandidate
		t.candidate = e.Key
		t.count = 1

	case stateCandidate:
		if e.Key == t.candidate {
			t.count++
		} else {
			t.candidate = e.Key
			t.count = 1
		}

	case stateConfirmed:
		if e.Key == t.confirmed {
			return Change{}, false
		}
		t.state = stateCandidate
		t.candidate = e.Key
		t.count = 1
	}

	if t.state == stateCandidate && t.count >= t.confirmations {
		old := "none"
		if t.hasKey {
			if t.candidate == t.confirmed {
				// Re-confirming the visible key is not a change
				t.state = stateConfirmed
				return Change{}, false
			}
			old = t.confirmed.Label()
		}
		t.confirmed = t.candidate
		t.hasKey = true
		t.state = stateConfirmed
		return Change{Old: old, New: t.confirmed.Label()}, true
	}

	return Change{}, false
}

// Confirmed returns the externally-visible key, if any
func (t *Tracker) Confirmed() (Key, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirmed, t.hasKey
}

// Best returns the confirmed key, falling back to the current candidate.
// Used by one-shot file analysis where the stream may end before the
// confirmation count is reached.
func (t *Tracker) Best() (Key, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasKey {
		return t.confirmed, true
	}
	if t.state == stateCandidate {
		return t.candidate, true
	}
	return Key{}, false
}

// Reset returns the tracker to its initial NoKey state
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = stateNoKey
	t.count = 0
	t.hasKey = false
}
