package keys

// Mode represents major or minor mode
type Mode int

const (
	ModeMajor Mode = iota
	ModeMinor
)

func (m Mode) String() string {
	if m == ModeMinor {
		return "minor"
	}
	return "major"
}

// NumProfiles is the number of key profiles (12 major + 12 minor)
const NumProfiles = 24

// pitchClasses maps tonic index (0=C .. 11=B) to note name
var pitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Schmuckler profile templates, empirically derived from listener
// ratings. Index 0 is the tonic; the 24 key profiles are circular rotations
// of these two vectors.
var (
	majorTemplate = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorTemplate = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// Key identifies a musical key by tonic pitch class and mode
type Key struct {
	Tonic int  // 0=C .. 11=B
	Mode  Mode // major or minor
}

// Label returns the human-readable key name, e.g. "C major"
func (k Key) Label() string {
	return pitchClasses[((k.Tonic%12)+12)%12] + " " + k.Mode.String()
}

// Profile is one of the 24 reference pitch-class weight vectors
type Profile struct {
	Key    Key
	Vector []float64
	Label  string
}

// profiles is the process-wide immutable profile table, built once at
// startup. No write path exists after init, so reads need no
// synchronization.
var profiles = buildProfiles()

func buildProfiles() []Profile {
	out := make([]Profile, 0, NumProfiles)
	for tonic := 0; tonic < 12; tonic++ {
		out = append(out, Profile{
			Key:    Key{Tonic: tonic, Mode: ModeMajor},
			Vector: rotateTemplate(majorTemplate, tonic),
			Label:  Key{Tonic: tonic, Mode: ModeMajor}.Label(),
		})
	}
	for tonic := 0; tonic < 12; tonic++ {
		out = append(out, Profile{
			Key:    Key{Tonic: tonic, Mode: ModeMinor},
			Vector: rotateTemplate(minorTemplate, tonic),
			Label:  Key{Tonic: tonic, Mode: ModeMinor}.Label(),
		})
	}
	return out
}

// rotateTemplate shifts a canonical template so that the tonic weight lands
// on the given pitch class: vector[(i+tonic) mod 12] = template[i].
func rotateTemplate(template []float64, tonic int) []float64 {
	rotated := make([]float64, len(template))
	for i := range template {
		rotated[(i+tonic)%len(template)] = template[i]
	}
	return rotated
}

// Profiles returns the 24 key profiles (12 major followed by 12 minor).
// The returned slice and its vectors must not be modified.
func Profiles() []Profile {
	return profiles
}

// PitchClassName returns the note name for a pitch class index
func PitchClassName(pc int) string {
	return pitchClasses[((pc%12)+12)%12]
}

// RelativeKey returns the relative major/minor of a key (A minor for
// C major, and vice versa)
func RelativeKey(k Key) Key {
	if k.Mode == ModeMajor {
		return Key{Tonic: (k.Tonic + 9) % 12, Mode: ModeMinor}
	}
	return Key{Tonic: (k.Tonic + 3) % 12, Mode: ModeMajor}
}

// ParallelKey returns the parallel major/minor of a key (C minor for C major)
func ParallelKey(k Key) Key {
	if k.Mode == ModeMajor {
		return Key{Tonic: k.Tonic, Mode: ModeMinor}
	}
	return Key{Tonic: k.Tonic, Mode: ModeMajor}
}
