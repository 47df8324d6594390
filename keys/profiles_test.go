package keys

import (
	"testing"
)

func TestProfilesCount(t *testing.T) {
	profiles := Profiles()
	if len(profiles) != NumProfiles {
		t.Fatalf("expected %d profiles, got %d", NumProfiles, len(profiles))
	}

	majors, minors := 0, 0
	for _, p := range profiles {
		if p.Key.Mode == ModeMajor {
			majors++
		} else {
			minors++
		}
	}
	if majors != 12 || minors != 12 {
		t.Errorf("expected 12 major and 12 minor profiles, got %d/%d", majors, minors)
	}
}

func TestProfileRotation(t *testing.T) {
	profiles := Profiles()

	// C major's tonic weight must land on pitch class 0
	cMajor := profiles[0]
	if cMajor.Key.Tonic != 0 || cMajor.Key.Mode != ModeMajor {
		t.Fatalf("profile 0 should be C major, got %s", cMajor.Label)
	}
	if cMajor.Vector[0] != majorTemplate[0] {
		t.Errorf("C major tonic weight: got %.2f, want %.2f", cMajor.Vector[0], majorTemplate[0])
	}

	// G major is the C major template rotated by 7: template[i] lands at (i+7)%12
	gMajor := profiles[7]
	if gMajor.Key.Tonic != 7 {
		t.Fatalf("profile 7 should be G major, got %s", gMajor.Label)
	}
	for i := range majorTemplate {
		got := gMajor.Vector[(i+7)%12]
		if got != majorTemplate[i] {
			t.Errorf("G major rotation at template index %d: got %.2f, want %.2f", i, got, majorTemplate[i])
		}
	}
}

func TestKeyLabels(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Tonic: 0, Mode: ModeMajor}, "C major"},
		{Key{Tonic: 1, Mode: ModeMajor}, "C# major"},
		{Key{Tonic: 9, Mode: ModeMinor}, "A minor"},
		{Key{Tonic: 11, Mode: ModeMinor}, "B minor"},
		{Key{Tonic: 6, Mode: ModeMajor}, "F# major"},
	}
	for _, tt := range tests {
		if got := tt.key.Label(); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestRelativeKey(t *testing.T) {
	cMajor := Key{Tonic: 0, Mode: ModeMajor}
	aMinor := RelativeKey(cMajor)
	if aMinor.Tonic != 9 || aMinor.Mode != ModeMinor {
		t.Errorf("relative of C major should be A minor, got %s", aMinor.Label())
	}
	back := RelativeKey(aMinor)
	if back != cMajor {
		t.Errorf("relative of A minor should be C major, got %s", back.Label())
	}
}

func TestParallelKey(t *testing.T) {
	cMajor := Key{Tonic: 0, Mode: ModeMajor}
	cMinor := ParallelKey(cMajor)
	if cMinor.Tonic != 0 || cMinor.Mode != ModeMinor {
		t.Errorf("parallel of C major should be C minor, got %s", cMinor.Label())
	}
}
