package engine

import "github.com/vsariola/polysynth"

// Stage is the envelope stage of a voice. Off, Pressed and Released mark
// voices outside the regular note-on/note-off cycle; they are silent.
type Stage int

const (
	Attack Stage = iota
	Decay
	Sustain
	Release
	Off
	Pressed
	Released
)

func (s Stage) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	case Off:
		return "off"
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	}
	return "unknown"
}

// Step advances the master envelope by dt seconds and returns its value.
// Time is advanced before evaluation. When a stage completes the stage
// changes and the time resets; done reports that the release has finished
// and the voice can be removed.
func Step(e *polysynth.Envelope, stage Stage, t, dt float32) (value float32, next Stage, nt float32, done bool) {
	switch stage {
	case Attack:
		t += dt
		v := ratio(t, e.Attack)
		if v >= 1 {
			return 1, Decay, 0, false
		}
		return v, Attack, t, false
	case Decay:
		t += dt
		v := 1 - (1-e.Sustain)*ratio(t, e.Decay)
		if v <= e.Sustain || t >= e.Decay {
			return e.Sustain, Sustain, 0, false
		}
		return v, Decay, t, false
	case Sustain:
		return e.Sustain, Sustain, t, false
	case Release:
		t += dt
		v := e.Sustain * (1 - ratio(t, e.Release))
		if v <= 0 || t >= e.Release {
			return 0, Release, t, true
		}
		return v, Release, t, false
	}
	return 0, stage, t, false
}

// Level evaluates an envelope at a stage and time without changing anything.
// Oscillator envelopes follow the stage of the voice, whose timing is set by
// the master envelope, so the value is kept between the levels the stage
// moves between.
func Level(e *polysynth.Envelope, stage Stage, t float32) float32 {
	switch stage {
	case Attack:
		return min(ratio(t, e.Attack), 1)
	case Decay:
		return max(1-(1-e.Sustain)*min(ratio(t, e.Decay), 1), e.Sustain)
	case Sustain:
		return e.Sustain
	case Release:
		return max(e.Sustain*(1-min(ratio(t, e.Release), 1)), 0)
	}
	return 0
}

// ratio is t/d, with zero-length stages counting as already complete.
func ratio(t, d float32) float32 {
	if d <= 0 {
		return 1
	}
	return t / d
}
