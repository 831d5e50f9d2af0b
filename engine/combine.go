package engine

import (
	"math"

	"github.com/vsariola/polysynth"
)

// Reevaluator regenerates the raw waveform of an oscillator at an arbitrary
// phase, scaled by its volume. FM uses it to read the carriers at the
// modulated phase.
type Reevaluator interface {
	Reevaluate(osc int, phase float32) float32
}

// Combine mixes the outputs o of the oscillators of a voice. phase is the
// voice phase. In FM, the third oscillator modulates the phase of the second,
// which in turn modulates the first; only the first is heard.
func Combine(mode polysynth.CombinationMode, o *[polysynth.NumOscillators]float32, phase float32, r Reevaluator) float32 {
	switch mode {
	case polysynth.FM:
		v2 := r.Reevaluate(1, wrap(phase+o[2]*0.5))
		return r.Reevaluate(0, wrap(phase+v2*0.5))
	case polysynth.AM:
		return o[0] * (1 + o[1]) * (1 + o[2]) * 0.5
	case polysynth.RingMod:
		return o[0] * o[1] * o[2]
	case polysynth.FilterMode:
		amount := (o[1] + 1) / 2
		resonance := (o[2] + 1) / 2
		return o[0]*(1-amount) + float32(math.Tanh(float64(o[0])))*amount*(1+resonance)
	}
	return o[0] + o[1] + o[2]
}

// patchEvaluator is the Reevaluator of a patch.
type patchEvaluator struct {
	oscillators *[polysynth.NumOscillators]polysynth.Oscillator
	tables      Wavetables
	noise       NoiseSource
}

func (e *patchEvaluator) Reevaluate(osc int, phase float32) float32 {
	o := &e.oscillators[osc]
	if o.Volume <= 0 {
		return 0
	}
	return Generate(o.Waveform, phase, 0.5, e.tables, e.noise) * o.Volume
}
