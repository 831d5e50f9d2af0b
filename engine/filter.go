package engine

import (
	"math"

	"github.com/vsariola/polysynth"
)

const (
	minCutoff = 0.01
	maxCutoff = 0.99
)

// ApplyFilter shapes the amplitude of a sample according to the filter kind
// and cutoff. It keeps no state: these are level heuristics, not real
// filters, and resonance has no effect.
func ApplyFilter(sample float32, kind polysynth.FilterKind, cutoff, resonance float32) float32 {
	if kind == polysynth.NoFilter {
		return sample
	}
	if cutoff != cutoff { // NaN
		cutoff = minCutoff
	}
	c := min(max(cutoff, minCutoff), maxCutoff)
	switch kind {
	case polysynth.LowPass:
		return sample * float32(math.Sqrt(float64(c)))
	case polysynth.HighPass:
		return sample * (1 - float32(math.Sqrt(float64(c))))
	case polysynth.BandPass:
		return sample * bandFactor(c)
	case polysynth.Notch:
		return sample * (1 - bandFactor(c))
	}
	return sample
}

func bandFactor(c float32) float32 {
	return 1 - 2*float32(math.Abs(float64(c-0.5)))
}
