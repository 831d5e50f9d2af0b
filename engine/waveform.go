package engine

import (
	"math"
	"math/rand/v2"

	"github.com/vsariola/polysynth"
)

type (
	// NoiseSource produces the WhiteNoise waveform. The render path and the
	// preview path use different sources and never share state.
	NoiseSource interface {
		Noise(phase float32) float32
	}

	// RandomNoise is uniform noise in [-1, 1). It is owned by the render
	// thread; it is not safe for concurrent use.
	RandomNoise struct {
		rng *rand.Rand
	}

	// PreviewNoise is a pure function of the phase, so that waveform previews
	// are the same every time they are drawn.
	PreviewNoise struct{}
)

func NewRandomNoise(seed uint64) *RandomNoise {
	return &RandomNoise{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (n *RandomNoise) Noise(float32) float32 {
	return n.rng.Float32()*2 - 1
}

func (PreviewNoise) Noise(phase float32) float32 {
	seed := int32(phase * 1000)
	return float32(math.Sin(float64(seed*15731+789221) * 0.000000000931322574615478515625))
}

// Generate returns the value of waveform w at the given phase in [0, 1).
// pulseWidth is only used by Square; tables are the loaded wavetables
// addressed by CustomSample.
func Generate(w polysynth.Waveform, phase, pulseWidth float32, tables Wavetables, noise NoiseSource) float32 {
	switch w.Kind {
	case polysynth.Sine:
		return float32(math.Sin(2 * math.Pi * float64(phase)))
	case polysynth.Square:
		if phase < pulseWidth {
			return 1
		}
		return -1
	case polysynth.Saw:
		return 2*phase - 1
	case polysynth.Triangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return -4 + 4*phase
		}
	case polysynth.WhiteNoise:
		return noise.Noise(phase)
	case polysynth.CustomSample:
		return tables.Get(w.Sample).At(phase)
	}
	return 0
}

// wrap returns x modulo 1, always in [0, 1).
func wrap(x float32) float32 {
	x -= float32(math.Floor(float64(x)))
	if x >= 1 {
		return 0
	}
	return x
}
