package polysynth

import (
	"fmt"
	"math"
)

type (
	// WaveKind selects the waveform an oscillator generates.
	WaveKind int

	// Waveform is a wave kind plus, for CustomSample, the index of the
	// wavetable to play.
	Waveform struct {
		Kind   WaveKind
		Sample int `yaml:",omitempty"`
	}

	FilterKind int

	// Filter is the cutoff/resonance shaping applied to an oscillator or to
	// the master output. Cutoff is normalized to [0, 1]. Resonance is carried
	// around for presets but does not affect the sound.
	Filter struct {
		Kind      FilterKind
		Cutoff    float32
		Resonance float32
	}

	ModTarget int

	// Modulation routes the built-in LFO of an oscillator to Target with the
	// given depth in [0, 1].
	Modulation struct {
		Target ModTarget
		Amount float32
	}

	// CombinationMode is the algorithm used to merge the outputs of the
	// oscillators of one voice.
	CombinationMode int

	// Envelope is an ADSR envelope. Attack, Decay and Release are in seconds,
	// Sustain is a level in [0, 1].
	Envelope struct {
		Attack  float32
		Decay   float32
		Sustain float32
		Release float32
	}

	// Oscillator is the configuration of one oscillator slot.
	Oscillator struct {
		Waveform   Waveform
		Volume     float32
		Detune     float32 // semitones
		Octave     int
		Envelope   Envelope
		Filter     Filter
		Modulation Modulation
	}

	// Patch is everything that defines the sound of the synth: the
	// oscillator slots, how they are combined and the master section.
	Patch struct {
		Volume      float32
		Oscillators [NumOscillators]Oscillator
		Combination CombinationMode
		Envelope    Envelope
		Filter      Filter
	}
)

// NumOscillators is the fixed number of oscillator slots in a Patch.
const NumOscillators = 3

const (
	MinOctave = -4
	MaxOctave = 4
)

const (
	Sine WaveKind = iota
	Square
	Saw
	Triangle
	WhiteNoise
	CustomSample
)

const (
	NoFilter FilterKind = iota
	LowPass
	HighPass
	BandPass
	Notch
)

const (
	NoTarget ModTarget = iota
	Pitch
	FilterCutoff
	Volume
	PulseWidth
)

const (
	Parallel CombinationMode = iota
	FM
	AM
	RingMod
	FilterMode
)

var (
	waveKindNames        = []string{"sine", "square", "saw", "triangle", "noise", "sample"}
	filterKindNames      = []string{"none", "lowpass", "highpass", "bandpass", "notch"}
	modTargetNames       = []string{"none", "pitch", "cutoff", "volume", "pulsewidth"}
	combinationModeNames = []string{"parallel", "fm", "am", "ringmod", "filter"}
)

func enumString(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%d", v)
	}
	return names[v]
}

func enumParse(kind string, names []string, text []byte) (int, error) {
	s := string(text)
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

func (k WaveKind) String() string { return enumString(waveKindNames, int(k)) }
func (k WaveKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
func (k *WaveKind) UnmarshalText(b []byte) error {
	v, err := enumParse("waveform", waveKindNames, b)
	*k = WaveKind(v)
	return err
}

func (k FilterKind) String() string { return enumString(filterKindNames, int(k)) }
func (k FilterKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
func (k *FilterKind) UnmarshalText(b []byte) error {
	v, err := enumParse("filter", filterKindNames, b)
	*k = FilterKind(v)
	return err
}

func (t ModTarget) String() string { return enumString(modTargetNames, int(t)) }
func (t ModTarget) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
func (t *ModTarget) UnmarshalText(b []byte) error {
	v, err := enumParse("modulation target", modTargetNames, b)
	*t = ModTarget(v)
	return err
}

func (m CombinationMode) String() string { return enumString(combinationModeNames, int(m)) }
func (m CombinationMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
func (m *CombinationMode) UnmarshalText(b []byte) error {
	v, err := enumParse("combination mode", combinationModeNames, b)
	*m = CombinationMode(v)
	return err
}

// DefaultEnvelope is the envelope of a freshly created oscillator.
var DefaultEnvelope = Envelope{Attack: 0.1, Decay: 0.2, Sustain: 0.7, Release: 0.3}

// DefaultOscillator returns a half volume sine with no filter or modulation.
func DefaultOscillator() Oscillator {
	return Oscillator{
		Waveform: Waveform{Kind: Sine},
		Volume:   0.5,
		Envelope: DefaultEnvelope,
		Filter:   Filter{Kind: NoFilter, Cutoff: 1},
	}
}

// DefaultPatch returns the patch the synth starts with.
func DefaultPatch() Patch {
	p := Patch{
		Volume:      0.5,
		Combination: Parallel,
		Envelope:    Envelope{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3},
		Filter:      Filter{Kind: NoFilter, Cutoff: 1},
	}
	for i := range p.Oscillators {
		p.Oscillators[i] = DefaultOscillator()
	}
	return p
}

// Clamped returns a copy of the patch with all values forced into their valid
// ranges. Unknown enum values fall back to the first value of the enum.
func (p Patch) Clamped() Patch {
	p.Volume = clamp01(p.Volume)
	if p.Combination < Parallel || p.Combination > FilterMode {
		p.Combination = Parallel
	}
	p.Envelope = p.Envelope.Clamped()
	p.Filter = p.Filter.Clamped()
	for i := range p.Oscillators {
		p.Oscillators[i] = p.Oscillators[i].Clamped()
	}
	return p
}

func (o Oscillator) Clamped() Oscillator {
	if o.Waveform.Kind < Sine || o.Waveform.Kind > CustomSample {
		o.Waveform = Waveform{Kind: Sine}
	}
	if o.Waveform.Kind != CustomSample {
		o.Waveform.Sample = 0
	}
	o.Volume = clamp01(o.Volume)
	if isBad(o.Detune) {
		o.Detune = 0
	}
	o.Octave = min(max(o.Octave, MinOctave), MaxOctave)
	o.Envelope = o.Envelope.Clamped()
	o.Filter = o.Filter.Clamped()
	if o.Modulation.Target < NoTarget || o.Modulation.Target > PulseWidth {
		o.Modulation.Target = NoTarget
	}
	o.Modulation.Amount = clamp01(o.Modulation.Amount)
	return o
}

func (e Envelope) Clamped() Envelope {
	e.Attack = nonNegative(e.Attack)
	e.Decay = nonNegative(e.Decay)
	e.Sustain = clamp01(e.Sustain)
	e.Release = nonNegative(e.Release)
	return e
}

func (f Filter) Clamped() Filter {
	if f.Kind < NoFilter || f.Kind > Notch {
		f.Kind = NoFilter
	}
	f.Cutoff = clamp01(f.Cutoff)
	f.Resonance = clamp01(f.Resonance)
	return f
}

// FrequencyFactor is the multiplier the octave shift and detune apply to the
// frequency of a note.
func (o *Oscillator) FrequencyFactor() float32 {
	return float32(math.Exp2(float64(o.Octave) + float64(o.Detune)/12))
}

// MIDINoteToFrequency converts a MIDI note number to Hz using equal
// temperament with A4 (note 69) at 440 Hz.
func MIDINoteToFrequency(note byte) float32 {
	return float32(440 * math.Exp2((float64(note)-69)/12))
}

func isBad(v float32) bool {
	return math.IsNaN(float64(v)) || math.IsInf(float64(v), 0)
}

func clamp01(v float32) float32 {
	if isBad(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

func nonNegative(v float32) float32 {
	if isBad(v) || v < 0 {
		return 0
	}
	return v
}
