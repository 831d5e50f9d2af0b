package control

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/vsariola/polysynth"
	"gopkg.in/yaml.v3"
)

type (
	// ControlTarget is a patch parameter a MIDI controller can be bound to.
	// The targets starting with Osc address the oscillator given in the
	// binding.
	ControlTarget int

	// Binding maps one controller of one MIDI channel to a target. The
	// controller value 0..127 is scaled linearly onto [Min, Max]; Invert
	// reverses the direction.
	Binding struct {
		Channel    byte
		Controller byte
		Target     ControlTarget
		Oscillator int `yaml:",omitempty"`
		Min        float32
		Max        float32
		Invert     bool `yaml:",omitempty"`
	}

	// MIDIMapping is the set of controller bindings. At most one binding exists
	// per channel and controller.
	MIDIMapping struct {
		Bindings []Binding
	}
)

const (
	MasterVolume ControlTarget = iota
	MasterCutoff
	MasterResonance
	MasterAttack
	MasterDecay
	MasterSustain
	MasterRelease
	OscVolume
	OscDetune
	OscOctave
	OscAttack
	OscDecay
	OscSustain
	OscRelease
	OscCutoff
	OscResonance
	OscModAmount
)

var controlTargetNames = []string{
	"master-volume", "master-cutoff", "master-resonance", "master-attack",
	"master-decay", "master-sustain", "master-release", "volume", "detune",
	"octave", "attack", "decay", "sustain", "release", "cutoff", "resonance",
	"mod-amount",
}

func (t ControlTarget) String() string {
	if t < 0 || int(t) >= len(controlTargetNames) {
		return fmt.Sprintf("target(%d)", int(t))
	}
	return controlTargetNames[t]
}

func (t ControlTarget) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(controlTargetNames) {
		return nil, fmt.Errorf("unknown control target %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *ControlTarget) UnmarshalText(b []byte) error {
	i := slices.Index(controlTargetNames, string(b))
	if i < 0 {
		return fmt.Errorf("unknown control target %q", b)
	}
	*t = ControlTarget(i)
	return nil
}

// DefaultMIDIMapping binds the filter cutoff and resonance of the master
// filter to the usual "brightness" and "harmonic content" controllers, 74
// and 71, on the first channel. Controllers 1, 7 and 64 have fixed meanings
// and are never looked up here.
func DefaultMIDIMapping() MIDIMapping {
	return MIDIMapping{Bindings: []Binding{
		{Channel: 0, Controller: 74, Target: MasterCutoff, Min: 0, Max: 1},
		{Channel: 0, Controller: 71, Target: MasterResonance, Min: 0, Max: 1},
	}}
}

// Bind adds a binding, replacing any binding of the same controller.
func (m *MIDIMapping) Bind(b Binding) {
	for i := range m.Bindings {
		if m.Bindings[i].Channel == b.Channel && m.Bindings[i].Controller == b.Controller {
			m.Bindings[i] = b
			return
		}
	}
	m.Bindings = append(m.Bindings, b)
}

func (m *MIDIMapping) Unbind(channel, controller byte) {
	m.Bindings = slices.DeleteFunc(m.Bindings, func(b Binding) bool {
		return b.Channel == channel && b.Controller == controller
	})
}

func (m *MIDIMapping) Lookup(channel, controller byte) (Binding, bool) {
	for _, b := range m.Bindings {
		if b.Channel == channel && b.Controller == controller {
			return b, true
		}
	}
	return Binding{}, false
}

// Scale maps a controller value to the range of the binding.
func (b Binding) Scale(value byte) float32 {
	x := float32(min(value, 127)) / 127
	if b.Invert {
		x = 1 - x
	}
	return b.Min + (b.Max-b.Min)*x
}

// Apply sets the target of the binding in the patch. Oscillator indices out
// of range are ignored; the caller clamps the patch afterwards.
func (b Binding) Apply(p *polysynth.Patch, value float32) {
	var o *polysynth.Oscillator
	if b.Target >= OscVolume {
		if b.Oscillator < 0 || b.Oscillator >= len(p.Oscillators) {
			return
		}
		o = &p.Oscillators[b.Oscillator]
	}
	switch b.Target {
	case MasterVolume:
		p.Volume = value
	case MasterCutoff:
		p.Filter.Cutoff = value
	case MasterResonance:
		p.Filter.Resonance = value
	case MasterAttack:
		p.Envelope.Attack = value
	case MasterDecay:
		p.Envelope.Decay = value
	case MasterSustain:
		p.Envelope.Sustain = value
	case MasterRelease:
		p.Envelope.Release = value
	case OscVolume:
		o.Volume = value
	case OscDetune:
		o.Detune = value
	case OscOctave:
		o.Octave = int(math.Round(float64(value)))
	case OscAttack:
		o.Envelope.Attack = value
	case OscDecay:
		o.Envelope.Decay = value
	case OscSustain:
		o.Envelope.Sustain = value
	case OscRelease:
		o.Envelope.Release = value
	case OscCutoff:
		o.Filter.Cutoff = value
	case OscResonance:
		o.Filter.Resonance = value
	case OscModAmount:
		o.Modulation.Amount = value
	}
}

func ReadMIDIMapping(r io.Reader) (MIDIMapping, error) {
	var m MIDIMapping
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return MIDIMapping{}, fmt.Errorf("parsing MIDI mapping failed: %w", err)
	}
	return m, nil
}

// LoadMIDIMapping reads a mapping file. A missing file gives the default
// mapping.
func LoadMIDIMapping(path string) (MIDIMapping, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return DefaultMIDIMapping(), nil
	}
	if err != nil {
		return MIDIMapping{}, fmt.Errorf("opening MIDI mapping failed: %w", err)
	}
	defer f.Close()
	return ReadMIDIMapping(f)
}

func (m *MIDIMapping) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding MIDI mapping failed: %w", err)
	}
	return enc.Close()
}
