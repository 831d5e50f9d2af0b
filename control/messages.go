package control

import "github.com/vsariola/polysynth"

type (
	// Message is anything that can be sent on the Bus. The set of messages is
	// closed: only the types in this package implement it.
	Message interface {
		isMessage()
	}

	NoteOn struct {
		Note, Velocity byte
	}

	NoteOff struct {
		Note byte
	}

	// ChangeOscillator sets the waveform, volume, detune and octave of
	// oscillator Index, keeping its envelope, filter and modulation.
	ChangeOscillator struct {
		Index    int
		Waveform polysynth.Waveform
		Volume   float32
		Detune   float32
		Octave   int
	}

	ChangeOscillatorEnvelope struct {
		Index    int
		Envelope polysynth.Envelope
	}

	ChangeOscillatorFilter struct {
		Index  int
		Filter polysynth.Filter
	}

	ChangeOscillatorModulation struct {
		Index      int
		Modulation polysynth.Modulation
	}

	ChangeCombinationMode struct {
		Mode polysynth.CombinationMode
	}

	ChangeMasterEnvelope struct {
		Envelope polysynth.Envelope
	}

	ChangeMasterFilter struct {
		Filter polysynth.Filter
	}

	SetVolume struct {
		Volume float32
	}

	// SetModulation sets the modulation amount of every oscillator that has a
	// modulation target. It is what the modulation wheel sends.
	SetModulation struct {
		Amount float32
	}

	SetSustainPedal struct {
		Down bool
	}

	// SetPitchBend bends all voices; Bend is in [-1, 1].
	SetPitchBend struct {
		Bend float32
	}

	SetAftertouch struct {
		Note     byte
		Pressure float32
	}

	SetChannelPressure struct {
		Pressure float32
	}

	// LoadSample loads a WAV file as a new wavetable.
	LoadSample struct {
		Path string
	}

	// LoadPatch replaces the whole patch, e.g. when a preset is applied.
	LoadPatch struct {
		Patch polysynth.Patch
	}

	// ControlChange is a MIDI controller without a fixed meaning. It is
	// resolved with the MIDI mapping of the controller.
	ControlChange struct {
		Channel, Controller, Value byte
	}

	// Panic silences all voices at once.
	Panic struct{}
)

func (NoteOn) isMessage()                     {}
func (NoteOff) isMessage()                    {}
func (ChangeOscillator) isMessage()           {}
func (ChangeOscillatorEnvelope) isMessage()   {}
func (ChangeOscillatorFilter) isMessage()     {}
func (ChangeOscillatorModulation) isMessage() {}
func (ChangeCombinationMode) isMessage()      {}
func (ChangeMasterEnvelope) isMessage()       {}
func (ChangeMasterFilter) isMessage()         {}
func (SetVolume) isMessage()                  {}
func (SetModulation) isMessage()              {}
func (SetSustainPedal) isMessage()            {}
func (SetPitchBend) isMessage()               {}
func (SetAftertouch) isMessage()              {}
func (SetChannelPressure) isMessage()         {}
func (LoadSample) isMessage()                 {}
func (LoadPatch) isMessage()                  {}
func (ControlChange) isMessage()              {}
func (Panic) isMessage()                      {}
