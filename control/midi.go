package control

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// MIDIContext enumerates the MIDI inputs of the system. Opened inputs
	// send what they receive to the bus the context was created with.
	MIDIContext interface {
		Inputs(yield func(input MIDIInputDevice) bool)
		Close()
		Support() MIDISupport
	}

	MIDIInputDevice interface {
		Open() error
		Close() error
		IsOpen() bool
		String() string
	}

	MIDISupport int

	// NullMIDIContext is used when MIDI support was not compiled in.
	NullMIDIContext struct{}
)

const (
	MIDISupportNotCompiled MIDISupport = iota
	MIDISupportNoDriver
	MIDISupported
)

func (m NullMIDIContext) Inputs(yield func(input MIDIInputDevice) bool) {}
func (m NullMIDIContext) Close()                                         {}
func (m NullMIDIContext) Support() MIDISupport                           { return MIDISupportNotCompiled }

// OpenInput opens the first input of c whose name starts with prefix. The
// prefix "*" opens the first input there is.
func OpenInput(c MIDIContext, prefix string) error {
	if prefix == "" {
		return nil
	}
	if c.Support() != MIDISupported {
		return errors.New("MIDI input is not supported")
	}
	for input := range c.Inputs {
		if prefix == "*" || strings.HasPrefix(input.String(), prefix) {
			return input.Open()
		}
	}
	if prefix == "*" {
		return errors.New("could not find any MIDI input")
	}
	return fmt.Errorf("could not find a MIDI input starting with %q", prefix)
}

// Controllers with a fixed meaning.
const (
	ccModulation  = 1
	ccVolume      = 7
	ccSustain     = 64
	ccAllNotesOff = 123
)

// DecodeMIDI translates a raw MIDI channel message into a bus message. ok is
// false for messages the synth does not react to, or that are too short.
func DecodeMIDI(b []byte) (m Message, ok bool) {
	if len(b) < 2 {
		return nil, false
	}
	status, channel := b[0]&0xF0, b[0]&0x0F
	switch status {
	case 0xD0:
		return SetChannelPressure{Pressure: unit(b[1])}, true
	}
	if len(b) < 3 {
		return nil, false
	}
	switch status {
	case 0x80:
		return NoteOff{Note: b[1]}, true
	case 0x90:
		if b[2] == 0 {
			return NoteOff{Note: b[1]}, true
		}
		return NoteOn{Note: b[1], Velocity: b[2]}, true
	case 0xA0:
		return SetAftertouch{Note: b[1], Pressure: unit(b[2])}, true
	case 0xB0:
		switch b[1] {
		case ccModulation:
			return SetModulation{Amount: unit(b[2])}, true
		case ccVolume:
			return SetVolume{Volume: unit(b[2])}, true
		case ccSustain:
			return SetSustainPedal{Down: b[2] >= 64}, true
		case ccAllNotesOff:
			return Panic{}, true
		}
		return ControlChange{Channel: channel, Controller: b[1], Value: b[2]}, true
	case 0xE0:
		bend := int(b[2]&0x7F)<<7 | int(b[1]&0x7F)
		return SetPitchBend{Bend: float32(bend)/8192 - 1}, true
	}
	return nil, false
}

func unit(v byte) float32 {
	return float32(min(v, 127)) / 127
}
