//go:build !cgo

package cmd

import (
	"log/slog"

	"github.com/vsariola/polysynth/control"
)

func NewMIDIContext(bus *control.Bus, logger *slog.Logger) control.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return control.NullMIDIContext{}
}
