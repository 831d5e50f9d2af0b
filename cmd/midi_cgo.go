//go:build cgo

package cmd

import (
	"log/slog"

	"github.com/vsariola/polysynth/control"
	"github.com/vsariola/polysynth/control/gomidi"
)

func NewMIDIContext(bus *control.Bus, logger *slog.Logger) control.MIDIContext {
	return gomidi.NewContext(bus, logger)
}
