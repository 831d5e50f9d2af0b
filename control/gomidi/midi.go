package gomidi

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsariola/polysynth/control"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext opens MIDI inputs through rtmidi and forwards the decoded
	// messages to a bus. Only one input is open at a time.
	RTMIDIContext struct {
		driver    *rtmididrv.Driver
		currentIn drivers.In
		stop      func()
		bus       *control.Bus
		logger    *slog.Logger
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

// NewContext opens the driver. If that fails the context is still usable but
// has no inputs, and Support reports MIDISupportNoDriver.
func NewContext(bus *control.Bus, logger *slog.Logger) *RTMIDIContext {
	if logger == nil {
		logger = slog.Default()
	}
	m := RTMIDIContext{bus: bus, logger: logger}
	var err error
	if m.driver, err = rtmididrv.New(); err != nil {
		logger.Warn("MIDI driver not available", "err", err)
		m.driver = nil
	}
	return &m
}

func (m *RTMIDIContext) Inputs(yield func(control.MIDIInputDevice) bool) {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for i := 0; i < len(ins); i++ {
		if !yield(RTMIDIDevice{context: m, in: ins[i]}) {
			break
		}
	}
}

func (m *RTMIDIContext) Support() control.MIDISupport {
	if m.driver == nil {
		return control.MIDISupportNoDriver
	}
	return control.MIDISupported
}

// Open an input device while closing the currently open if necessary.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return errors.New("no driver available")
	}
	c.closeCurrent()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, c.HandleMessage)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn, c.stop = d.in, stop
	c.logger.Info("MIDI input opened", "device", d.in.String())
	return nil
}

func (d RTMIDIDevice) Close() error {
	if d.context.currentIn != d.in {
		return nil
	}
	d.context.closeCurrent()
	return nil
}

func (d RTMIDIDevice) IsOpen() bool {
	return d.context.currentIn == d.in && d.in.IsOpen()
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (c *RTMIDIContext) closeCurrent() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeCurrent()
	c.driver.Close()
}

// HandleMessage runs on the driver thread. It only decodes and queues; it
// never touches the engine.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	m, ok := control.DecodeMIDI(msg)
	if !ok {
		return
	}
	if err := c.bus.Send(m); err != nil {
		c.logger.Debug("MIDI message dropped", "err", err)
	}
}
