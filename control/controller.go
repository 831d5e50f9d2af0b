package control

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/engine"
)

// Controller applies the messages of a bus to an engine. It keeps the
// editable copy of the parameters and publishes a new snapshot to the engine
// after every drain that changed something. Note events bypass the snapshot
// and go to the engine as events, but only after the snapshot of their drain
// is published, so a rendered block sees a drain entirely or not at all.
// Events the engine cannot take yet are held back and sent first by the next
// drain. A Controller belongs to one goroutine, the one calling Drain.
type Controller struct {
	bus     *Bus
	engine  *engine.Engine
	params  engine.Params
	mapping MIDIMapping
	logger  *slog.Logger
	errs    []error
	events  []engine.Event // waiting to be sent to the engine, in order
}

// NewController starts from the parameters currently published in the
// engine. A nil logger uses slog.Default().
func NewController(bus *Bus, e *engine.Engine, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		bus:     bus,
		engine:  e,
		params:  *e.Params(),
		mapping: DefaultMIDIMapping(),
		logger:  logger,
	}
}

func (c *Controller) Bus() *Bus { return c.bus }

// Params returns a copy of the editable parameters.
func (c *Controller) Params() engine.Params { return c.params }

func (c *Controller) Mapping() *MIDIMapping { return &c.mapping }

func (c *Controller) SetMapping(m MIDIMapping) { c.mapping = m }

// Preset captures the current patch as a preset.
func (c *Controller) Preset(name string) polysynth.Preset {
	return polysynth.NewPreset(name, c.params.Patch)
}

// Drain applies at most max queued messages, in the order they were sent,
// publishes the result and then sends the note events of the drain to the
// engine. Messages that fail leave the parameters as they were; their errors
// are joined into the returned error.
func (c *Controller) Drain(max int) error {
	c.flush()
	changed := false
	c.bus.Drain(max, func(m Message) {
		ch, err := c.apply(m)
		if err != nil {
			c.errs = append(c.errs, err)
		}
		changed = changed || ch
	})
	if changed {
		p := c.params
		c.engine.Publish(&p)
	}
	c.flush()
	if len(c.errs) == 0 {
		return nil
	}
	err := errors.Join(c.errs...)
	c.errs = c.errs[:0]
	return err
}

func (c *Controller) apply(m Message) (changed bool, err error) {
	p := &c.params.Patch
	switch m := m.(type) {
	case NoteOn:
		c.queue(engine.Event{Kind: engine.EventNoteOn, Note: m.Note, Velocity: m.Velocity})
	case NoteOff:
		c.queue(engine.Event{Kind: engine.EventNoteOff, Note: m.Note})
	case SetSustainPedal:
		var v float32
		if m.Down {
			v = 1
		}
		c.queue(engine.Event{Kind: engine.EventSustain, Value: v})
	case SetAftertouch:
		c.queue(engine.Event{Kind: engine.EventAftertouch, Note: m.Note, Value: unitClamp(m.Pressure)})
	case Panic:
		c.queue(engine.Event{Kind: engine.EventAllNotesOff})
	case ChangeOscillator:
		o := c.oscillator(m.Index)
		if o == nil {
			return false, nil
		}
		o.Waveform, o.Volume, o.Detune, o.Octave = m.Waveform, m.Volume, m.Detune, m.Octave
		*o = o.Clamped()
		return true, nil
	case ChangeOscillatorEnvelope:
		o := c.oscillator(m.Index)
		if o == nil {
			return false, nil
		}
		o.Envelope = m.Envelope.Clamped()
		return true, nil
	case ChangeOscillatorFilter:
		o := c.oscillator(m.Index)
		if o == nil {
			return false, nil
		}
		o.Filter = m.Filter.Clamped()
		return true, nil
	case ChangeOscillatorModulation:
		o := c.oscillator(m.Index)
		if o == nil {
			return false, nil
		}
		o.Modulation = m.Modulation
		*o = o.Clamped()
		return true, nil
	case ChangeCombinationMode:
		p.Combination = m.Mode
		*p = p.Clamped()
		return true, nil
	case ChangeMasterEnvelope:
		p.Envelope = m.Envelope.Clamped()
		return true, nil
	case ChangeMasterFilter:
		p.Filter = m.Filter.Clamped()
		return true, nil
	case SetVolume:
		p.Volume = unitClamp(m.Volume)
		return true, nil
	case SetModulation:
		for i := range p.Oscillators {
			if p.Oscillators[i].Modulation.Target != polysynth.NoTarget {
				p.Oscillators[i].Modulation.Amount = unitClamp(m.Amount)
			}
		}
		return true, nil
	case SetPitchBend:
		c.params.PitchBend = max(min(m.Bend, 1), -1)
		if m.Bend != m.Bend {
			c.params.PitchBend = 0
		}
		return true, nil
	case SetChannelPressure:
		c.params.ChannelPressure = unitClamp(m.Pressure)
		return true, nil
	case LoadSample:
		t, err := engine.LoadWavetable(m.Path)
		if err != nil {
			return false, err
		}
		c.params.Tables = c.params.Tables.With(t)
		c.logger.Info("wavetable loaded", "name", t.Name, "samples", len(t.Samples), "rate", t.SampleRate)
		return true, nil
	case LoadPatch:
		*p = m.Patch.Clamped()
		return true, nil
	case ControlChange:
		b, ok := c.mapping.Lookup(m.Channel, m.Controller)
		if !ok {
			return false, nil
		}
		b.Apply(p, b.Scale(m.Value))
		*p = p.Clamped()
		return true, nil
	default:
		return false, fmt.Errorf("unknown message %T", m)
	}
	return false, nil
}

func (c *Controller) oscillator(i int) *polysynth.Oscillator {
	if i < 0 || i >= len(c.params.Patch.Oscillators) {
		return nil
	}
	return &c.params.Patch.Oscillators[i]
}

// Pending is the number of note events waiting for room in the event queue
// of the engine.
func (c *Controller) Pending() int { return len(c.events) }

func (c *Controller) queue(ev engine.Event) {
	c.events = append(c.events, ev)
}

// flush sends the waiting events in order, stopping at the first one the
// engine does not accept.
func (c *Controller) flush() {
	if len(c.events) == 0 {
		return
	}
	n := 0
	for n < len(c.events) && c.engine.Send(c.events[n]) {
		n++
	}
	rest := copy(c.events, c.events[n:])
	c.events = c.events[:rest]
	if rest > 0 {
		c.logger.Debug("engine event queue full, events held back", "pending", rest)
	}
}

func unitClamp(v float32) float32 {
	if v != v {
		return 0
	}
	return max(min(v, 1), 0)
}
