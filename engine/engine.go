package engine

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/vsariola/polysynth"
)

type (
	// Params is a snapshot of everything the control side can change. A
	// published Params is never modified: the control side builds a new one
	// and publishes it with Engine.Publish.
	Params struct {
		Patch           polysynth.Patch
		Tables          Wavetables
		PitchBend       float32 // [-1, 1]
		ChannelPressure float32 // [0, 1]
	}

	// Event is a note or performance event for the render thread. Events are
	// small values so that sending one does not allocate.
	Event struct {
		Kind     EventKind
		Note     byte
		Velocity byte
		Value    float32
	}

	EventKind int

	// Engine renders the voices with the most recently published Params. Process
	// and RenderSample belong to the render thread; Publish, Send, Params,
	// Analyzer and Err may be called from any goroutine.
	Engine struct {
		params   atomic.Pointer[Params]
		events   chan Event
		analyzer Analyzer
		dropped  atomic.Uint64
		err      atomic.Pointer[error]

		// owned by the render thread
		current *Params
		voices  *Voices
		noise   *RandomNoise
		r       renderer
		time    float64
	}
)

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventSustain    // Value > 0 is pedal down
	EventAftertouch // Value is the pressure of Note
	EventAllNotesOff
	EventSampleRate // Value is the new rate in Hz
)

// EventQueueSize is the number of events that can wait for the next block.
// Sends beyond it are dropped.
const EventQueueSize = 1024

// BendRange is the pitch bend range in semitones, in either direction.
const BendRange = 2

// ErrRenderPanic wraps panics recovered while rendering a block.
var ErrRenderPanic = errors.New("render panicked")

func DefaultParams() *Params {
	return &Params{Patch: polysynth.DefaultPatch()}
}

// DefaultSampleRate is used when an engine is created without a valid rate.
const DefaultSampleRate = 44100

// NewEngine creates an engine rendering at the given sample rate, starting
// from DefaultParams. A non-positive rate is replaced by DefaultSampleRate.
func NewEngine(sampleRate int) *Engine {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	e := &Engine{
		events: make(chan Event, EventQueueSize),
		voices: NewVoices(sampleRate),
		noise:  NewRandomNoise(uint64(time.Now().UnixNano())),
	}
	e.Publish(DefaultParams())
	e.load(e.params.Load())
	return e
}

// Publish makes p the parameters of the next rendered block. p must not be
// modified afterwards.
func (e *Engine) Publish(p *Params) {
	if p == nil {
		return
	}
	e.params.Store(p)
}

// Params returns the most recently published parameters. The result must be
// treated as read-only.
func (e *Engine) Params() *Params {
	return e.params.Load()
}

// Send queues an event for the render thread without blocking. It returns
// false if the queue is full; the event is then not queued and stays with
// the caller.
func (e *Engine) Send(ev Event) bool {
	select {
	case e.events <- ev:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

func (e *Engine) NoteOn(note, velocity byte) bool {
	return e.Send(Event{Kind: EventNoteOn, Note: note, Velocity: velocity})
}

func (e *Engine) NoteOff(note byte) bool {
	return e.Send(Event{Kind: EventNoteOff, Note: note})
}

// SetSampleRate asks the render thread to switch to a new sample rate from
// the next block on. Non-positive rates are ignored.
func (e *Engine) SetSampleRate(rate int) bool {
	if rate <= 0 {
		return false
	}
	return e.Send(Event{Kind: EventSampleRate, Value: float32(rate)})
}

// Dropped is the number of sends turned away because the queue was full.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

func (e *Engine) Analyzer() *Analyzer { return &e.analyzer }

// Err returns the last error recorded on the render thread, clearing it.
func (e *Engine) Err() error {
	if p := e.err.Swap(nil); p != nil {
		return *p
	}
	return nil
}

// Update applies the queued events and picks up the latest Params. It is
// called at the start of every block; only the render thread may call it.
func (e *Engine) Update() {
loop:
	for {
		select {
		case ev := <-e.events:
			e.apply(ev)
		default:
			break loop
		}
	}
	if p := e.params.Load(); p != e.current {
		e.load(p)
	}
}

func (e *Engine) apply(ev Event) {
	switch ev.Kind {
	case EventNoteOn:
		if ev.Velocity == 0 {
			e.voices.NoteOff(ev.Note)
			return
		}
		e.voices.NoteOn(ev.Note, ev.Velocity)
	case EventNoteOff:
		e.voices.NoteOff(ev.Note)
	case EventSustain:
		e.voices.SetSustainPedal(ev.Value > 0)
	case EventAftertouch:
		e.voices.SetAftertouch(ev.Note, ev.Value)
	case EventAllNotesOff:
		e.voices.AllNotesOff()
	case EventSampleRate:
		e.voices.SetSampleRate(int(ev.Value))
	}
}

func (e *Engine) load(p *Params) {
	e.current = p
	e.r.patch = &p.Patch
	e.r.eval = patchEvaluator{oscillators: &p.Patch.Oscillators, tables: p.Tables, noise: e.noise}
	e.r.bend = float32(math.Exp2(float64(p.PitchBend) * BendRange / 12))
	e.r.pressure = p.ChannelPressure
	for i := range p.Patch.Oscillators {
		e.r.factor[i] = p.Patch.Oscillators[i].FrequencyFactor()
	}
}

// SampleRate is the rate the render thread currently renders at.
func (e *Engine) SampleRate() int { return e.voices.SampleRate() }

// Voices gives the render thread access to the voice list.
func (e *Engine) Voices() *Voices { return e.voices }

// RenderSample advances the engine clock by dt seconds and renders one mono
// sample. Non-finite results are replaced by silence.
func (e *Engine) RenderSample(dt float32) float32 {
	e.time += float64(dt)
	e.r.dt = dt
	e.r.lfo = NewLFOs(e.time)
	sum := e.voices.render(&e.r)
	m := &e.current.Patch
	s := ApplyFilter(sum, m.Filter.Kind, m.Filter.Cutoff, m.Filter.Resonance) * m.Volume
	if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
		s = 0
	}
	e.analyzer.Push(s)
	return s
}

// Process renders a block of mono samples into buffer. A panic while
// rendering silences the block and all voices and is reported through Err.
func (e *Engine) Process(buffer polysynth.AudioBuffer) {
	defer func() {
		if r := recover(); r != nil {
			clear(buffer)
			e.voices.AllNotesOff()
			err := fmt.Errorf("%w: %v", ErrRenderPanic, r)
			e.err.Store(&err)
		}
	}()
	e.Update()
	dt := 1 / float32(e.voices.SampleRate())
	for i := range buffer {
		buffer[i] = e.RenderSample(dt)
	}
}

// Preview draws the combined waveform of p over one cycle of the fundamental
// as the given number of points. Noise is deterministic, so the preview of a
// patch is always the same.
func Preview(p *Params, points int) []float32 {
	if points <= 0 {
		return nil
	}
	eval := patchEvaluator{oscillators: &p.Patch.Oscillators, tables: p.Tables, noise: PreviewNoise{}}
	var factor [polysynth.NumOscillators]float32
	for i := range p.Patch.Oscillators {
		factor[i] = p.Patch.Oscillators[i].FrequencyFactor()
	}
	ret := make([]float32, points)
	var outs [polysynth.NumOscillators]float32
	for i := range ret {
		phase := float32(i) / float32(points)
		for j := range p.Patch.Oscillators {
			outs[j] = eval.Reevaluate(j, wrap(phase*factor[j]))
		}
		ret[i] = Combine(p.Patch.Combination, &outs, phase, &eval)
	}
	return ret
}
