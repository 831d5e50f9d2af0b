package control_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/control"
	"github.com/vsariola/polysynth/engine"
)

func newController() (*control.Controller, *engine.Engine) {
	e := engine.NewEngine(44100)
	return control.NewController(control.NewBus(), e, nil), e
}

func drain(t *testing.T, c *control.Controller, msgs ...control.Message) {
	t.Helper()
	for _, m := range msgs {
		if err := c.Bus().Send(m); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	if err := c.Drain(0); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
}

func TestOscillatorMessages(t *testing.T) {
	c, e := newController()
	drain(t, c,
		control.ChangeOscillator{Index: 1, Waveform: polysynth.Waveform{Kind: polysynth.Saw}, Volume: 2, Detune: 0.5, Octave: 9},
		control.ChangeOscillatorEnvelope{Index: 1, Envelope: polysynth.Envelope{Attack: -1, Decay: 0.2, Sustain: 0.5, Release: 1}},
		control.ChangeOscillatorFilter{Index: 1, Filter: polysynth.Filter{Kind: polysynth.LowPass, Cutoff: 0.3, Resonance: 0.2}},
		control.ChangeOscillatorModulation{Index: 1, Modulation: polysynth.Modulation{Target: polysynth.Pitch, Amount: 0.4}},
	)
	o := e.Params().Patch.Oscillators[1]
	want := polysynth.Oscillator{
		Waveform:   polysynth.Waveform{Kind: polysynth.Saw},
		Volume:     1,
		Detune:     0.5,
		Octave:     polysynth.MaxOctave,
		Envelope:   polysynth.Envelope{Attack: 0, Decay: 0.2, Sustain: 0.5, Release: 1},
		Filter:     polysynth.Filter{Kind: polysynth.LowPass, Cutoff: 0.3, Resonance: 0.2},
		Modulation: polysynth.Modulation{Target: polysynth.Pitch, Amount: 0.4},
	}
	if o != want {
		t.Fatalf("got %+v, want %+v", o, want)
	}
	if e.Params().Patch.Oscillators[0] != polysynth.DefaultOscillator() {
		t.Fatal("other oscillators changed")
	}
}

func TestInvalidOscillatorIndexIsIgnored(t *testing.T) {
	c, e := newController()
	before := e.Params()
	drain(t, c,
		control.ChangeOscillator{Index: 3, Volume: 1},
		control.ChangeOscillatorEnvelope{Index: -1},
		control.ChangeOscillatorFilter{Index: 100},
		control.ChangeOscillatorModulation{Index: 3},
	)
	if e.Params() != before {
		t.Fatal("nothing should have been published")
	}
}

func TestMasterMessages(t *testing.T) {
	c, e := newController()
	drain(t, c,
		control.ChangeCombinationMode{Mode: polysynth.RingMod},
		control.ChangeMasterEnvelope{Envelope: polysynth.Envelope{Attack: 1, Decay: 1, Sustain: 2, Release: 1}},
		control.ChangeMasterFilter{Filter: polysynth.Filter{Kind: polysynth.Notch, Cutoff: 0.7}},
		control.SetPitchBend{Bend: 3},
		control.SetChannelPressure{Pressure: 0.25},
	)
	p := e.Params()
	if p.Patch.Combination != polysynth.RingMod {
		t.Errorf("combination %v", p.Patch.Combination)
	}
	if p.Patch.Envelope.Sustain != 1 {
		t.Errorf("sustain not clamped: %v", p.Patch.Envelope.Sustain)
	}
	if p.Patch.Filter.Kind != polysynth.Notch || p.Patch.Filter.Cutoff != 0.7 {
		t.Errorf("filter %+v", p.Patch.Filter)
	}
	if p.PitchBend != 1 || p.ChannelPressure != 0.25 {
		t.Errorf("bend %v pressure %v", p.PitchBend, p.ChannelPressure)
	}
}

func TestModulationWheelOnlyTouchesTargeted(t *testing.T) {
	c, e := newController()
	drain(t, c,
		control.ChangeOscillatorModulation{Index: 2, Modulation: polysynth.Modulation{Target: polysynth.Volume}},
		control.SetModulation{Amount: 0.6},
	)
	p := e.Params().Patch
	if p.Oscillators[2].Modulation.Amount != 0.6 {
		t.Errorf("targeted oscillator got %v", p.Oscillators[2].Modulation.Amount)
	}
	if p.Oscillators[0].Modulation.Amount != 0 {
		t.Errorf("untargeted oscillator got %v", p.Oscillators[0].Modulation.Amount)
	}
}

func TestNotesReachEngine(t *testing.T) {
	c, e := newController()
	drain(t, c, control.NoteOn{Note: 60, Velocity: 100}, control.NoteOn{Note: 64, Velocity: 100})
	e.Update()
	if e.Voices().Len() != 2 {
		t.Fatalf("got %v voices, want 2", e.Voices().Len())
	}
	drain(t, c, control.SetSustainPedal{Down: true}, control.NoteOff{Note: 60})
	e.Update()
	if e.Voices().Voice(0).Stage == engine.Release {
		t.Fatal("sustained note released")
	}
	drain(t, c, control.Panic{})
	e.Update()
	if e.Voices().Len() != 0 {
		t.Fatalf("panic left %v voices", e.Voices().Len())
	}
}

func TestDrainReachesRenderAsAWhole(t *testing.T) {
	c, e := newController()
	drain(t, c, control.SetVolume{Volume: 0})
	e.Process(make(polysynth.AudioBuffer, 16))
	path := filepath.Join(t.TempDir(), "long.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file failed: %v", err)
	}
	samples := make([]float32, 200_000)
	for i := range samples {
		samples[i] = float32(i%100)/50 - 1
	}
	if err := polysynth.WriteWav(f, samples, 44100, false); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	f.Close()
	// a block that sees the note must also see the volume sent before it
	loud := make(chan bool, 1)
	go func() {
		defer close(loud)
		buf := make(polysynth.AudioBuffer, 256)
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			e.Process(buf)
			if e.Voices().Len() == 0 {
				continue
			}
			var sound bool
			for _, v := range buf {
				sound = sound || v != 0
			}
			loud <- sound
			return
		}
	}()
	drain(t, c,
		control.SetVolume{Volume: 1},
		control.NoteOn{Note: 60, Velocity: 100},
		control.LoadSample{Path: path},
	)
	sound, ok := <-loud
	if !ok {
		t.Fatal("note never reached the engine")
	}
	if !sound {
		t.Fatal("block saw the note but not the volume of the same drain")
	}
}

func TestHeldBackEventsAreSentByNextDrain(t *testing.T) {
	c, e := newController()
	msgs := []control.Message{control.NoteOn{Note: 60, Velocity: 100}}
	for len(msgs) < engine.EventQueueSize {
		msgs = append(msgs, control.SetAftertouch{Note: 60, Pressure: 0.5})
	}
	msgs = append(msgs, control.NoteOff{Note: 60})
	drain(t, c, msgs...)
	if c.Pending() != 1 {
		t.Fatalf("got %v pending events, want 1", c.Pending())
	}
	buf := make(polysynth.AudioBuffer, 16)
	e.Process(buf)
	if e.Voices().Len() != 1 || e.Voices().Voice(0).Stage == engine.Release {
		t.Fatal("note should still be held")
	}
	drain(t, c)
	if c.Pending() != 0 {
		t.Fatalf("got %v pending events after the queue emptied", c.Pending())
	}
	e.Process(buf)
	if e.Voices().Len() != 1 || e.Voices().Voice(0).Stage != engine.Release {
		t.Fatal("held back note off never arrived")
	}
}

func TestLoadSample(t *testing.T) {
	c, e := newController()
	path := filepath.Join(t.TempDir(), "saw.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating file failed: %v", err)
	}
	polysynth.WriteWav(f, []float32{-0.5, 0, 0.5}, 44100, false)
	f.Close()
	drain(t, c, control.LoadSample{Path: path})
	tables := e.Params().Tables
	if len(tables) != 1 || tables[0].Name != "saw.wav" {
		t.Fatalf("got tables %v", tables.Names())
	}
	before := e.Params()
	c.Bus().Send(control.LoadSample{Path: filepath.Join(t.TempDir(), "missing.wav")})
	if err := c.Drain(0); err == nil {
		t.Fatal("expected an error for a missing sample")
	}
	if e.Params() != before || len(c.Params().Tables) != 1 {
		t.Fatal("failed load changed the state")
	}
}

func TestControlChangeUsesMapping(t *testing.T) {
	c, e := newController()
	c.Mapping().Bind(control.Binding{Channel: 0, Controller: 20, Target: control.OscDetune, Oscillator: 2, Min: -12, Max: 12})
	drain(t, c,
		control.ControlChange{Channel: 0, Controller: 74, Value: 0},
		control.ControlChange{Channel: 0, Controller: 20, Value: 127},
		control.ControlChange{Channel: 5, Controller: 20, Value: 0},
	)
	p := e.Params().Patch
	if p.Filter.Cutoff != 0 {
		t.Errorf("cutoff %v, want 0", p.Filter.Cutoff)
	}
	if p.Oscillators[2].Detune != 12 {
		t.Errorf("detune %v, want 12", p.Oscillators[2].Detune)
	}
}

func TestPreset(t *testing.T) {
	c, _ := newController()
	drain(t, c, control.SetVolume{Volume: 0.3})
	p := c.Preset("Bright Lead")
	if p.Name != "Bright Lead" || p.Patch.Volume != 0.3 {
		t.Fatalf("got %+v", p)
	}
	patch := polysynth.DefaultPatch()
	patch.Combination = polysynth.AM
	drain(t, c, control.LoadPatch{Patch: patch})
	if c.Params().Patch != patch {
		t.Fatal("patch not loaded")
	}
}
