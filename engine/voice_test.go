package engine

import (
	"math"
	"testing"

	"github.com/vsariola/polysynth"
)

func TestNoteOnTwiceKeepsOneVoice(t *testing.T) {
	vs := NewVoices(44100)
	vs.NoteOn(60, 100)
	vs.NoteOn(60, 80)
	if vs.Len() != 1 {
		t.Fatalf("expected one voice, got %v", vs.Len())
	}
	if v := vs.Voice(0); v.Stage != Attack || v.Velocity != float32(80)/127 {
		t.Fatalf("retrigger did not restart the voice: %+v", v)
	}
}

func TestNoteOnSetsFrequency(t *testing.T) {
	vs := NewVoices(44100)
	vs.NoteOn(69, 127)
	vs.NoteOn(81, 127)
	if f := vs.Voice(0).Frequency; f != 440 {
		t.Errorf("note 69: got %v Hz, want 440", f)
	}
	if f := vs.Voice(1).Frequency; f != 880 {
		t.Errorf("note 81: got %v Hz, want 880", f)
	}
	if inc := vs.Voice(0).PhaseIncrement; inc != float32(440)/44100 {
		t.Errorf("phase increment %v, want 440/44100", inc)
	}
	if vel := vs.Voice(0).Velocity; vel != 1 {
		t.Errorf("velocity 127 should normalize to 1, got %v", vel)
	}
}

func TestNoteOffReleases(t *testing.T) {
	vs := NewVoices(44100)
	vs.NoteOn(60, 100)
	vs.NoteOff(61)
	if vs.Voice(0).Stage != Attack {
		t.Fatalf("note off for another note changed the voice")
	}
	vs.NoteOff(60)
	if vs.Voice(0).Stage != Release {
		t.Fatalf("expected release, got %v", vs.Voice(0).Stage)
	}
}

func TestSustainPedalDefersRelease(t *testing.T) {
	vs := NewVoices(44100)
	vs.NoteOn(60, 100)
	vs.SetSustainPedal(true)
	vs.NoteOff(60)
	if vs.Voice(0).Stage == Release {
		t.Fatal("voice released while the pedal was down")
	}
	vs.SetSustainPedal(false)
	if vs.Voice(0).Stage != Release {
		t.Fatalf("pedal up should release, got %v", vs.Voice(0).Stage)
	}
}

func TestVoiceLimit(t *testing.T) {
	vs := NewVoices(44100)
	for i := 0; i < 200; i++ {
		vs.NoteOn(byte(i%128), 100)
	}
	if vs.Len() != MaxVoices {
		t.Fatalf("got %v voices, want %v", vs.Len(), MaxVoices)
	}
	vs.AllNotesOff()
	if vs.Len() != 0 {
		t.Fatalf("all notes off left %v voices", vs.Len())
	}
}

func TestSetSampleRateUpdatesVoices(t *testing.T) {
	vs := NewVoices(44100)
	vs.NoteOn(69, 100)
	vs.SetSampleRate(48000)
	if inc := vs.Voice(0).PhaseIncrement; inc != float32(440)/48000 {
		t.Fatalf("phase increment %v, want 440/48000", inc)
	}
	vs.SetSampleRate(0)
	if vs.SampleRate() != 48000 {
		t.Fatalf("zero rate should be ignored, got %v", vs.SampleRate())
	}
}

func TestReleasedVoiceIsRemoved(t *testing.T) {
	e := NewEngine(44100)
	p := DefaultParams()
	p.Patch.Envelope = polysynth.Envelope{Attack: 0, Decay: 0, Sustain: 0.5, Release: 0.01}
	e.Publish(p)
	e.NoteOn(60, 100)
	buf := make(polysynth.AudioBuffer, 64)
	e.Process(buf)
	if e.Voices().Len() != 1 {
		t.Fatalf("expected a sounding voice, got %v", e.Voices().Len())
	}
	e.NoteOff(60)
	for i := 0; i < 20 && e.Voices().Len() > 0; i++ {
		e.Process(buf)
	}
	if e.Voices().Len() != 0 {
		t.Fatalf("voice still present after its release: %v", e.Voices().Len())
	}
}

type constEval float32

func (c constEval) Reevaluate(int, float32) float32 { return float32(c) }

func TestCombine(t *testing.T) {
	half := [polysynth.NumOscillators]float32{0.5, 0.5, 0.5}
	tests := []struct {
		mode polysynth.CombinationMode
		want float32
	}{
		{polysynth.Parallel, 1.5},
		{polysynth.RingMod, 0.125},
		{polysynth.AM, 0.5 * 1.5 * 1.5 * 0.5},
		{polysynth.FilterMode, float32(0.5*0.25 + math.Tanh(0.5)*0.75*1.75)},
		{polysynth.FM, 0.5},
	}
	for _, tt := range tests {
		got := Combine(tt.mode, &half, 0.1, constEval(0.5))
		if d := got - tt.want; d > 1e-6 || d < -1e-6 {
			t.Errorf("%v: got %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestFMModulatesPhase(t *testing.T) {
	oscs := [polysynth.NumOscillators]polysynth.Oscillator{}
	for i := range oscs {
		oscs[i] = polysynth.DefaultOscillator()
		oscs[i].Volume = 1
		oscs[i].Waveform.Kind = polysynth.Saw
	}
	eval := &patchEvaluator{oscillators: &oscs, noise: PreviewNoise{}}
	o := [polysynth.NumOscillators]float32{0, 0, 0.5}
	// the second saw is read at 0.1+0.25 giving -0.3, which moves the first
	// to 0.1-0.15
	want := float32(2*0.95 - 1)
	got := Combine(polysynth.FM, &o, 0.1, eval)
	if d := got - want; d > 1e-5 || d < -1e-5 {
		t.Fatalf("got %v, want %v", got, want)
	}
}
