package engine

import (
	"math"

	"github.com/vsariola/polysynth"
)

// MaxVoices is the number of voices that can sound at once. Note-ons beyond
// it are dropped, so rendering never grows the voice list.
const MaxVoices = 128

type (
	// Voice is one sounding note. Voices are owned by the render thread.
	Voice struct {
		Note           byte
		Frequency      float32
		Phase          float32 // master phase, [0, 1)
		PhaseIncrement float32 // Frequency / sample rate
		Velocity       float32 // [0, 1]
		Stage          Stage
		TimeInStage    float32
		Aftertouch     float32

		oscPhases [polysynth.NumOscillators]float32
		sustained bool // key released while the sustain pedal is down
		done      bool
	}

	// Voices is the polyphonic voice list. At most one voice exists per note
	// number.
	Voices struct {
		voices       []Voice
		sampleRate   float32
		sustainPedal bool
	}

	// LFOs holds the values of the modulation oscillators for the current
	// sample; they are shared by all voices.
	LFOs struct {
		Pitch, PulseWidth, Volume, Cutoff float32
	}
)

// LFO rates in radians per second.
const (
	pitchLFORate      = 5
	pulseWidthLFORate = 3
	volumeLFORate     = 6
	cutoffLFORate     = 4
)

// NewLFOs evaluates the LFOs at time t, in seconds.
func NewLFOs(t float64) LFOs {
	return LFOs{
		Pitch:      float32(math.Sin(t * pitchLFORate)),
		PulseWidth: float32(math.Sin(t * pulseWidthLFORate)),
		Volume:     float32(math.Sin(t * volumeLFORate)),
		Cutoff:     float32(math.Sin(t * cutoffLFORate)),
	}
}

func NewVoices(sampleRate int) *Voices {
	return &Voices{voices: make([]Voice, 0, MaxVoices), sampleRate: float32(sampleRate)}
}

// NoteOn starts a voice for the note. A note that is already sounding is
// retriggered from the attack instead of stacking a second voice.
func (vs *Voices) NoteOn(note, velocity byte) {
	vel := float32(min(velocity, 127)) / 127
	for i := range vs.voices {
		v := &vs.voices[i]
		if v.Note == note {
			v.Velocity = vel
			v.Stage = Attack
			v.TimeInStage = 0
			v.sustained = false
			v.done = false
			return
		}
	}
	if len(vs.voices) >= MaxVoices {
		return
	}
	freq := polysynth.MIDINoteToFrequency(note)
	vs.voices = append(vs.voices, Voice{
		Note:           note,
		Frequency:      freq,
		PhaseIncrement: freq / vs.sampleRate,
		Velocity:       vel,
		Stage:          Attack,
	})
}

// NoteOff moves the voice of the note to the release stage, or marks it to be
// released when the sustain pedal comes up.
func (vs *Voices) NoteOff(note byte) {
	for i := range vs.voices {
		v := &vs.voices[i]
		if v.Note != note || v.Stage == Release {
			continue
		}
		if vs.sustainPedal {
			v.sustained = true
			continue
		}
		v.release()
	}
}

func (vs *Voices) SetSustainPedal(down bool) {
	vs.sustainPedal = down
	if down {
		return
	}
	for i := range vs.voices {
		if v := &vs.voices[i]; v.sustained {
			v.release()
		}
	}
}

// SetAftertouch sets the key pressure of a note, in [0, 1].
func (vs *Voices) SetAftertouch(note byte, pressure float32) {
	for i := range vs.voices {
		if vs.voices[i].Note == note {
			vs.voices[i].Aftertouch = pressure
		}
	}
}

// AllNotesOff silences everything immediately.
func (vs *Voices) AllNotesOff() {
	vs.voices = vs.voices[:0]
	vs.sustainPedal = false
}

// SetSampleRate changes the rate used to compute phase increments, including
// those of the voices already sounding.
func (vs *Voices) SetSampleRate(rate int) {
	if rate <= 0 {
		return
	}
	vs.sampleRate = float32(rate)
	for i := range vs.voices {
		v := &vs.voices[i]
		v.PhaseIncrement = v.Frequency / vs.sampleRate
	}
}

func (vs *Voices) SampleRate() int { return int(vs.sampleRate) }

func (vs *Voices) Len() int { return len(vs.voices) }

// Voice returns voice i. The pointer is valid until the next note event or
// rendered sample.
func (vs *Voices) Voice(i int) *Voice { return &vs.voices[i] }

func (v *Voice) release() {
	v.Stage = Release
	v.TimeInStage = 0
	v.sustained = false
}

// renderer holds what is constant while one sample of all voices is rendered.
type renderer struct {
	patch    *polysynth.Patch
	eval     patchEvaluator
	lfo      LFOs
	bend     float32 // pitch bend as a frequency ratio
	pressure float32 // channel pressure
	dt       float32
	factor   [polysynth.NumOscillators]float32 // octave and detune ratios
}

// render advances all voices by one sample and returns their sum, before the
// master filter and volume. Voices whose release has finished are removed.
func (vs *Voices) render(r *renderer) float32 {
	var sum float32
	for i := range vs.voices {
		sum += vs.voices[i].render(r)
	}
	vs.compact()
	return sum
}

func (v *Voice) render(r *renderer) float32 {
	p := r.patch
	master, stage, t, done := Step(&p.Envelope, v.Stage, v.TimeInStage, r.dt)
	// oscillator envelopes are evaluated at the stage the sample belongs to
	oscStage, oscTime := v.Stage, v.TimeInStage+r.dt
	v.Stage, v.TimeInStage, v.done = stage, t, done
	v.Phase = wrap(v.Phase + v.PhaseIncrement*r.bend)
	var outs [polysynth.NumOscillators]float32
	for j := range p.Oscillators {
		o := &p.Oscillators[j]
		amount := min(o.Modulation.Amount+v.Aftertouch+r.pressure, 1)
		inc := v.PhaseIncrement * r.bend * r.factor[j]
		if o.Modulation.Target == polysynth.Pitch {
			inc *= 1 + r.lfo.Pitch*amount*0.1
		}
		phase := v.oscPhases[j]
		v.oscPhases[j] = wrap(phase + inc)
		if o.Volume <= 0 {
			continue
		}
		outs[j] = renderOscillator(o, phase, amount, oscStage, oscTime, r)
	}
	return Combine(p.Combination, &outs, v.Phase, &r.eval) * master * v.Velocity
}

// renderOscillator produces the enveloped, filtered and modulated output of
// one oscillator at the given phase.
func renderOscillator(o *polysynth.Oscillator, phase, amount float32, stage Stage, t float32, r *renderer) float32 {
	pw := float32(0.5)
	volume := float32(1)
	cutoff := o.Filter.Cutoff
	switch o.Modulation.Target {
	case polysynth.PulseWidth:
		pw = min(max(0.5+r.lfo.PulseWidth*amount*0.4, 0.01), 0.99)
	case polysynth.Volume:
		volume = 1 + r.lfo.Volume*amount
	case polysynth.FilterCutoff:
		cutoff *= 1 + r.lfo.Cutoff*amount
	}
	value := Generate(o.Waveform, phase, pw, r.eval.tables, r.eval.noise)
	value = ApplyFilter(value, o.Filter.Kind, cutoff, o.Filter.Resonance)
	return value * o.Volume * volume * Level(&o.Envelope, stage, t)
}

func (vs *Voices) compact() {
	n := 0
	for _, v := range vs.voices {
		if !v.done {
			vs.voices[n] = v
			n++
		}
	}
	vs.voices = vs.voices[:n]
}
