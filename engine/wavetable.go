package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/polysynth"
)

// MaxWavetables is the number of wavetables kept loaded; loading more evicts
// the oldest.
const MaxWavetables = 8

type (
	// Wavetable is a single cycle (or longer) of audio, normalized to a peak
	// absolute value of 1, played back by the CustomSample waveform.
	Wavetable struct {
		Name       string
		Samples    []float32
		SampleRate int
	}

	// Wavetables is an immutable list of loaded tables. Adding a table returns
	// a new list, so a list published to the render thread never changes.
	Wavetables []*Wavetable
)

// NewWavetable normalizes samples in place and wraps them as a table.
func NewWavetable(name string, samples []float32, sampleRate int) *Wavetable {
	Normalize(samples)
	return &Wavetable{Name: name, Samples: samples, SampleRate: sampleRate}
}

// LoadWavetable reads a WAV file from disk. The file name becomes the name of
// the table.
func LoadWavetable(path string) (*Wavetable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wavetable failed: %w", err)
	}
	defer f.Close()
	samples, rate, err := polysynth.ReadWav(f)
	if err != nil {
		return nil, fmt.Errorf("loading wavetable %v failed: %w", path, err)
	}
	return NewWavetable(filepath.Base(path), samples, rate), nil
}

// Normalize scales x so that its largest absolute value is 1. All-zero and
// empty input is left as is.
func Normalize(x []float32) {
	if len(x) == 0 {
		return
	}
	peak := vek32.Max(vek32.Abs(x))
	if peak > 0 {
		vek32.DivNumber_Inplace(x, peak)
	}
}

// At returns the sample at the given phase in [0, 1), linearly interpolating
// between neighbours and wrapping around at the end of the table. Nil and
// empty tables are silent.
func (t *Wavetable) At(phase float32) float32 {
	if t == nil || len(t.Samples) == 0 {
		return 0
	}
	n := len(t.Samples)
	pos := wrap(phase) * float32(n)
	i := int(pos)
	if i >= n {
		i = n - 1
	}
	frac := pos - float32(i)
	a := t.Samples[i]
	b := t.Samples[(i+1)%n]
	return a + (b-a)*frac
}

// With returns a new list with t appended, dropping the oldest tables beyond
// MaxWavetables. The receiver is not modified.
func (w Wavetables) With(t *Wavetable) Wavetables {
	start := 0
	if len(w) >= MaxWavetables {
		start = len(w) - MaxWavetables + 1
	}
	ret := make(Wavetables, 0, len(w)-start+1)
	ret = append(ret, w[start:]...)
	return append(ret, t)
}

// Get returns table i, or nil if there is no such table.
func (w Wavetables) Get(i int) *Wavetable {
	if i < 0 || i >= len(w) {
		return nil
	}
	return w[i]
}

func (w Wavetables) Names() []string {
	ret := make([]string, len(w))
	for i, t := range w {
		ret[i] = t.Name
	}
	return ret
}
