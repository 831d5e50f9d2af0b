package engine_test

import (
	"math"
	"testing"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/engine"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		kind  polysynth.WaveKind
		phase float32
		want  float32
	}{
		{polysynth.Sine, 0, 0},
		{polysynth.Sine, 0.25, 1},
		{polysynth.Sine, 0.75, -1},
		{polysynth.Square, 0, 1},
		{polysynth.Square, 0.49, 1},
		{polysynth.Square, 0.5, -1},
		{polysynth.Square, 0.99, -1},
		{polysynth.Saw, 0, -1},
		{polysynth.Saw, 0.5, 0},
		{polysynth.Saw, 0.75, 0.5},
		{polysynth.Triangle, 0, 0},
		{polysynth.Triangle, 0.25, 1},
		{polysynth.Triangle, 0.5, 0},
		{polysynth.Triangle, 0.75, -1},
		{polysynth.Triangle, 0.875, -0.5},
	}
	for _, tt := range tests {
		got := engine.Generate(polysynth.Waveform{Kind: tt.kind}, tt.phase, 0.5, nil, engine.PreviewNoise{})
		if math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("%v at phase %v: got %v, want %v", tt.kind, tt.phase, got, tt.want)
		}
	}
}

func TestSineFollowsFormula(t *testing.T) {
	for i := 0; i < 100; i++ {
		phase := float32(i) / 100
		got := engine.Generate(polysynth.Waveform{Kind: polysynth.Sine}, phase, 0.5, nil, engine.PreviewNoise{})
		want := math.Sin(2 * math.Pi * float64(phase))
		if math.Abs(float64(got)-want) > 1e-6 {
			t.Fatalf("sine at phase %v: got %v, want %v", phase, got, want)
		}
	}
}

func TestSquarePulseWidth(t *testing.T) {
	w := polysynth.Waveform{Kind: polysynth.Square}
	if got := engine.Generate(w, 0.2, 0.25, nil, engine.PreviewNoise{}); got != 1 {
		t.Errorf("expected high below the pulse width, got %v", got)
	}
	if got := engine.Generate(w, 0.3, 0.25, nil, engine.PreviewNoise{}); got != -1 {
		t.Errorf("expected low above the pulse width, got %v", got)
	}
}

func TestNoiseRange(t *testing.T) {
	n := engine.NewRandomNoise(1)
	w := polysynth.Waveform{Kind: polysynth.WhiteNoise}
	for i := 0; i < 10000; i++ {
		v := engine.Generate(w, 0, 0.5, nil, n)
		if v < -1 || v > 1 {
			t.Fatalf("noise sample %v out of range: %v", i, v)
		}
	}
}

func TestPreviewNoiseIsDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		phase := float32(i) / 100
		a := engine.PreviewNoise{}.Noise(phase)
		b := engine.PreviewNoise{}.Noise(phase)
		if a != b {
			t.Fatalf("preview noise at %v differs: %v vs %v", phase, a, b)
		}
		if a < -1 || a > 1 {
			t.Fatalf("preview noise at %v out of range: %v", phase, a)
		}
	}
}

func TestMissingWavetableIsSilent(t *testing.T) {
	w := polysynth.Waveform{Kind: polysynth.CustomSample, Sample: 3}
	tables := engine.Wavetables{engine.NewWavetable("a", []float32{1, -1}, 44100)}
	if got := engine.Generate(w, 0.5, 0.5, tables, engine.PreviewNoise{}); got != 0 {
		t.Errorf("expected silence for a missing table, got %v", got)
	}
}

func TestApplyFilter(t *testing.T) {
	tests := []struct {
		name   string
		kind   polysynth.FilterKind
		cutoff float32
		want   float32
	}{
		{"none passes through", polysynth.NoFilter, 0, 1},
		{"lowpass", polysynth.LowPass, 0.25, 0.5},
		{"lowpass clamps cutoff", polysynth.LowPass, 5, float32(math.Sqrt(0.99))},
		{"highpass clamps cutoff", polysynth.HighPass, 0, 0.9},
		{"bandpass center", polysynth.BandPass, 0.5, 1},
		{"bandpass edge", polysynth.BandPass, 0.25, 0.5},
		{"notch center", polysynth.Notch, 0.5, 0},
		{"notch edge", polysynth.Notch, 0.25, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.ApplyFilter(1, tt.kind, tt.cutoff, 0.5)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
