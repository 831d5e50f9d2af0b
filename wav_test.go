package polysynth_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vsariola/polysynth"
)

func writeReadWav(t *testing.T, samples []float32, rate int, pcm16 bool) ([]float32, int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := polysynth.WriteWav(f, samples, rate, pcm16); err != nil {
		f.Close()
		t.Fatalf("WriteWav failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	f, err = os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	got, gotRate, err := polysynth.ReadWav(f)
	if err != nil {
		t.Fatalf("ReadWav failed: %v", err)
	}
	return got, gotRate
}

func TestWavFloatRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.5, 1.5, -0.125}
	got, rate := writeReadWav(t, in, 48000, false)
	if rate != 48000 {
		t.Errorf("rate %v, want 48000", rate)
	}
	if len(got) != len(in) {
		t.Fatalf("got %v samples, want %v", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %v: got %v, want %v", i, got[i], in[i])
		}
	}
}

func TestWavPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 2, -2}
	want := []float32{0, 0.5, -0.5, 1, -1}
	got, rate := writeReadWav(t, in, 22050, true)
	if rate != 22050 {
		t.Errorf("rate %v, want 22050", rate)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v samples, want %v", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-3 {
			t.Errorf("sample %v: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadWavRejectsGarbage(t *testing.T) {
	_, _, err := polysynth.ReadWav(strings.NewReader("definitely not a riff file"))
	if !errors.Is(err, polysynth.ErrUnsupportedFormat) {
		t.Errorf("got %v", err)
	}
}
