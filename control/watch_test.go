package control_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/control"
)

func writePreset(t *testing.T, path string, p polysynth.Preset) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating preset failed: %v", err)
	}
	defer f.Close()
	if err := p.Write(f); err != nil {
		t.Fatalf("writing preset failed: %v", err)
	}
}

func TestWatchPresetReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.yml")
	writePreset(t, path, polysynth.NewPreset("live", polysynth.DefaultPatch()))
	bus := control.NewBus()
	done := make(chan struct{})
	defer close(done)
	if err := control.WatchPreset(path, bus, done, nil); err != nil {
		t.Fatalf("WatchPreset failed: %v", err)
	}
	patch := polysynth.DefaultPatch()
	patch.Volume = 0.25
	writePreset(t, path, polysynth.NewPreset("live", patch))
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var got *control.LoadPatch
		bus.Drain(0, func(m control.Message) {
			if lp, ok := m.(control.LoadPatch); ok {
				got = &lp
			}
		})
		if got != nil && got.Patch.Volume == 0.25 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("preset change was not picked up")
}

func TestWatchPresetMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "live.yml")
	if err := control.WatchPreset(path, control.NewBus(), make(chan struct{}), nil); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
