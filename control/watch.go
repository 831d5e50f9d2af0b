package control

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/vsariola/polysynth"
)

// WatchPreset reloads the preset file at path whenever it is written or
// replaced, and sends its patch to the bus as a LoadPatch. The directory of
// the file is watched, so editors that save by renaming a temporary file are
// seen too. Read errors are logged and the previous patch stays. Watching
// stops when done is closed or the bus is closed.
func WatchPreset(path string, bus *Bus, done <-chan struct{}, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("can't watch %v: %w", path, err)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				p, err := polysynth.ReadPresetFile(path)
				if err != nil {
					logger.Warn("preset reload failed", "path", path, "err", err)
					continue
				}
				if err := bus.Send(LoadPatch{Patch: p.Patch}); err != nil {
					return
				}
				logger.Info("preset reloaded", "path", path, "name", p.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("preset watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()
	return nil
}
