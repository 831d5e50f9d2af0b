package polysynth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Preset is a named, saved Patch.
type Preset struct {
	Name        string
	Description string   `yaml:",omitempty"`
	Author      string   `yaml:",omitempty"`
	Tags        []string `yaml:",flow,omitempty"`
	CreatedAt   time.Time
	Patch       Patch
}

// PresetDir stores presets as .yml files in a single directory. The directory
// is always given by the caller; nothing here resolves config locations.
type PresetDir string

var ErrPresetNotFound = errors.New("preset not found")

const presetExt = ".yml"

// NewPreset captures a patch under the given name.
func NewPreset(name string, patch Patch) Preset {
	return Preset{Name: name, CreatedAt: time.Now().UTC().Truncate(time.Second), Patch: patch}
}

// ReadPreset parses a preset. The patch is clamped into valid ranges, so
// hand-edited files cannot push the engine out of range.
func ReadPreset(r io.Reader) (Preset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Preset{}, fmt.Errorf("reading preset failed: %w", err)
	}
	p := Preset{Patch: DefaultPatch()}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("parsing preset failed: %w", err)
	}
	p.Patch = p.Patch.Clamped()
	return p, nil
}

// ReadPresetFile is ReadPreset for a file on disk.
func ReadPresetFile(path string) (Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Preset{}, fmt.Errorf("opening preset failed: %w", err)
	}
	defer f.Close()
	return ReadPreset(f)
}

func (p *Preset) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding preset failed: %w", err)
	}
	return enc.Close()
}

// Save writes the preset into the directory, creating it if needed, and
// returns the path of the written file.
func (d PresetDir) Save(p Preset) (string, error) {
	if err := os.MkdirAll(string(d), 0755); err != nil {
		return "", fmt.Errorf("creating preset directory failed: %w", err)
	}
	path := d.path(p.Name)
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing preset %v failed: %w", path, err)
	}
	return path, nil
}

func (d PresetDir) Load(name string) (Preset, error) {
	p, err := ReadPresetFile(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return Preset{}, fmt.Errorf("%q: %w", name, ErrPresetNotFound)
	}
	return p, err
}

func (d PresetDir) Delete(name string) error {
	err := os.Remove(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%q: %w", name, ErrPresetNotFound)
	}
	return err
}

// List returns the display names of all presets in the directory, sorted. A
// missing directory is an empty list.
func (d PresetDir) List() ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing presets failed: %w", err)
	}
	caser := cases.Title(language.English)
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != presetExt {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), presetExt)
		names = append(names, caser.String(strings.ReplaceAll(stem, "_", " ")))
	}
	sort.Strings(names)
	return names, nil
}

func (d PresetDir) path(name string) string {
	return filepath.Join(string(d), presetFileName(name))
}

// presetFileName maps a display name to a file name: spaces become
// underscores, everything except letters, digits, '_' and '-' is dropped and
// the result is lower cased, so "Warm Pad" and "warm pad" are the same preset.
func presetFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.ReplaceAll(name, " ", "_")) {
		if r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "untitled" + presetExt
	}
	return b.String() + presetExt
}
