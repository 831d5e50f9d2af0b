package cmd

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/control"
	"gopkg.in/yaml.v2"
)

type (
	Preferences struct {
		Audio    AudioPreferences
		MIDI     MIDIPreferences `yaml:"midi"`
		Control  ControlPreferences
		Presets  PresetPreferences
		Log      LogPreferences
		YmlError error `yaml:"-"`
	}

	AudioPreferences struct {
		Backend    string
		SampleRate int
		Device     string
	}

	MIDIPreferences struct {
		Input   string
		Mapping string
	}

	ControlPreferences struct {
		DrainBudget int
		Rate        int
	}

	PresetPreferences struct {
		Dir string
	}

	LogPreferences struct {
		Level string
	}
)

//go:embed preferences.yml
var defaultPreferencesYaml []byte

const appName = "polysynth"

func loadDefaultPreferences() Preferences {
	var preferences Preferences
	err := yaml.UnmarshalStrict(defaultPreferencesYaml, &preferences)
	if err != nil {
		panic(fmt.Errorf("failed to unmarshal preferences: %w", err))
	}
	return preferences
}

// ConfigDir is the directory for the preferences, presets and MIDI mapping
// of the user.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ReadCustomConfigYml modifies the target argument, i.e. needs a pointer
func ReadCustomConfigYml(filename string, target interface{}) (exists bool, err error) {
	configDir, err := ConfigDir()
	if err != nil {
		return false, err
	}
	bytes, err2 := os.ReadFile(filepath.Join(configDir, filename))
	if err2 != nil {
		return false, err2
	}
	err = yaml.Unmarshal(bytes, target)
	return true, err
}

// MakePreferences returns the built-in defaults overridden by the
// preferences.yml of the user, if there is one. A broken file is reported in
// YmlError and the values read so far are kept.
func MakePreferences() Preferences {
	preferences := loadDefaultPreferences()
	exists, err := ReadCustomConfigYml("preferences.yml", &preferences)
	if exists {
		preferences.YmlError = err
	}
	return preferences
}

// PresetDir is the configured preset directory, or "presets" in the config
// directory.
func (p Preferences) PresetDir() (polysynth.PresetDir, error) {
	dir, err := p.configPath(p.Presets.Dir, "presets")
	return polysynth.PresetDir(dir), err
}

// MIDIMappingPath is the configured MIDI mapping file, or "midi.yml" in the
// config directory.
func (p Preferences) MIDIMappingPath() (string, error) {
	return p.configPath(p.MIDI.Mapping, "midi.yml")
}

// DrainBudget is the number of bus messages applied per control tick.
func (p Preferences) DrainBudget() int {
	if p.Control.DrainBudget <= 0 {
		return control.DefaultDrainBudget
	}
	return p.Control.DrainBudget
}

func (p Preferences) configPath(configured, fallback string) (string, error) {
	if configured != "" {
		path, err := homedir.Expand(configured)
		if err != nil {
			return "", fmt.Errorf("cannot expand %q: %w", configured, err)
		}
		return path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fallback), nil
}
