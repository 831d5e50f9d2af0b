package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/cmd"
	"github.com/vsariola/polysynth/control"
	"github.com/vsariola/polysynth/engine"
	"github.com/vsariola/polysynth/oto"
	"github.com/vsariola/polysynth/portaudio"
	"github.com/vsariola/polysynth/version"
)

func main() {
	prefs := cmd.MakePreferences()
	backend := flag.String("backend", prefs.Audio.Backend, "Audio backend: oto or portaudio.")
	rate := flag.Int("rate", prefs.Audio.SampleRate, "Sample rate in Hz.")
	device := flag.String("device", prefs.Audio.Device, "Output device name prefix (portaudio only).")
	midiInput := flag.String("midi-input", prefs.MIDI.Input, "Connect the MIDI input with a matching device name prefix; \"*\" takes the first.")
	presetFlag := flag.String("preset", "", "Preset to start with: a .yml file or the name of a saved preset.")
	watch := flag.Bool("watch", false, "Reload the preset file whenever it changes.")
	logLevel := flag.String("log-level", prefs.Log.Level, "Log level: debug, info, warn or error.")
	listDevices := flag.Bool("list-devices", false, "List the output and MIDI devices and exit.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	logger, err := cmd.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if prefs.YmlError != nil {
		logger.Warn("preferences.yml could not be read", "err", prefs.YmlError)
	}
	if err := run(prefs, logger, options{
		backend:     *backend,
		rate:        *rate,
		device:      *device,
		midiInput:   *midiInput,
		preset:      *presetFlag,
		watch:       *watch,
		listDevices: *listDevices,
	}); err != nil {
		logger.Error("polysynth failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	backend, device, midiInput, preset string
	rate                               int
	watch, listDevices                 bool
}

func run(prefs cmd.Preferences, logger *slog.Logger, o options) error {
	bus := control.NewBus()
	defer bus.Close()
	midiContext := cmd.NewMIDIContext(bus, logger)
	defer midiContext.Close()
	if o.listDevices {
		return printDevices(o.backend, o.rate, midiContext)
	}
	audioContext, err := newAudioContext(o.backend, o.rate, o.device)
	if err != nil {
		return err
	}
	defer audioContext.Close()
	synth := engine.NewEngine(audioContext.SampleRate())
	controller := control.NewController(bus, synth, logger)
	if path, err := prefs.MIDIMappingPath(); err == nil {
		mapping, err := control.LoadMIDIMapping(path)
		if err != nil {
			logger.Warn("MIDI mapping not loaded, using defaults", "path", path, "err", err)
			mapping = control.DefaultMIDIMapping()
		}
		controller.SetMapping(mapping)
	}
	done := make(chan struct{})
	defer close(done)
	if o.preset != "" {
		preset, path, err := loadPreset(prefs, o.preset)
		if err != nil {
			return err
		}
		bus.Send(control.LoadPatch{Patch: preset.Patch})
		logger.Info("preset loaded", "name", preset.Name)
		if o.watch && path != "" {
			if err := control.WatchPreset(path, bus, done, logger); err != nil {
				return err
			}
		}
	}
	if err := control.OpenInput(midiContext, o.midiInput); err != nil {
		logger.Warn("MIDI input not opened", "input", o.midiInput, "err", err)
	}
	sink, err := audioContext.Play(synth)
	if err != nil {
		return err
	}
	defer func() { sink.Close() }()
	logger.Info("playing", "backend", o.backend, "rate", audioContext.SampleRate(), "version", version.VersionOrHash)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	tickRate := prefs.Control.Rate
	if tickRate <= 0 {
		tickRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	budget := prefs.DrainBudget()
	for {
		select {
		case <-ticker.C:
			if err := controller.Drain(budget); err != nil {
				logger.Warn("applying control messages failed", "err", err)
			}
			if err := synth.Err(); err != nil {
				logger.Error("render error", "err", err)
			}
		case s := <-signals:
			if s == syscall.SIGHUP {
				sink = reloadSampleRate(audioContext, sink, synth, logger)
				continue
			}
			logger.Info("stopping", "signal", s.String(), "rejected_events", synth.Dropped(), "pending_events", controller.Pending())
			return nil
		}
	}
}

// reloadSampleRate rereads the preferences and moves playback to the
// configured sample rate, if the backend can reopen its stream.
func reloadSampleRate(c polysynth.AudioContext, sink polysynth.AudioSink, synth *engine.Engine, logger *slog.Logger) polysynth.AudioSink {
	prefs := cmd.MakePreferences()
	if prefs.YmlError != nil {
		logger.Warn("preferences.yml could not be read", "err", prefs.YmlError)
		return sink
	}
	rate := prefs.Audio.SampleRate
	if rate <= 0 || rate == c.SampleRate() {
		return sink
	}
	pa, ok := c.(*portaudio.PortAudioContext)
	if !ok {
		logger.Warn("sample rate can only be switched with the portaudio backend", "rate", rate)
		return sink
	}
	newSink, err := pa.SwitchSampleRate(sink, synth, rate)
	if err != nil {
		logger.Error("switching sample rate failed", "rate", rate, "err", err)
		if newSink, err = pa.Play(synth); err != nil {
			logger.Error("reopening the stream failed", "rate", pa.SampleRate(), "err", err)
			return nopSink{}
		}
	}
	logger.Info("sample rate switched", "rate", rate)
	return newSink
}

type nopSink struct{}

func (nopSink) Close() error { return nil }

func newAudioContext(backend string, rate int, device string) (polysynth.AudioContext, error) {
	switch backend {
	case "oto":
		c, err := oto.NewContext(rate)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "portaudio":
		c, err := portaudio.NewContext(rate, device)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

// loadPreset reads a preset file, or a saved preset by name. path is the file
// that was read.
func loadPreset(prefs cmd.Preferences, nameOrPath string) (p polysynth.Preset, path string, err error) {
	if _, err := os.Stat(nameOrPath); err == nil {
		p, err := polysynth.ReadPresetFile(nameOrPath)
		return p, nameOrPath, err
	}
	dir, err := prefs.PresetDir()
	if err != nil {
		return polysynth.Preset{}, "", err
	}
	p, err = dir.Load(nameOrPath)
	if errors.Is(err, polysynth.ErrPresetNotFound) {
		return polysynth.Preset{}, "", fmt.Errorf("no preset file or saved preset named %q", nameOrPath)
	}
	return p, "", err
}

func printDevices(backend string, rate int, midiContext control.MIDIContext) error {
	if backend == "portaudio" {
		ctx, err := portaudio.NewContext(rate, "")
		if err != nil {
			return err
		}
		defer ctx.Close()
		devices, err := portaudio.Devices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			mark := " "
			if d.Default {
				mark = "*"
			}
			fmt.Printf("%s %s (%s, %d ch, %.0f Hz)\n", mark, d.Name, d.HostAPI, d.Channels, d.SampleRate)
		}
	}
	for input := range midiContext.Inputs {
		fmt.Printf("MIDI: %s\n", input.String())
	}
	return nil
}
