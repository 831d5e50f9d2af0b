package main

import (
	"cmp"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/cmd"
	"github.com/vsariola/polysynth/control"
	"github.com/vsariola/polysynth/engine"
	"github.com/vsariola/polysynth/version"
	"gitlab.com/gomidi/midi/v2/smf"
)

func main() {
	presetFile := flag.String("preset", "", "Preset .yml file to render with. By default, the built-in patch is used.")
	rate := flag.Int("rate", 44100, "Sample rate in Hz.")
	output := flag.String("o", "", "Output .wav file. By default, the name of the MIDI file with .wav extension.")
	pcm := flag.Bool("pcm", false, "Write 16-bit signed PCM instead of 32-bit float.")
	tail := flag.Float64("tail", 1, "Seconds rendered after the last event, to let releases finish.")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(0)
	}
	logger, err := cmd.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	song := flag.Arg(0)
	patch := polysynth.DefaultPatch()
	if *presetFile != "" {
		p, err := polysynth.ReadPresetFile(*presetFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read preset: %v\n", err)
			os.Exit(1)
		}
		patch = p.Patch
	}
	events, err := readEvents(song)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read MIDI file: %v\n", err)
		os.Exit(1)
	}
	buffer := render(patch, events, *rate, *tail, logger)
	out := *output
	if out == "" {
		out = strings.TrimSuffix(song, filepath.Ext(song)) + ".wav"
	}
	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create output file: %v\n", err)
		os.Exit(1)
	}
	if err := polysynth.WriteWav(f, buffer, *rate, *pcm); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "could not write %v: %v\n", out, err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "could not close %v: %v\n", out, err)
		os.Exit(1)
	}
	logger.Info("rendered", "file", out, "samples", len(buffer))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] song.mid\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

// timedMessage is a bus message at a time in microseconds from the start.
type timedMessage struct {
	micros int64
	msg    control.Message
}

// readEvents collects the channel messages of all tracks, sorted by time.
func readEvents(path string) ([]timedMessage, error) {
	var events []timedMessage
	err := smf.ReadTracks(path).Do(func(te smf.TrackEvent) {
		if m, ok := control.DecodeMIDI(te.Event.Message); ok {
			events = append(events, timedMessage{micros: te.AbsMicroSeconds, msg: m})
		}
	}).Error()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(events, func(a, b timedMessage) int { return cmp.Compare(a.micros, b.micros) })
	return events, nil
}

// render plays the events through a fresh engine. Each event goes through the
// bus and controller, as in live playing, and takes effect at the start of
// the block that follows it.
func render(patch polysynth.Patch, events []timedMessage, rate int, tail float64, logger *slog.Logger) []float32 {
	synth := engine.NewEngine(rate)
	bus := control.NewBus()
	controller := control.NewController(bus, synth, logger)
	bus.Send(control.LoadPatch{Patch: patch})
	controller.Drain(0)
	var length int
	if len(events) > 0 {
		length = frameAt(events[len(events)-1].micros, rate)
	}
	length += int(tail * float64(rate))
	buffer := make(polysynth.AudioBuffer, length)
	pos := 0
	for _, ev := range events {
		frame := min(frameAt(ev.micros, rate), length)
		synth.Process(buffer[pos:frame])
		pos = frame
		bus.Send(ev.msg)
		if err := controller.Drain(0); err != nil {
			logger.Warn("event failed", "err", err)
		}
	}
	synth.Process(buffer[pos:])
	if err := synth.Err(); err != nil {
		logger.Error("render error", "err", err)
	}
	return buffer
}

func frameAt(micros int64, rate int) int {
	return int(micros * int64(rate) / 1e6)
}
