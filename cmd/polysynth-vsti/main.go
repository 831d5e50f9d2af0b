//go:build plugin

package main

import (
	"bytes"
	"log/slog"

	"github.com/vsariola/polysynth"
	"github.com/vsariola/polysynth/control"
	"github.com/vsariola/polysynth/engine"
	"pipelined.dev/audio/vst2"
)

// VSTIProcessContext queues the MIDI events of the host between blocks.
type VSTIProcessContext struct {
	events []vst2.MIDIEvent
}

const PLUGIN_NAME = "Polysynth"

var PLUGIN_ID = [4]byte{'P', 'l', 'y', 'S'}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		logger := slog.Default()
		synth := engine.NewEngine(44100)
		bus := control.NewBus()
		controller := control.NewController(bus, synth, logger)
		context := VSTIProcessContext{}
		buf := make(polysynth.AudioBuffer, 1024)
		return vst2.Plugin{
				UniqueID:       PLUGIN_ID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           PLUGIN_NAME,
				Vendor:         "vsariola/polysynth",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					for _, ev := range context.events {
						if m, ok := control.DecodeMIDI(ev.Data[:]); ok {
							bus.Send(m)
						}
					}
					context.events = context.events[:0] // reset buffer, but keep the allocated memory
					if err := controller.Drain(0); err != nil {
						logger.Warn("applying MIDI failed", "err", err)
					}
					left := out.Channel(0)
					right := out.Channel(1)
					if len(buf) < out.Frames {
						buf = append(buf, make(polysynth.AudioBuffer, out.Frames-len(buf))...)
					}
					buf = buf[:out.Frames]
					synth.Process(buf)
					for i := 0; i < out.Frames; i++ {
						left[i], right[i] = buf[i], buf[i]
					}
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
				CloseFunc: func() {
					bus.Close()
				},
				SetSampleRateFunc: func(rate float32) {
					synth.SetSampleRate(int(rate))
				},
				GetChunkFunc: func(isPreset bool) []byte {
					var b bytes.Buffer
					p := controller.Preset(PLUGIN_NAME)
					if err := p.Write(&b); err != nil {
						logger.Error("saving plugin state failed", "err", err)
						return nil
					}
					return b.Bytes()
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					p, err := polysynth.ReadPreset(bytes.NewReader(data))
					if err != nil {
						logger.Error("restoring plugin state failed", "err", err)
						return
					}
					bus.Send(control.LoadPatch{Patch: p.Patch})
				},
			}
	}
}

func main() {}
