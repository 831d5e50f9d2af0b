package portaudio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/vsariola/polysynth"
)

type (
	// PortAudioContext plays through one PortAudio output device. Unlike oto,
	// streams can be closed and reopened at a different sample rate.
	PortAudioContext struct {
		device     *portaudio.DeviceInfo
		sampleRate int
	}

	PortAudioOutput struct {
		stream *portaudio.Stream
	}

	// Device describes an output device.
	Device struct {
		Name       string
		HostAPI    string
		Channels   int
		SampleRate float64
		Default    bool
	}

	// SampleRateSetter is implemented by renderers that have to know when the
	// rate of the stream changes.
	SampleRateSetter interface {
		SetSampleRate(rate int) bool
	}
)

// NewContext initializes PortAudio and picks the first output device whose
// name starts with devicePrefix, or the default output device if the prefix
// is empty.
func NewContext(sampleRate int, devicePrefix string) (*PortAudioContext, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	device, err := findDevice(devicePrefix)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &PortAudioContext{device: device, sampleRate: sampleRate}, nil
}

func findDevice(prefix string) (*portaudio.DeviceInfo, error) {
	if prefix == "" {
		d, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default output device: %w", err)
		}
		return d, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list devices: %w", err)
	}
	for _, d := range devices {
		if d.MaxOutputChannels > 0 && strings.HasPrefix(d.Name, prefix) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no output device starting with %q", prefix)
}

// Devices lists the output devices of all host APIs. PortAudio must be
// initialized, i.e. a context must be open.
func Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list devices: %w", err)
	}
	def, _ := portaudio.DefaultOutputDevice()
	var ret []Device
	for _, d := range devices {
		if d.MaxOutputChannels == 0 {
			continue
		}
		dev := Device{
			Name:       d.Name,
			Channels:   d.MaxOutputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    d == def,
		}
		if d.HostApi != nil {
			dev.HostAPI = d.HostApi.Name
		}
		ret = append(ret, dev)
	}
	return ret, nil
}

// Play opens a mono stream at the sample rate of the context and starts
// calling r for audio.
func (c *PortAudioContext) Play(r polysynth.Renderer) (polysynth.AudioSink, error) {
	params := portaudio.LowLatencyParameters(nil, c.device)
	params.Output.Channels = 1
	params.SampleRate = float64(c.sampleRate)
	stream, err := portaudio.OpenStream(params, func(out []float32) {
		r.Process(out)
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open stream on %v: %w", c.device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("cannot start stream: %w", err)
	}
	return &PortAudioOutput{stream: stream}, nil
}

// SwitchSampleRate stops the stream of sink, tells r about the new rate and
// plays r again on a new stream at that rate. The rate change reaches r
// before the new stream asks for its first block; if r cannot take it, no
// stream is opened and the context keeps its old rate.
func (c *PortAudioContext) SwitchSampleRate(sink polysynth.AudioSink, r polysynth.Renderer, rate int) (polysynth.AudioSink, error) {
	if sink != nil {
		if err := sink.Close(); err != nil {
			return nil, err
		}
	}
	if s, ok := r.(SampleRateSetter); ok && !s.SetSampleRate(rate) {
		return nil, fmt.Errorf("renderer did not accept sample rate %d", rate)
	}
	c.sampleRate = rate
	return c.Play(r)
}

func (c *PortAudioContext) SampleRate() int { return c.sampleRate }

func (c *PortAudioContext) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("cannot terminate portaudio: %w", err)
	}
	return nil
}

// Close stops and closes the stream.
func (o *PortAudioOutput) Close() error {
	if err := o.stream.Stop(); err != nil {
		o.stream.Close()
		return fmt.Errorf("cannot stop stream: %w", err)
	}
	if err := o.stream.Close(); err != nil {
		return fmt.Errorf("cannot close stream: %w", err)
	}
	return nil
}
