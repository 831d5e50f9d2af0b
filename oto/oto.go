package oto

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/polysynth"
)

type (
	// OtoContext is an oto/v3 context producing mono float32 audio. oto
	// allows a single context per process, so its sample rate is fixed for
	// the life of the program.
	OtoContext struct {
		context    *oto.Context
		sampleRate int
	}

	OtoOutput struct {
		player *oto.Player
	}

	// renderReader pulls audio from a renderer whenever oto asks for bytes.
	// It runs on the audio thread of oto.
	renderReader struct {
		renderer  polysynth.Renderer
		buffer    polysynth.AudioBuffer
		tmpBuffer []byte
	}
)

const otoBufferSize = 1024 // frames

// NewContext creates the oto context and waits until the device is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate}, nil
}

// Play starts pulling audio from r.
func (c *OtoContext) Play(r polysynth.Renderer) (polysynth.AudioSink, error) {
	player := c.context.NewPlayer(&renderReader{renderer: r})
	player.SetBufferSize(otoBufferSize * 4)
	player.Play()
	if err := player.Err(); err != nil {
		player.Close()
		return nil, fmt.Errorf("cannot start oto player: %w", err)
	}
	return &OtoOutput{player: player}, nil
}

func (c *OtoContext) SampleRate() int { return c.sampleRate }

// Close suspends the device. oto contexts cannot be destroyed.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (r *renderReader) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if cap(r.buffer) < frames {
		r.buffer = make(polysynth.AudioBuffer, frames)
	}
	r.buffer = r.buffer[:frames]
	r.renderer.Process(r.buffer)
	// we reuse the old capacity tmpBuffer by setting its length to zero
	r.tmpBuffer = FloatBufferToFloat32LE(r.buffer, r.tmpBuffer[:0])
	return copy(p, r.tmpBuffer), nil
}

// Close disposes of resources
func (o *OtoOutput) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
