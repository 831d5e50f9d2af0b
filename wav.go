package polysynth

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned when a file is not a WAV file the decoder
// can read.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const wavFormatFloat = 3

// ReadWav decodes a RIFF/WAVE stream into mono float32 samples. Integer
// samples are scaled to [-1, 1) by their bit depth, float samples are passed
// through and all channels are averaged. The sample rate of the file is
// returned alongside.
func ReadWav(r io.ReadSeeker) (samples []float32, sampleRate int, err error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file: %w", ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding wav failed: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("wav has no channels: %w", ErrUnsupportedFormat)
	}
	if d.BitDepth < 8 || d.BitDepth > 32 {
		return nil, 0, fmt.Errorf("%d-bit wav: %w", d.BitDepth, ErrUnsupportedFormat)
	}
	isFloat := d.WavAudioFormat == wavFormatFloat
	if isFloat && d.BitDepth != 32 {
		return nil, 0, fmt.Errorf("%d-bit float wav: %w", d.BitDepth, ErrUnsupportedFormat)
	}
	channels := buf.Format.NumChannels
	scale := float32(int64(1) << (d.BitDepth - 1))
	frames := len(buf.Data) / channels
	samples = make([]float32, frames)
	for i := range samples {
		var sum float32
		for _, v := range buf.Data[i*channels : (i+1)*channels] {
			if isFloat {
				sum += math.Float32frombits(uint32(int32(v)))
			} else {
				sum += float32(v) / scale
			}
		}
		samples[i] = sum / float32(channels)
	}
	return samples, int(d.SampleRate), nil
}

// WriteWav encodes mono samples as a WAV stream. With pcm16 the samples are
// clipped and written as 16-bit integers, otherwise as 32-bit float.
func WriteWav(w io.WriteSeeker, samples []float32, sampleRate int, pcm16 bool) error {
	bitDepth, format := 32, wavFormatFloat
	if pcm16 {
		bitDepth, format = 16, 1
	}
	data := make([]int, len(samples))
	for i, v := range samples {
		if pcm16 {
			data[i] = int(clamp(v, -1, 1) * math.MaxInt16)
		} else {
			data[i] = int(int32(math.Float32bits(v)))
		}
	}
	e := wav.NewEncoder(w, sampleRate, bitDepth, 1, format)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := e.Write(buf); err != nil {
		return fmt.Errorf("writing wav samples failed: %w", err)
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("finalizing wav failed: %w", err)
	}
	return nil
}

func clamp(v, lo, hi float32) float32 {
	if isBad(v) {
		return 0
	}
	return min(max(v, lo), hi)
}
