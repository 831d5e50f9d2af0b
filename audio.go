package polysynth

// AudioBuffer is a buffer of mono float32 samples.
type AudioBuffer []float32

// Renderer fills a buffer with audio. The engine implements it; audio
// backends call it from their own real-time thread.
type Renderer interface {
	Process(buffer AudioBuffer)
}

// AudioContext is an audio output device. Play starts pulling samples from
// the renderer until the returned sink is closed.
type AudioContext interface {
	Play(r Renderer) (AudioSink, error)
	SampleRate() int
	Close() error
}

type AudioSink interface {
	Close() error
}
