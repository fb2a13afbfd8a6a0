// Package audio defines the audio device abstractions and the PCM/WAV
// helpers shared across podtalk.
//
// The two device abstractions are:
//
//   - [Recorder] — captures microphone input for a bounded duration.
//   - [Player] — plays a PCM buffer through the default output device.
//
// Implementations live in platform-specific subpackages (audio/portaudio
// for real devices, audio/mock for tests). The interfaces are narrow so
// the talk loop stays decoupled from device details.
package audio

import (
	"context"
	"time"
)

// Recorder captures audio from an input device.
//
// Implementations must be safe for concurrent use, though the talk loop
// only ever records one utterance at a time.
type Recorder interface {
	// Record captures input for the given duration and returns the
	// captured buffer. Returns early with the partial buffer if ctx is
	// cancelled.
	Record(ctx context.Context, d time.Duration) (Buffer, error)
}

// Player plays audio through an output device.
type Player interface {
	// Play writes the buffer to the output device and blocks until
	// playback completes or ctx is cancelled.
	Play(ctx context.Context, buf Buffer) error
}

// Buffer is a chunk of 16-bit signed little-endian PCM audio.
type Buffer struct {
	// Data holds the interleaved samples, two bytes each.
	Data []byte

	// SampleRate in Hz (e.g., 44100 for capture, 22050 for synthesis output).
	SampleRate int

	// Channels: 1 for mono capture, 2 for stereo episode audio.
	Channels int
}

// Duration returns the play time of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate == 0 || b.Channels == 0 {
		return 0
	}
	frames := len(b.Data) / (2 * b.Channels)
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Empty reports whether the buffer holds no samples.
func (b Buffer) Empty() bool {
	return len(b.Data) == 0
}
