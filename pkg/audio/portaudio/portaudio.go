// Package portaudio implements the audio device interfaces on top of
// PortAudio, using the default system input and output devices.
//
// PortAudio keeps global state. The runtime is initialized lazily on
// first device use, so constructing a Recorder or Player on a headless
// machine costs nothing; call [Terminate] on shutdown.
package portaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/podtalk/podtalk/pkg/audio"
)

const framesPerBuffer = 1024

var (
	initOnce    sync.Once
	initErr     error
	initialized atomic.Bool
)

// Initialize sets up the PortAudio runtime. It runs automatically on
// first device use; calling it again is a no-op.
func Initialize() error {
	initOnce.Do(func() {
		if err := pa.Initialize(); err != nil {
			initErr = fmt.Errorf("portaudio: initialize: %w", err)
			return
		}
		initialized.Store(true)
	})
	return initErr
}

// Terminate tears down the PortAudio runtime. A no-op when no device was
// ever used, so shutdown paths can call it unconditionally.
func Terminate() error {
	if !initialized.Load() {
		return nil
	}
	return pa.Terminate()
}

// Recorder captures mono audio from the default input device.
type Recorder struct {
	sampleRate int
}

// NewRecorder creates a Recorder capturing at the given sample rate.
func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{sampleRate: sampleRate}
}

// Record implements [audio.Recorder]. It opens the default input stream,
// reads until the requested duration has elapsed or ctx is cancelled, and
// returns the captured 16-bit mono PCM.
func (r *Recorder) Record(ctx context.Context, d time.Duration) (audio.Buffer, error) {
	if err := Initialize(); err != nil {
		return audio.Buffer{}, err
	}
	buf := make([]int16, framesPerBuffer)
	stream, err := pa.OpenDefaultStream(1, 0, float64(r.sampleRate), framesPerBuffer, buf)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("portaudio: open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return audio.Buffer{}, fmt.Errorf("portaudio: start input stream: %w", err)
	}
	defer stream.Stop()

	out := audio.Buffer{SampleRate: r.sampleRate, Channels: 1}
	wantFrames := int(d * time.Duration(r.sampleRate) / time.Second)
	captured := 0
	for captured < wantFrames {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		if err := stream.Read(); err != nil {
			return out, fmt.Errorf("portaudio: read: %w", err)
		}
		n := len(buf)
		if captured+n > wantFrames {
			n = wantFrames - captured
		}
		for _, s := range buf[:n] {
			out.Data = append(out.Data, byte(s), byte(s>>8))
		}
		captured += n
	}
	return out, nil
}

// Player plays PCM buffers through the default output device.
type Player struct{}

// NewPlayer creates a Player for the default output device.
func NewPlayer() *Player {
	return &Player{}
}

// Play implements [audio.Player]. The stream is opened with the buffer's
// own sample rate and channel count, so synthesized audio plays at its
// native format.
func (p *Player) Play(ctx context.Context, in audio.Buffer) error {
	if in.Empty() {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	out := make([]int16, framesPerBuffer*in.Channels)
	stream, err := pa.OpenDefaultStream(0, in.Channels, float64(in.SampleRate), framesPerBuffer, &out)
	if err != nil {
		return fmt.Errorf("portaudio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output stream: %w", err)
	}
	defer stream.Stop()

	samples := len(in.Data) / 2
	for pos := 0; pos < samples; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n := 0
		for ; n < len(out) && pos+n < samples; n++ {
			i := (pos + n) * 2
			out[n] = int16(in.Data[i]) | int16(in.Data[i+1])<<8
		}
		// Zero-pad the final partial buffer.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("portaudio: write: %w", err)
		}
		pos += n
	}
	return nil
}

var (
	_ audio.Recorder = (*Recorder)(nil)
	_ audio.Player   = (*Player)(nil)
)
