// Package voice defines the Provider interface for voice cloning and
// speech synthesis backends.
//
// A voice provider wraps a synthesis service that supports instant voice
// cloning (e.g., ElevenLabs). Cloning is an expensive one-time operation
// performed during episode setup; synthesis runs in the talk loop's hot
// path.
//
// Implementations must be safe for concurrent use. Multiple clone
// requests may run in parallel during episode setup.
package voice

import (
	"context"

	"github.com/podtalk/podtalk/pkg/audio"
)

// Voice describes a voice available from the provider, preset or cloned.
type Voice struct {
	// ID is the provider-assigned voice identifier.
	ID string

	// Name is the human-readable voice name. Clones are looked up by
	// name for reuse across sessions.
	Name string

	// Category distinguishes clones from presets ("cloned", "premade").
	Category string
}

// CloneRequest describes one instant-voice-clone creation call.
type CloneRequest struct {
	// Name is the name to register the clone under.
	Name string

	// Description is an optional human-readable note.
	Description string

	// Samples are the encoded training audio files (WAV or MP3).
	// Must be non-empty.
	Samples [][]byte

	// RemoveBackgroundNoise asks the service to denoise the samples
	// before training.
	RemoveBackgroundNoise bool
}

// Provider is the abstraction over any cloning-capable synthesis backend.
type Provider interface {
	// Clone creates a new voice from the request's training samples and
	// returns it with the provider-assigned ID. An empty sample set is
	// an error, not a panic.
	Clone(ctx context.Context, req CloneRequest) (Voice, error)

	// ListVoices returns the provider's current voice catalogue,
	// including clones created by this account.
	ListVoices(ctx context.Context) ([]Voice, error)

	// DeleteVoice removes a cloned voice.
	DeleteVoice(ctx context.Context, voiceID string) error

	// Synthesize converts text to speech in the given voice and returns
	// the complete PCM buffer. Used by the talk loop, which needs the
	// whole utterance before playback anyway.
	Synthesize(ctx context.Context, voiceID, text string) (audio.Buffer, error)

	// SynthesizeStream consumes text fragments from the text channel
	// and returns a channel emitting raw PCM chunks as they are
	// synthesized. The audio channel is closed when all text has been
	// synthesized or ctx is cancelled; callers must drain it.
	SynthesizeStream(ctx context.Context, voiceID string, text <-chan string) (<-chan []byte, error)
}

// FindByName returns the first voice with the given name, if any.
func FindByName(voices []Voice, name string) (Voice, bool) {
	for _, v := range voices {
		if v.Name == name {
			return v, true
		}
	}
	return Voice{}, false
}
