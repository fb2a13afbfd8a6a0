// Package transcribe defines the Provider interface for speech-to-text
// backends used on captured user utterances.
//
// Unlike diarization, transcription here is single-speaker and latency
// sensitive: one short microphone recording per talk turn.
//
// Implementations must be safe for concurrent use.
package transcribe

import (
	"context"

	"github.com/podtalk/podtalk/pkg/audio"
)

// Provider is the abstraction over any transcription backend.
type Provider interface {
	// Transcribe converts the captured utterance to text. An empty
	// result with a nil error means the service heard no speech. A
	// failed service call surfaces as a *types.ServiceError.
	Transcribe(ctx context.Context, buf audio.Buffer) (string, error)
}
