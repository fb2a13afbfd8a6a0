// Package diarize defines the Provider interface for speaker diarization
// backends.
//
// A diarization provider wraps a speech-to-text service that attributes
// each recognized span to a speaker label (e.g., ElevenLabs Scribe). The
// caller submits one bounded audio window per request; results are never
// streamed.
//
// Implementations must be safe for concurrent use.
package diarize

import (
	"context"
	"time"

	"github.com/podtalk/podtalk/pkg/types"
)

// Request describes one diarization call.
type Request struct {
	// Audio is the complete encoded audio window (WAV or MP3, per the
	// implementation's accepted formats).
	Audio []byte

	// NumSpeakers hints the expected speaker count. Zero lets the
	// service decide.
	NumSpeakers int

	// Language is an optional BCP-47 hint (e.g., "en"). Empty means
	// auto-detect.
	Language string
}

// Provider is the abstraction over any diarization backend.
//
// Diarize submits the full window in one call and returns the recognized
// spans ordered by start time. Spans from the same speaker never overlap.
// The call does not retry; a failed service call surfaces as a
// *types.ServiceError.
type Provider interface {
	Diarize(ctx context.Context, req Request) ([]types.Segment, error)
}

// TotalSpeech sums the span lengths per speaker, a cheap summary used for
// logging after an analysis run.
func TotalSpeech(segments []types.Segment) map[string]time.Duration {
	out := make(map[string]time.Duration, 4)
	for _, s := range segments {
		out[s.SpeakerID] += s.Duration()
	}
	return out
}
