package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when a key has no value. A corrupt or
// undecodable stored entry is reported the same way, so callers treat it
// as a miss and recompute.
var ErrNotFound = errors.New("not found")

// ServiceError reports a failure from an external service call. The core
// pipeline never retries; the error carries enough context for the caller
// to log and surface it.
type ServiceError struct {
	// Service names the remote system ("elevenlabs", "anthropic", "spotify").
	Service string

	// Op is the operation that failed ("diarize", "synthesize", "pause").
	Op string

	// StatusCode is the HTTP status when the failure was an HTTP error
	// response, zero otherwise.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// CloneError reports that the voice provider rejected or failed a clone
// request for a specific speaker.
type CloneError struct {
	// SpeakerID is the speaker whose clone failed.
	SpeakerID string

	// VoiceName is the name the clone was submitted under.
	VoiceName string

	// Err is the underlying cause.
	Err error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone %q for speaker %s: %v", e.VoiceName, e.SpeakerID, e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

// InsufficientAudioError reports that clip selection could not gather
// enough usable audio for a speaker to attempt cloning.
type InsufficientAudioError struct {
	// SpeakerID is the speaker that lacked audio.
	SpeakerID string

	// Available is the total usable audio found.
	Available time.Duration

	// Required is the minimum needed to attempt a clone.
	Required time.Duration
}

func (e *InsufficientAudioError) Error() string {
	return fmt.Sprintf("insufficient audio for speaker %s: %s available, %s required",
		e.SpeakerID, e.Available, e.Required)
}

// PlaybackControlError reports a failed pause, resume, or seek against the
// external player.
type PlaybackControlError struct {
	// Op is the control operation ("pause", "resume", "seek").
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *PlaybackControlError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Op, e.Err)
}

func (e *PlaybackControlError) Unwrap() error { return e.Err }
