// Package types defines the shared types used across all podtalk packages.
//
// These types form the lingua franca between providers, the clip selector,
// the clone manager, and the talk session. Each package defines its own
// domain types, but cross-cutting data structures live here to avoid
// circular imports.
package types

import "time"

// Segment is a diarized span of speech attributed to a single speaker.
// Offsets are relative to the start of the analysis window.
type Segment struct {
	// SpeakerID is the diarization label (e.g., "speaker_0"). Labels are
	// stable within one diarization result but carry no meaning across
	// episodes.
	SpeakerID string

	// Start is the offset where the span begins. Always < End.
	Start time.Duration

	// End is the offset where the span ends.
	End time.Duration

	// Text is the transcribed content of the span. May be empty when the
	// provider returns timing without words.
	Text string
}

// Duration returns the length of the segment.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// DiarizationResult is the complete output of one diarization run over a
// bounded analysis window. Results are immutable once produced and safe to
// cache durably.
type DiarizationResult struct {
	// EpisodeKey identifies the analyzed episode (show + episode slug).
	EpisodeKey string

	// Window is the length of audio that was analyzed, measured from the
	// start of the episode. Two runs with different windows are distinct
	// results even for the same episode.
	Window time.Duration

	// Segments are ordered by Start per speaker. Spans from different
	// speakers may interleave or overlap.
	Segments []Segment

	// CreatedAt is when the analysis completed.
	CreatedAt time.Time
}

// Speakers returns the distinct speaker IDs present in the result, in
// order of first appearance.
func (r DiarizationResult) Speakers() []string {
	seen := make(map[string]bool, 4)
	var out []string
	for _, seg := range r.Segments {
		if !seen[seg.SpeakerID] {
			seen[seg.SpeakerID] = true
			out = append(out, seg.SpeakerID)
		}
	}
	return out
}

// BySpeaker groups the result's segments per speaker ID, preserving order.
func (r DiarizationResult) BySpeaker() map[string][]Segment {
	out := make(map[string][]Segment, 4)
	for _, seg := range r.Segments {
		out[seg.SpeakerID] = append(out[seg.SpeakerID], seg)
	}
	return out
}

// SpeakerProfile links a diarized speaker to a synthesized voice.
type SpeakerProfile struct {
	// SpeakerID is the diarization label this profile belongs to.
	SpeakerID string

	// DisplayName is the human-facing name used for the voice
	// (e.g., "My Show - speaker_0").
	DisplayName string

	// CloneID is the provider-assigned voice identifier. Empty until
	// cloning has succeeded for this speaker.
	CloneID string

	// SelectedDuration is the total length of training audio submitted
	// when the clone was created. Zero for reused clones.
	SelectedDuration time.Duration
}

// Cloned reports whether a usable voice exists for this speaker.
func (p SpeakerProfile) Cloned() bool {
	return p.CloneID != ""
}

// Clip is a selected slice of episode audio used as clone training material.
type Clip struct {
	// SpeakerID is the speaker the clip belongs to.
	SpeakerID string

	// Start and End bound the clip within the analysis window.
	Start time.Duration
	End   time.Duration
}

// Duration returns the length of the clip.
func (c Clip) Duration() time.Duration {
	return c.End - c.Start
}

// PlaybackStatus is a snapshot of the external player's state.
type PlaybackStatus struct {
	// Playing reports whether audio is currently advancing.
	Playing bool

	// TrackID identifies the playing item in the player's namespace.
	TrackID string

	// TrackName is the human-readable episode title.
	TrackName string

	// ShowName is the podcast title, when the player reports it.
	ShowName string

	// Position is the playhead offset into the item.
	Position time.Duration

	// TrackLength is the total item length, zero if unknown.
	TrackLength time.Duration

	// DeviceID identifies the playback device, used to pin resume
	// commands to the same device that was paused.
	DeviceID string
}
