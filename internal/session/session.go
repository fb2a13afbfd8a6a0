// Package session holds the mutable state of one listening session: the
// episode under analysis, its diarization, the per-speaker voice
// profiles, and the last observed playback position.
//
// State lives in an explicit Context value rather than globals so tests
// can build sessions freely and the talk loop can treat the session as a
// plain dependency. All methods are safe for concurrent use.
package session

import (
	"sync"
	"time"

	"github.com/podtalk/podtalk/pkg/types"
)

// Context is the state of one listening session.
type Context struct {
	mu sync.RWMutex

	episodeKey string
	show       string
	title      string

	diarization types.DiarizationResult
	profiles    map[string]types.SpeakerProfile
	playback    types.PlaybackStatus
	playbackAt  time.Time
}

// New returns an empty session Context.
func New() *Context {
	return &Context{profiles: make(map[string]types.SpeakerProfile)}
}

// Init binds the session to an episode and its diarization, clearing any
// previous episode state including voice profiles.
func (c *Context) Init(episodeKey, show, title string, result types.DiarizationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.episodeKey = episodeKey
	c.show = show
	c.title = title
	c.diarization = result
	c.profiles = make(map[string]types.SpeakerProfile)
	c.playback = types.PlaybackStatus{}
	c.playbackAt = time.Time{}
}

// Reset clears all session state.
func (c *Context) Reset() {
	c.Init("", "", "", types.DiarizationResult{})
}

// EpisodeKey returns the bound episode key, empty before Init.
func (c *Context) EpisodeKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.episodeKey
}

// Show returns the show name.
func (c *Context) Show() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.show
}

// Title returns the episode title.
func (c *Context) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.title
}

// Diarization returns the session's diarization result.
func (c *Context) Diarization() types.DiarizationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.diarization
}

// Profile returns the profile for a speaker, false when none is set.
func (c *Context) Profile(speakerID string) (types.SpeakerProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[speakerID]
	return p, ok
}

// SetProfile stores or replaces a speaker's profile.
func (c *Context) SetProfile(p types.SpeakerProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.SpeakerID] = p
}

// Profiles returns a copy of all speaker profiles.
func (c *Context) Profiles() map[string]types.SpeakerProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.SpeakerProfile, len(c.profiles))
	for k, v := range c.profiles {
		out[k] = v
	}
	return out
}

// ClonedSpeakers returns the IDs of speakers with a usable voice, in the
// diarization's order of first appearance.
func (c *Context) ClonedSpeakers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, id := range c.diarization.Speakers() {
		if p, ok := c.profiles[id]; ok && p.Cloned() {
			out = append(out, id)
		}
	}
	return out
}

// SetPlayback records a playback status snapshot.
func (c *Context) SetPlayback(status types.PlaybackStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playback = status
	c.playbackAt = time.Now()
}

// Playback returns the last recorded playback snapshot and when it was
// taken. A zero time means no snapshot has been recorded.
func (c *Context) Playback() (types.PlaybackStatus, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playback, c.playbackAt
}
