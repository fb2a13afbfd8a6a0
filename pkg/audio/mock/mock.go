// Package mock provides in-memory mock implementations of the
// [audio.Recorder] and [audio.Player] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/podtalk/podtalk/pkg/audio"
)

// Recorder is a mock implementation of [audio.Recorder].
// Set the exported Result fields before use; inspect the Call* fields after.
type Recorder struct {
	mu sync.Mutex

	// RecordResult is returned by [Recorder.Record].
	RecordResult audio.Buffer

	// RecordError is returned by [Recorder.Record].
	RecordError error

	// RecordedDurations holds the duration argument of each Record call.
	RecordedDurations []time.Duration
}

// Record implements [audio.Recorder].
func (r *Recorder) Record(_ context.Context, d time.Duration) (audio.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RecordedDurations = append(r.RecordedDurations, d)
	return r.RecordResult, r.RecordError
}

// CallCount returns how many times Record was called.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.RecordedDurations)
}

// Player is a mock implementation of [audio.Player].
type Player struct {
	mu sync.Mutex

	// PlayError is returned by [Player.Play].
	PlayError error

	// Played holds the buffer argument of each Play call.
	Played []audio.Buffer
}

// Play implements [audio.Player].
func (p *Player) Play(_ context.Context, buf audio.Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, buf)
	return p.PlayError
}

// CallCount returns how many times Play was called.
func (p *Player) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Played)
}

var (
	_ audio.Recorder = (*Recorder)(nil)
	_ audio.Player   = (*Player)(nil)
)
