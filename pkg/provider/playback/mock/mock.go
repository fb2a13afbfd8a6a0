// Package mock provides an in-memory mock implementation of the
// playback.Controller interface for use in unit tests.
//
// The mock records every control call so tests can assert on pause and
// resume counts, and exposes exported fields to control return values.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/podtalk/podtalk/pkg/provider/playback"
	"github.com/podtalk/podtalk/pkg/types"
)

// Controller is a mock implementation of [playback.Controller].
// Set the exported Result fields before use; inspect the Call* fields
// after.
type Controller struct {
	mu sync.Mutex

	// StatusResult is returned by [Controller.Status].
	StatusResult types.PlaybackStatus

	// StatusError is returned by [Controller.Status].
	StatusError error

	// PauseError is returned by [Controller.Pause].
	PauseError error

	// ResumeError is returned by [Controller.Resume].
	ResumeError error

	// SeekError is returned by [Controller.Seek].
	SeekError error

	// CallCountStatus records how many times Status was called.
	CallCountStatus int

	// CallCountPause records how many times Pause was called.
	CallCountPause int

	// ResumedDeviceIDs holds the deviceID argument of each Resume call.
	ResumedDeviceIDs []string

	// SeekedPositions holds the position argument of each Seek call.
	SeekedPositions []time.Duration
}

// Status implements [playback.Controller].
func (c *Controller) Status(_ context.Context) (types.PlaybackStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountStatus++
	if c.StatusError != nil {
		return types.PlaybackStatus{}, c.StatusError
	}
	return c.StatusResult, nil
}

// Pause implements [playback.Controller].
func (c *Controller) Pause(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountPause++
	return c.PauseError
}

// Resume implements [playback.Controller].
func (c *Controller) Resume(_ context.Context, deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResumedDeviceIDs = append(c.ResumedDeviceIDs, deviceID)
	return c.ResumeError
}

// Seek implements [playback.Controller].
func (c *Controller) Seek(_ context.Context, pos time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SeekedPositions = append(c.SeekedPositions, pos)
	return c.SeekError
}

// CallCountResume returns how many times Resume was called.
func (c *Controller) CallCountResume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ResumedDeviceIDs)
}

var _ playback.Controller = (*Controller)(nil)
