// Package playback defines the Controller interface for external podcast
// players.
//
// The talk loop needs four things from a player: a status snapshot, a
// pause, a resume pinned to the paused device, and a seek. Everything
// else about the player (queueing, search, volume) is out of scope.
//
// Implementations must be safe for concurrent use.
package playback

import (
	"context"
	"time"

	"github.com/podtalk/podtalk/pkg/types"
)

// Controller is the abstraction over an external playback service.
//
// Control failures surface as *types.PlaybackControlError. There are no
// retries; the caller decides how to react to a failed pause or resume.
type Controller interface {
	// Status returns a snapshot of the current playback state. A player
	// with no active session returns a zero status and nil error.
	Status(ctx context.Context) (types.PlaybackStatus, error)

	// Pause stops playback on the active device.
	Pause(ctx context.Context) error

	// Resume restarts playback. A non-empty deviceID pins the command
	// to that device; empty lets the player pick its active device.
	Resume(ctx context.Context, deviceID string) error

	// Seek moves the playhead to the given offset in the current item.
	Seek(ctx context.Context, pos time.Duration) error
}
