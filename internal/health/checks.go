package health

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/podtalk/podtalk/pkg/kv"
	"github.com/podtalk/podtalk/pkg/provider/playback"
)

// Store checks that the diarization cache store answers reads. A missing
// key is a healthy answer; only transport or corruption errors fail.
func Store(s kv.Store) Checker {
	return Checker{
		Name: "cache",
		Check: func(ctx context.Context) error {
			_, err := s.Get(ctx, kv.Key{"health", "probe"})
			if err != nil && !errors.Is(err, kv.ErrNotFound) {
				return err
			}
			return nil
		},
	}
}

// FFmpeg checks that ffmpeg is on PATH, since episode setup shells out
// to it for enclosure decoding.
func FFmpeg() Checker {
	return Checker{
		Name: "ffmpeg",
		Check: func(_ context.Context) error {
			if _, err := exec.LookPath("ffmpeg"); err != nil {
				return fmt.Errorf("not on PATH")
			}
			return nil
		},
	}
}

// Playback checks that the playback service answers a status query. No
// active session is a healthy answer.
func Playback(c playback.Controller) Checker {
	return Checker{
		Name: "playback",
		Check: func(ctx context.Context) error {
			_, err := c.Status(ctx)
			return err
		},
	}
}
