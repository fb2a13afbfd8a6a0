// Package clone creates and reuses per-speaker voice clones.
//
// Clones are expensive and provider accounts cap how many may exist, so
// the manager reuses aggressively: a speaker who already has a profile
// in the session is never re-submitted, and a voice whose name already
// exists in the provider's catalogue is adopted instead of recreated.
// Voice names follow the "<show> - <speaker>" convention so clones
// survive restarts.
package clone

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/podtalk/podtalk/internal/clips"
	"github.com/podtalk/podtalk/internal/observe"
	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/provider/voice"
	"github.com/podtalk/podtalk/pkg/types"
)

// Manager ensures a usable voice clone exists per speaker.
type Manager struct {
	provider voice.Provider
	logger   *slog.Logger
	metrics  *observe.Metrics
	denoise  bool
}

// Option is a functional option for Manager.
type Option func(*Manager)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithDenoise asks the provider to remove background noise from the
// training clips. On by default.
func WithDenoise(on bool) Option {
	return func(m *Manager) {
		m.denoise = on
	}
}

// WithMetrics overrides the metrics instance.
func WithMetrics(mt *observe.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager builds a Manager over a voice provider.
func NewManager(provider voice.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		logger:   slog.Default(),
		metrics:  observe.DefaultMetrics(),
		denoise:  true,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// VoiceName returns the catalogue name used for a speaker's clone.
func VoiceName(show, speakerID string) string {
	return show + " - " + speakerID
}

// Ensure guarantees the speaker of sel has a usable voice, creating a
// clone from the selected clips when necessary. window is the decoded
// analysis-window audio the clips index into. The resulting profile is
// written back to the session.
//
// A provider rejection surfaces as *types.CloneError; the session is
// left untouched in that case.
func (m *Manager) Ensure(ctx context.Context, sess *session.Context, sel clips.Selection, window audio.Buffer) (types.SpeakerProfile, error) {
	if p, ok := sess.Profile(sel.SpeakerID); ok && p.Cloned() {
		m.metrics.RecordClone(ctx, false)
		return p, nil
	}

	name := VoiceName(sess.Show(), sel.SpeakerID)

	// A clone from an earlier run may already exist under this name.
	voices, err := m.provider.ListVoices(ctx)
	if err != nil {
		return types.SpeakerProfile{}, &types.CloneError{SpeakerID: sel.SpeakerID, VoiceName: name, Err: err}
	}
	if existing, ok := voice.FindByName(voices, name); ok {
		m.logger.Info("reusing existing voice clone",
			"speaker", sel.SpeakerID,
			"voice", name,
			"voice_id", existing.ID,
		)
		profile := types.SpeakerProfile{
			SpeakerID:   sel.SpeakerID,
			DisplayName: name,
			CloneID:     existing.ID,
		}
		sess.SetProfile(profile)
		m.metrics.RecordClone(ctx, false)
		return profile, nil
	}

	samples := make([][]byte, 0, len(sel.Clips))
	for _, c := range sel.Clips {
		cut := audio.Slice(window, c.Start, c.End)
		if cut.Empty() {
			continue
		}
		samples = append(samples, audio.EncodeWAV(cut))
	}
	if len(samples) == 0 {
		return types.SpeakerProfile{}, &types.CloneError{
			SpeakerID: sel.SpeakerID,
			VoiceName: name,
			Err:       fmt.Errorf("no audio extractable for selected clips"),
		}
	}

	m.logger.Info("creating voice clone",
		"speaker", sel.SpeakerID,
		"voice", name,
		"clips", len(samples),
		"total", sel.TotalDuration,
	)
	created, err := m.provider.Clone(ctx, voice.CloneRequest{
		Name:                  name,
		Description:           fmt.Sprintf("Cloned from %q for speaker %s", sess.Show(), sel.SpeakerID),
		Samples:               samples,
		RemoveBackgroundNoise: m.denoise,
	})
	if err != nil {
		return types.SpeakerProfile{}, &types.CloneError{SpeakerID: sel.SpeakerID, VoiceName: name, Err: err}
	}

	profile := types.SpeakerProfile{
		SpeakerID:        sel.SpeakerID,
		DisplayName:      name,
		CloneID:          created.ID,
		SelectedDuration: sel.TotalDuration,
	}
	sess.SetProfile(profile)
	m.metrics.RecordClone(ctx, true)
	return profile, nil
}
