// Package talk runs the listener's voice turns against a playing episode.
//
// # Architecture
//
// One turn is a strict stage sequence:
//
//	pause playback → capture mic → transcribe → generate reply →
//	synthesize in the host's cloned voice → play locally → resume playback
//
// The Session is a state machine over those stages. Exactly one turn may
// run at a time; a trigger while a turn is in flight is rejected with
// [ErrBusy] rather than queued, since a queued question would refer to a
// playback position that no longer exists.
//
// Playback is the invariant the machine protects: once the episode is
// paused, it is resumed exactly once per turn, on success and on every
// failure path. The only turn that ends without a resume is one whose
// pause itself failed, because then there is nothing to undo.
package talk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/observe"
	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/provider/playback"
	"github.com/podtalk/podtalk/pkg/provider/transcribe"
	"github.com/podtalk/podtalk/pkg/provider/voice"
)

// ErrBusy is returned by Trigger while another turn is in flight.
var ErrBusy = errors.New("talk: a turn is already in progress")

// ErrNoVoices is returned when no speaker has a usable clone.
var ErrNoVoices = errors.New("talk: no cloned voices available")

// resumeTimeout bounds the playback resume call on the cleanup path. It is
// independent of the turn context so a cancelled turn still resumes.
const resumeTimeout = 10 * time.Second

// ─── State ───────────────────────────────────────────────────────────────────

// State is the talk session's position in the turn sequence.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateTranscribing
	StateGenerating
	StateSynthesizing
	StatePlaying
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateTranscribing:
		return "transcribing"
	case StateGenerating:
		return "generating"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ─── Turn ────────────────────────────────────────────────────────────────────

// Turn records one completed or failed voice turn.
type Turn struct {
	// ID uniquely identifies the turn in logs.
	ID string

	// Position is the episode position when playback was paused.
	Position time.Duration

	// Speaker is the chosen responding speaker's ID, empty when the turn
	// failed before speaker selection.
	Speaker string

	// Question is the transcribed listener utterance. Empty means no
	// speech was detected and the turn ended early.
	Question string

	// Reply is the generated host reply.
	Reply string

	// StartedAt is when the trigger was accepted.
	StartedAt time.Time

	// Elapsed is the total turn duration, pause to resume.
	Elapsed time.Duration

	// Timings holds per-stage elapsed time keyed by stage name.
	Timings map[string]time.Duration
}

// ─── Session ─────────────────────────────────────────────────────────────────

// Pipeline bundles the providers one turn runs through.
type Pipeline struct {
	Playback    playback.Controller
	Recorder    audio.Recorder
	Transcriber transcribe.Provider
	Responder   *Responder
	Voice       voice.Provider
	Player      audio.Player
}

// Session drives talk turns for one listening session.
type Session struct {
	sess     *session.Context
	pipe     Pipeline
	cfg      config.TalkConfig
	strategy Strategy
	metrics  *observe.Metrics
	logger   *slog.Logger

	// mu is the single-turn guard; held for the whole of Trigger.
	mu sync.Mutex

	// stateMu guards state so State() works while mu is held.
	stateMu sync.RWMutex
	state   State
}

// Option is a functional option for New.
type Option func(*Session)

// WithStrategy overrides the speaker selection strategy.
func WithStrategy(st Strategy) Option {
	return func(s *Session) {
		s.strategy = st
	}
}

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New builds a talk Session over a listening session and its providers.
func New(sess *session.Context, pipe Pipeline, cfg config.TalkConfig, opts ...Option) *Session {
	s := &Session{
		sess:     sess,
		pipe:     pipe,
		cfg:      cfg,
		strategy: NewRandomStrategy(),
		metrics:  observe.DefaultMetrics(),
		logger:   slog.Default(),
		state:    StateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// ─── Trigger ─────────────────────────────────────────────────────────────────

// Trigger runs one full voice turn. It returns ErrBusy without side
// effects when another turn is in flight.
//
// The returned Turn is non-nil whenever playback was paused, including on
// error, so callers can inspect how far the turn got. A turn whose
// transcription came back empty ends early with a nil error and an empty
// Question.
func (s *Session) Trigger(ctx context.Context) (*Turn, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	s.metrics.ActiveTurns.Add(ctx, 1)
	defer s.metrics.ActiveTurns.Add(ctx, -1)

	turn := &Turn{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Timings:   make(map[string]time.Duration),
	}
	log := s.logger.With("turn", turn.ID)

	// ── Pause ────────────────────────────────────────────────────────────
	// Snapshot playback state first; the position anchors the reply
	// prompt's transcript context.
	status, err := s.pipe.Playback.Status(ctx)
	if err != nil {
		s.setState(StateIdle)
		return nil, fmt.Errorf("talk: query playback: %w", err)
	}
	s.sess.SetPlayback(status)
	turn.Position = status.Position

	if err := s.pipe.Playback.Pause(ctx); err != nil {
		// Nothing was paused, so nothing to resume.
		s.setState(StateIdle)
		return nil, fmt.Errorf("talk: pause playback: %w", err)
	}
	log.Info("playback paused", "position", status.Position, "track", status.TrackName)

	// From here the episode is paused and must be resumed exactly once,
	// whatever else happens. The turn context may already be cancelled by
	// the time we get here, hence WithoutCancel.
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resumeTimeout)
		defer cancel()
		if err := s.pipe.Playback.Resume(rctx, status.DeviceID); err != nil {
			log.Error("failed to resume playback", "error", err)
		} else {
			log.Info("playback resumed", "elapsed", time.Since(turn.StartedAt).Round(time.Millisecond))
		}
		turn.Elapsed = time.Since(turn.StartedAt)
		s.setState(StateIdle)
	}()

	// ── Capture ──────────────────────────────────────────────────────────
	var captured audio.Buffer
	err = s.stage(ctx, turn, StateCapturing, s.cfg.CaptureDuration.Std()+5*time.Second, func(sctx context.Context) error {
		var err error
		captured, err = s.pipe.Recorder.Record(sctx, s.cfg.CaptureDuration.Std())
		return err
	})
	if err != nil {
		return turn, s.fail(ctx, turn, StateCapturing, err)
	}

	// ── Transcribe ───────────────────────────────────────────────────────
	var question string
	err = s.stage(ctx, turn, StateTranscribing, s.cfg.TranscribeTimeout.Std(), func(sctx context.Context) error {
		var err error
		question, err = s.pipe.Transcriber.Transcribe(sctx, captured)
		return err
	})
	if err != nil {
		return turn, s.fail(ctx, turn, StateTranscribing, err)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		log.Info("no speech detected, returning to playback")
		s.metrics.RecordTurn(ctx, "empty", "", time.Since(turn.StartedAt))
		return turn, nil
	}
	turn.Question = question
	log.Info("question transcribed", "text", question)

	// ── Pick the responding speaker ──────────────────────────────────────
	speakers := s.sess.ClonedSpeakers()
	if len(speakers) == 0 {
		return turn, s.fail(ctx, turn, StateGenerating, ErrNoVoices)
	}
	speakerID, err := s.strategy.Pick(speakers)
	if err != nil {
		return turn, s.fail(ctx, turn, StateGenerating, err)
	}
	turn.Speaker = speakerID
	profile, _ := s.sess.Profile(speakerID)

	// ── Generate ─────────────────────────────────────────────────────────
	var reply string
	err = s.stage(ctx, turn, StateGenerating, s.cfg.GenerateTimeout.Std(), func(sctx context.Context) error {
		var err error
		reply, err = s.pipe.Responder.Generate(sctx, s.sess, profile, question, status.Position)
		return err
	})
	if err != nil {
		return turn, s.fail(ctx, turn, StateGenerating, err)
	}
	turn.Reply = reply
	log.Info("reply generated", "speaker", speakerID, "chars", len(reply))

	// ── Synthesize ───────────────────────────────────────────────────────
	var spoken audio.Buffer
	err = s.stage(ctx, turn, StateSynthesizing, s.cfg.SynthesizeTimeout.Std(), func(sctx context.Context) error {
		var err error
		spoken, err = s.pipe.Voice.Synthesize(sctx, profile.CloneID, reply)
		return err
	})
	if err != nil {
		return turn, s.fail(ctx, turn, StateSynthesizing, err)
	}

	// ── Play ─────────────────────────────────────────────────────────────
	err = s.stage(ctx, turn, StatePlaying, s.cfg.PlayTimeout.Std(), func(sctx context.Context) error {
		return s.pipe.Player.Play(sctx, spoken)
	})
	if err != nil {
		return turn, s.fail(ctx, turn, StatePlaying, err)
	}

	s.metrics.RecordTurn(ctx, "ok", "", time.Since(turn.StartedAt))
	return turn, nil
}

// ─── Stage plumbing ──────────────────────────────────────────────────────────

// stage runs fn under its own deadline, recording the elapsed time against
// the stage both on the turn and in metrics.
func (s *Session) stage(ctx context.Context, turn *Turn, st State, timeout time.Duration, fn func(context.Context) error) error {
	s.setState(st)
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	elapsed := time.Since(start)
	turn.Timings[st.String()] = elapsed
	s.metrics.RecordStage(ctx, st.String(), elapsed)
	return err
}

// fail marks the turn failed at the given stage. The deferred resume in
// Trigger still runs; Error is a transient state on the way back to Idle.
func (s *Session) fail(ctx context.Context, turn *Turn, st State, err error) error {
	s.setState(StateError)
	s.metrics.RecordTurn(ctx, "error", st.String(), time.Since(turn.StartedAt))
	s.logger.Error("turn failed", "turn", turn.ID, "stage", st.String(), "error", err)
	return fmt.Errorf("talk: %s: %w", st, err)
}
