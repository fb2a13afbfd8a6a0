// Package app wires all podtalk subsystems into a running application.
//
// The App owns the full lifecycle: New creates and connects the cache,
// session, episode pipeline, and talk session from config and providers;
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithRecorder, WithPlayer, WithFeedSource, WithDecoder). When an option
// is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/podtalk/podtalk/internal/clips"
	"github.com/podtalk/podtalk/internal/clone"
	"github.com/podtalk/podtalk/internal/config"
	"github.com/podtalk/podtalk/internal/diarize"
	"github.com/podtalk/podtalk/internal/episode"
	"github.com/podtalk/podtalk/internal/health"
	"github.com/podtalk/podtalk/internal/observe"
	"github.com/podtalk/podtalk/internal/session"
	"github.com/podtalk/podtalk/internal/talk"
	"github.com/podtalk/podtalk/pkg/audio"
	"github.com/podtalk/podtalk/pkg/audio/portaudio"
	"github.com/podtalk/podtalk/pkg/feed"
	"github.com/podtalk/podtalk/pkg/kv"
	providerdiarize "github.com/podtalk/podtalk/pkg/provider/diarize"
	"github.com/podtalk/podtalk/pkg/provider/llm"
	"github.com/podtalk/podtalk/pkg/provider/playback"
	"github.com/podtalk/podtalk/pkg/provider/transcribe"
	"github.com/podtalk/podtalk/pkg/provider/voice"
)

// Providers holds one interface value per provider slot, populated by the
// CLI via the config registry.
type Providers struct {
	Diarize    providerdiarize.Provider
	Voice      voice.Provider
	Transcribe transcribe.Provider
	LLM        llm.Provider
	Playback   playback.Controller
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	store    kv.Store
	cache    *diarize.Cache
	sess     *session.Context
	pipeline *episode.Pipeline
	talk     *talk.Session

	recorder audio.Recorder
	player   audio.Player
	feeds    *feed.Source
	decode   episode.DecodeFunc
	metrics  *observe.MetricsServer

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a kv store instead of opening one from config.
func WithStore(s kv.Store) Option {
	return func(a *App) { a.store = s }
}

// WithRecorder injects a microphone recorder instead of portaudio.
func WithRecorder(r audio.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithPlayer injects an audio player instead of portaudio.
func WithPlayer(p audio.Player) Option {
	return func(a *App) { a.player = p }
}

// WithFeedSource injects an episode feed source.
func WithFeedSource(s *feed.Source) Option {
	return func(a *App) { a.feeds = s }
}

// WithDecoder injects an enclosure decoder instead of ffmpeg.
func WithDecoder(d episode.DecodeFunc) Option {
	return func(a *App) { a.decode = d }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from the CLI, populated via the config registry.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	a.initAudio()
	a.initPipeline()
	a.initTalk()
	a.initMetrics()

	return a, nil
}

// initStore opens the diarization cache store. An empty cache dir falls
// back to an in-memory store, losing results between runs.
func (a *App) initStore() error {
	if a.store == nil {
		if dir := a.cfg.Cache.Dir; dir != "" {
			store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
			if err != nil {
				return err
			}
			a.store = store
		} else {
			slog.Warn("cache.dir not set, diarization cache will not survive restarts")
			a.store = kv.NewMemory()
		}
		a.closers = append(a.closers, a.store.Close)
	}
	a.cache = diarize.NewCache(a.store, nil)
	return nil
}

// initAudio sets up microphone capture and local playback. Portaudio
// initialises itself on first device use, so headless commands like
// setup never touch the sound card; the Terminate closer is a no-op in
// that case.
func (a *App) initAudio() {
	if a.recorder != nil && a.player != nil {
		return
	}
	a.closers = append(a.closers, portaudio.Terminate)

	if a.recorder == nil {
		a.recorder = portaudio.NewRecorder(a.cfg.Talk.SampleRate)
	}
	if a.player == nil {
		a.player = portaudio.NewPlayer()
	}
}

// initPipeline wires the episode setup pipeline.
func (a *App) initPipeline() {
	a.sess = session.New()
	if a.feeds == nil {
		a.feeds = feed.NewSource()
	}

	diarizer := diarize.New(a.providers.Diarize, a.cache,
		diarize.WithNumSpeakers(a.cfg.Episode.NumSpeakers),
	)
	selector := clips.NewSelector(a.cfg.Clips)
	clones := clone.NewManager(a.providers.Voice)

	var epOpts []episode.Option
	if a.decode != nil {
		epOpts = append(epOpts, episode.WithDecoder(a.decode))
	}
	a.pipeline = episode.NewPipeline(a.feeds, diarizer, selector, clones, a.sess, a.cfg.Episode, epOpts...)
}

// initTalk wires the talk session over the prepared providers.
func (a *App) initTalk() {
	responder := talk.NewResponder(a.providers.LLM,
		talk.WithContextWindow(a.cfg.Talk.ContextWindow.Std()),
	)
	a.talk = talk.New(a.sess, talk.Pipeline{
		Playback:    a.providers.Playback,
		Recorder:    a.recorder,
		Transcriber: a.providers.Transcribe,
		Responder:   responder,
		Voice:       a.providers.Voice,
		Player:      a.player,
	}, a.cfg.Talk)
}

// initMetrics starts the Prometheus scrape endpoint when configured,
// with health probes on the same listener.
func (a *App) initMetrics() {
	addr := a.cfg.App.MetricsAddr
	if addr == "" {
		return
	}
	probes := health.New(
		health.Store(a.store),
		health.FFmpeg(),
		health.Playback(a.providers.Playback),
	)
	a.metrics = observe.NewMetricsServer(addr, probes.Register)
	a.metrics.Start()
}

// Setup prepares the configured episode: fetch, diarize, select clips,
// and clone voices. Run once before the talk loop.
func (a *App) Setup(ctx context.Context) error {
	return a.pipeline.Setup(ctx)
}

// Talk returns the talk session driving voice turns.
func (a *App) Talk() *talk.Session {
	return a.talk
}

// Session returns the listening session state.
func (a *App) Session() *session.Context {
	return a.sess
}

// Cache returns the diarization cache, used by the status command.
func (a *App) Cache() *diarize.Cache {
	return a.cache
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires, remaining closers are skipped.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		if a.metrics != nil {
			if err := a.metrics.Shutdown(ctx); err != nil {
				slog.Warn("metrics server shutdown error", "error", err)
			}
		}
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}
	})
	return shutdownErr
}
