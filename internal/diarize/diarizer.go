package diarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/podtalk/podtalk/internal/observe"
	"github.com/podtalk/podtalk/pkg/provider/diarize"
	"github.com/podtalk/podtalk/pkg/types"
)

// Diarizer is the cache-through front of a diarization provider.
type Diarizer struct {
	provider    diarize.Provider
	cache       *Cache
	logger      *slog.Logger
	metrics     *observe.Metrics
	numSpeakers int
	language    string
}

// Option is a functional option for Diarizer.
type Option func(*Diarizer)

// WithNumSpeakers hints the expected speaker count.
func WithNumSpeakers(n int) Option {
	return func(d *Diarizer) {
		d.numSpeakers = n
	}
}

// WithLanguage sets a language hint passed to the provider.
func WithLanguage(lang string) Option {
	return func(d *Diarizer) {
		d.language = lang
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Diarizer) {
		d.logger = l
	}
}

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Diarizer) {
		d.metrics = m
	}
}

// New builds a Diarizer over a provider and a cache.
func New(provider diarize.Provider, cache *Cache, opts ...Option) *Diarizer {
	d := &Diarizer{
		provider: provider,
		cache:    cache,
		logger:   slog.Default(),
		metrics:  observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Analyze returns the diarization of the episode's analysis window,
// serving from cache when possible. audio is the encoded window,
// already cut to the window length.
//
// The service call is not retried; a failure surfaces to the caller
// unchanged. A cache write failure is logged and otherwise ignored since
// the result itself is still good.
func (d *Diarizer) Analyze(ctx context.Context, episodeKey string, window time.Duration, audio []byte) (types.DiarizationResult, error) {
	cached, ok := d.cache.Get(ctx, episodeKey, window)
	d.metrics.RecordCacheLookup(ctx, ok)
	if ok {
		d.logger.Info("diarization served from cache",
			"episode", episodeKey,
			"window", window,
			"segments", len(cached.Segments),
		)
		return cached, nil
	}

	d.logger.Info("diarizing analysis window",
		"episode", episodeKey,
		"window", window,
		"audio_bytes", len(audio),
	)
	start := time.Now()
	segments, err := d.provider.Diarize(ctx, diarize.Request{
		Audio:       audio,
		NumSpeakers: d.numSpeakers,
		Language:    d.language,
	})
	d.metrics.DiarizeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return types.DiarizationResult{}, fmt.Errorf("diarize %s: %w", episodeKey, err)
	}

	result := types.DiarizationResult{
		EpisodeKey: episodeKey,
		Window:     window,
		Segments:   segments,
		CreatedAt:  time.Now(),
	}
	if err := d.cache.Put(ctx, result); err != nil {
		d.logger.Warn("failed to cache diarization result", "episode", episodeKey, "error", err)
	}

	d.logger.Info("diarization complete",
		"episode", episodeKey,
		"segments", len(segments),
		"speakers", len(result.Speakers()),
		"elapsed", time.Since(start).Round(time.Second),
	)
	return result, nil
}
