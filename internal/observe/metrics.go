// Package observe provides observability primitives for podtalk:
// OpenTelemetry metrics, tracing helpers, and the Prometheus scrape
// endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// Prometheus exporter bridge is available via [InitProvider] so metrics
// can be scraped from the standard /metrics endpoint. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all podtalk metrics.
const meterName = "github.com/podtalk/podtalk"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// StageDuration tracks per-stage talk-turn latency. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end talk-turn latency, pause to resume.
	TurnDuration metric.Float64Histogram

	// DiarizeDuration tracks diarization service latency.
	DiarizeDuration metric.Float64Histogram

	// Turns counts completed talk turns. Use with attributes:
	//   attribute.String("outcome", "ok"|"error"),
	//   attribute.String("stage", ...) naming the failed stage on error.
	Turns metric.Int64Counter

	// CacheLookups counts diarization cache reads. Use with attribute:
	//   attribute.String("result", "hit"|"miss")
	CacheLookups metric.Int64Counter

	// Clones counts voice clone resolutions. Use with attribute:
	//   attribute.String("source", "created"|"reused")
	Clones metric.Int64Counter

	// ActiveTurns tracks the number of talk turns currently in flight.
	// With the single-turn guard this is 0 or 1; the gauge exists to make
	// a stuck turn visible.
	ActiveTurns metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Talk
// stages span everything from sub-second playback control to minute-long
// diarization calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("podtalk.turn.stage.duration",
		metric.WithDescription("Latency of one talk-turn stage, by stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("podtalk.turn.duration",
		metric.WithDescription("End-to-end talk-turn latency, pause to resume."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DiarizeDuration, err = m.Float64Histogram("podtalk.diarize.duration",
		metric.WithDescription("Latency of diarization service calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("podtalk.turns",
		metric.WithDescription("Total talk turns by outcome and failed stage."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("podtalk.cache.lookups",
		metric.WithDescription("Diarization cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.Clones, err = m.Int64Counter("podtalk.clones",
		metric.WithDescription("Voice clone resolutions by source."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTurns, err = m.Int64UpDownCounter("podtalk.active_turns",
		metric.WithDescription("Number of talk turns currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records one stage latency sample.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordTurn records a completed turn. stage names the failed stage and is
// empty when outcome is "ok".
func (m *Metrics) RecordTurn(ctx context.Context, outcome, stage string, d time.Duration) {
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("stage", stage),
		),
	)
	m.TurnDuration.Record(ctx, d.Seconds())
}

// RecordCacheLookup records a diarization cache lookup result.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordClone records a voice clone resolution. created is false when an
// existing clone was reused.
func (m *Metrics) RecordClone(ctx context.Context, created bool) {
	source := "reused"
	if created {
		source = "created"
	}
	m.Clones.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}
