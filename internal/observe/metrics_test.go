package observe_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/podtalk/podtalk/internal/observe"
)

// newTestMetrics builds a Metrics instance over a manual reader so tests
// can collect and inspect recorded data.
func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metrics and returns them indexed by name.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordTurn(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurn(ctx, "ok", "", 3*time.Second)
	m.RecordTurn(ctx, "error", "generating", 5*time.Second)

	data := collect(t, reader)

	turns, ok := data["podtalk.turns"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("podtalk.turns has unexpected data type %T", data["podtalk.turns"].Data)
	}
	var total int64
	var errStage string
	for _, dp := range turns.DataPoints {
		total += dp.Value
		if outcome, _ := dp.Attributes.Value(attribute.Key("outcome")); outcome.AsString() == "error" {
			stage, _ := dp.Attributes.Value(attribute.Key("stage"))
			errStage = stage.AsString()
		}
	}
	if total != 2 {
		t.Errorf("total turns = %d, want 2", total)
	}
	if errStage != "generating" {
		t.Errorf("error stage attribute = %q, want generating", errStage)
	}

	hist, ok := data["podtalk.turn.duration"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("podtalk.turn.duration has unexpected data type")
	}
	if n := hist.DataPoints[0].Count; n != 2 {
		t.Errorf("turn duration samples = %d, want 2", n)
	}
}

func TestRecordStage(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.RecordStage(context.Background(), "transcribing", 800*time.Millisecond)

	data := collect(t, reader)
	hist, ok := data["podtalk.turn.stage.duration"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("stage duration has unexpected data type")
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	if stage, _ := dp.Attributes.Value(attribute.Key("stage")); stage.AsString() != "transcribing" {
		t.Errorf("stage attribute = %q", stage.AsString())
	}
	if dp.Sum < 0.79 || dp.Sum > 0.81 {
		t.Errorf("recorded %v seconds, want 0.8", dp.Sum)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordCacheLookup(ctx, false)

	data := collect(t, reader)
	sum, ok := data["podtalk.cache.lookups"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("cache lookups has unexpected data type")
	}
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		result, _ := dp.Attributes.Value(attribute.Key("result"))
		counts[result.AsString()] = dp.Value
	}
	if counts["hit"] != 1 || counts["miss"] != 2 {
		t.Errorf("lookups = %v, want hit:1 miss:2", counts)
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	t.Parallel()
	if observe.DefaultMetrics() != observe.DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
