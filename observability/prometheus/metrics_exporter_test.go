package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/hbaptiste/linker/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("linker", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordStepDuration("engine-a", core.StepModeAsync, 250*time.Millisecond)
	exporter.RecordStepFailure("engine-a", "panic")
	exporter.RecordQueueDepth("engine-a", 7)
	exporter.RecordRunOutcome("engine-a", core.RunOutcomeAborted)

	failures := testutil.ToFloat64(exporter.stepFailureTotal.WithLabelValues("engine-a", "panic"))
	if failures != 1 {
		t.Fatalf("failure total = %v, want 1", failures)
	}

	queueDepth := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("engine-a"))
	if queueDepth != 7 {
		t.Fatalf("queue depth = %v, want 7", queueDepth)
	}

	aborted := testutil.ToFloat64(exporter.runTotal.WithLabelValues("engine-a", "aborted"))
	if aborted != 1 {
		t.Fatalf("aborted runs = %v, want 1", aborted)
	}

	histCount, err := histogramSampleCount(exporter.stepDurationSeconds.WithLabelValues("engine-a", "async"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("linker", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("linker", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordStepFailure("engine-a", "error")
	second.RecordStepFailure("engine-a", "error")

	got := testutil.ToFloat64(first.stepFailureTotal.WithLabelValues("engine-a", "error"))
	if got != 2 {
		t.Fatalf("shared failure counter = %v, want 2", got)
	}
}

// TestMetricsExporter_WiredToEngine verifies the exporter as an engine sink
// Given: A strict engine reporting to the exporter
// When: A run completes, then a second run fails on its second step
// Then: Both run outcomes, the failure and the sync step durations are counted
func TestMetricsExporter_WiredToEngine(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	eng := core.NewEngine(core.WithName("orders"), core.WithMetrics(exporter))
	eng.MustRegister(func() int { return 1 }).MustRegister(func() int { return 2 })
	if err := eng.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	eng.MustRegister(func() int { return 1 }).
		MustRegister(func() error { return errors.New("boom") }).
		MustRegister(func() int { return 3 })
	if err := eng.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := testutil.ToFloat64(exporter.runTotal.WithLabelValues("orders", "completed")); got != 1 {
		t.Fatalf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.runTotal.WithLabelValues("orders", "aborted")); got != 1 {
		t.Fatalf("aborted runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.stepFailureTotal.WithLabelValues("orders", "error")); got != 1 {
		t.Fatalf("step failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("orders")); got != 0 {
		t.Fatalf("queue depth = %v, want 0", got)
	}

	histCount, err := histogramSampleCount(exporter.stepDurationSeconds.WithLabelValues("orders", "sync"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 4 {
		t.Fatalf("sync duration samples = %d, want 4", histCount)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
