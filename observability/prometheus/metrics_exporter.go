package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/hbaptiste/linker/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	stepDurationSeconds *prom.HistogramVec
	stepFailureTotal    *prom.CounterVec
	runTotal            *prom.CounterVec
	queueDepth          *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "linker"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Time from step invocation to resolution in seconds.",
		Buckets:   buckets,
	}, []string{"engine", "mode"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "step_failure_total",
		Help:      "Total number of failed steps.",
	}, []string{"engine", "reason"})
	runVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "run_total",
		Help:      "Total number of finished runs by outcome.",
	}, []string{"engine", "outcome"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of queued steps.",
	}, []string{"engine"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if runVec, err = registerCollector(reg, runVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		stepDurationSeconds: durationVec,
		stepFailureTotal:    failureVec,
		runTotal:            runVec,
		queueDepth:          queueDepthVec,
	}, nil
}

// RecordStepDuration records step resolution time.
func (m *MetricsExporter) RecordStepDuration(engineName string, mode core.StepMode, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDurationSeconds.WithLabelValues(normalizeLabel(engineName, "unknown"), mode.String()).Observe(duration.Seconds())
}

// RecordStepFailure records step failures.
func (m *MetricsExporter) RecordStepFailure(engineName string, reason string) {
	if m == nil {
		return
	}
	m.stepFailureTotal.WithLabelValues(normalizeLabel(engineName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordRunOutcome records finished runs.
func (m *MetricsExporter) RecordRunOutcome(engineName string, outcome core.RunOutcome) {
	if m == nil {
		return
	}
	m.runTotal.WithLabelValues(normalizeLabel(engineName, "unknown"), normalizeLabel(string(outcome), "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(engineName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(engineName, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
