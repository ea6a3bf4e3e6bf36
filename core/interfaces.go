package core

import "time"

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// RunOutcome is how a run ended
type RunOutcome string

const (
	RunOutcomeCompleted RunOutcome = "completed"
	RunOutcomeAborted   RunOutcome = "aborted"
)

// Metrics defines the interface for collecting engine metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; they may be called while the
// engine holds no lock but from any goroutine that resolves a step.
type Metrics interface {
	// RecordStepDuration records how long a step took, from invocation to
	// resolution (for async steps, until Next or Fail was called).
	//
	// Parameters:
	// - engineName: The name of the engine
	// - mode: Whether the step was sync or async
	// - duration: Time until the step resolved
	RecordStepDuration(engineName string, mode StepMode, duration time.Duration)

	// RecordStepFailure records a failed step.
	//
	// Parameters:
	// - engineName: The name of the engine
	// - reason: "panic" for recovered panics, "error" otherwise
	RecordStepFailure(engineName string, reason string)

	// RecordRunOutcome records how a run ended.
	RecordRunOutcome(engineName string, outcome RunOutcome)

	// RecordQueueDepth records the number of queued steps.
	RecordQueueDepth(engineName string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordStepDuration is a no-op.
func (m *NilMetrics) RecordStepDuration(engineName string, mode StepMode, duration time.Duration) {
}

// RecordStepFailure is a no-op.
func (m *NilMetrics) RecordStepFailure(engineName string, reason string) {
}

// RecordRunOutcome is a no-op.
func (m *NilMetrics) RecordRunOutcome(engineName string, outcome RunOutcome) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(engineName string, depth int) {
}
