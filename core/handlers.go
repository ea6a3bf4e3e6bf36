package core

import (
	"errors"
	"fmt"
)

type (
	// CompleteHandler receives every result of a finished run, in
	// registration order
	CompleteHandler func(results []any)

	// ErrorHandler receives a step failure. In non-strict mode the run
	// continues after it returns, with StepError recorded as the result
	ErrorHandler func(err error)
)

// OnComplete sets the completion handler, replacing any previous one
func (e *Engine) OnComplete(cb CompleteHandler) error {
	if cb == nil {
		return fmt.Errorf("%w: OnComplete expects a function",
			ErrWrongParameterType)
	}
	e.mu.Lock()
	e.onComplete = cb
	e.mu.Unlock()
	return nil
}

// OnError sets the error handler, replacing any previous one. Without a
// handler, failures are logged; strict runs abort either way
func (e *Engine) OnError(cb ErrorHandler) error {
	if cb == nil {
		return fmt.Errorf("%w: OnError expects a function",
			ErrWrongParameterType)
	}
	e.mu.Lock()
	e.onError = cb
	e.mu.Unlock()
	return nil
}

// fail routes a step failure for run generation gen. Strict mode aborts
// the run before the handler is called; non-strict mode records a
// StepError as the step's result after it
func (e *Engine) fail(gen uint64, err error) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.logger.Warn("dropping failure of a finished run",
			F("engine", e.name), F("error", err))
		return
	}
	e.hasError = true
	handler := e.onError
	runID := e.runID
	if e.strict {
		e.resetLocked()
		e.state = StateAborted
	}
	e.mu.Unlock()

	e.metrics.RecordStepFailure(e.name, failureReason(err))
	if e.strict {
		e.metrics.RecordRunOutcome(e.name, RunOutcomeAborted)
		e.metrics.RecordQueueDepth(e.name, 0)
		e.logger.Warn("run aborted",
			F("engine", e.name),
			F("run_id", runID.String()),
			F("error", err))
	}

	if handler != nil {
		handler(err)
	} else {
		e.logger.Error("step failed",
			F("engine", e.name),
			F("run_id", runID.String()),
			F("error", err))
	}

	if !e.strict {
		e.resume(gen, StepError{Err: err})
	}
}

// HasError reports whether a step failed during the current or last run
func (e *Engine) HasError() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasError
}

func failureReason(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return "panic"
	}
	return "error"
}
