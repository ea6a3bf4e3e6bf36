package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle state of an Engine
type RunState int

const (
	// StatePending: nothing is running, steps may be registered
	StatePending RunState = iota

	// StateRunning: Execute was called and the cursor is advancing
	StateRunning

	// StateAborted: a step failed in strict mode, the run was dropped
	StateAborted
)

func (s RunState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Engine runs registered steps one after another, collecting each step's
// result. Sync steps resolve when they return; async steps (functions that
// declare a *Continuation parameter) resolve when they call Next or Fail.
//
// Exactly one step is in flight at a time. The engine's mutex is never
// held while user code runs, so steps and handlers may call back into the
// engine (register more steps, Reset, Execute a new run from a handler).
type Engine struct {
	mu sync.Mutex

	name       string
	strict     bool
	logger     Logger
	metrics    Metrics
	dispatcher Dispatcher
	history    *stepLog

	queue    []*step
	cursor   int
	results  []any
	state    RunState
	started  bool
	hasError bool
	gen      uint64
	runID    uuid.UUID

	onComplete CompleteHandler
	onError    ErrorHandler

	// inflight is the continuation handed to the async step at the cursor,
	// until the engine consumes a resolution for it
	inflight *Continuation

	// driving is set while a goroutine is inside the advance loop. A
	// resolution arriving meanwhile is parked in pending* and picked up by
	// that loop instead of recursing
	driving      bool
	pending      bool
	pendingValue any
}

// NewEngine creates an Engine with an empty queue. An invalid history
// capacity is logged and replaced by the default; use NewEngineWithStart
// to get the validation error instead
func NewEngine(opts ...Option) *Engine {
	o := newOptions(opts)
	if err := o.config.Validate(); err != nil {
		o.logger.Warn("invalid engine config, using default history capacity",
			F("engine", o.config.Name), F("error", err))
		o.config.HistoryCapacity = defaultHistoryCapacity
	}
	return newEngine(o)
}

// NewEngineWithStart creates an Engine whose first step is start. A nil
// start gives an empty queue. Unlike NewEngine it rejects an invalid
// configuration
func NewEngineWithStart(start any, opts ...Option) (*Engine, error) {
	o := newOptions(opts)
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	e := newEngine(o)
	if start == nil {
		return e, nil
	}
	if err := e.Register(start); err != nil {
		return nil, err
	}
	return e, nil
}

func newEngine(o *options) *Engine {
	return &Engine{
		name:       o.config.Name,
		strict:     o.config.Strict,
		logger:     o.logger,
		metrics:    o.metrics,
		dispatcher: o.dispatcher,
		history:    newStepLog(o.config.HistoryCapacity),
	}
}

// Name returns the configured engine name
func (e *Engine) Name() string {
	return e.name
}

// Strict reports whether a failing step aborts the run
func (e *Engine) Strict() bool {
	return e.strict
}

// Register appends fn to the queue. args are bound to fn's parameters in
// order; for an async fn, ContinuationSlot marks where the continuation
// goes and may be omitted when the continuation is the last parameter
func (e *Engine) Register(fn any, args ...any) error {
	return e.RegisterNamed("", fn, args...)
}

// RegisterNamed is Register with an explicit step name for logs and history
func (e *Engine) RegisterNamed(name string, fn any, args ...any) error {
	s, err := newStep(name, fn, args)
	if err != nil {
		return err
	}

	e.mu.Lock()
	depth := e.enqueueLocked(s)
	e.mu.Unlock()

	e.registered(s, depth)
	return nil
}

// MustRegister is like Register but panics on error. It returns the engine
// so registrations can be chained
func (e *Engine) MustRegister(fn any, args ...any) *Engine {
	if err := e.Register(fn, args...); err != nil {
		panic(err)
	}
	return e
}

// Execute starts running the queue. Step failures are never returned here;
// they go to the error handler. With a dispatcher the run starts on the
// dispatcher, so Execute returns before the first step runs
func (e *Engine) Execute() error {
	return e.execute(nil)
}

// ExecuteWith registers fn as the final step, then runs the queue. Nothing
// is registered when the engine is already running
func (e *Engine) ExecuteWith(fn any, args ...any) error {
	s, err := newStep("", fn, args)
	if err != nil {
		return err
	}
	return e.execute(s)
}

func (e *Engine) execute(final *step) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	depth := len(e.queue)
	if final != nil {
		depth = e.enqueueLocked(final)
	}
	if depth == 0 {
		e.mu.Unlock()
		return ErrEmptyQueue
	}
	e.state = StateRunning
	e.started = false
	e.hasError = false
	e.runID = uuid.New()
	gen := e.gen
	runID := e.runID
	e.mu.Unlock()

	if final != nil {
		e.registered(final, depth)
	}
	e.logger.Info("run started",
		F("engine", e.name),
		F("run_id", runID.String()),
		F("steps", depth),
		F("strict", e.strict))
	e.dispatch(func() {
		e.resume(gen, nil)
	})
	return nil
}

func (e *Engine) enqueueLocked(s *step) int {
	s.index = len(e.queue)
	e.queue = append(e.queue, s)
	return len(e.queue)
}

func (e *Engine) registered(s *step, depth int) {
	e.metrics.RecordQueueDepth(e.name, depth)
	e.logger.Debug("step registered",
		F("engine", e.name),
		F("step", s.name),
		F("mode", s.Mode().String()),
		F("index", s.index))
}

// Advance resolves the outstanding continuation of the running step with
// value, as if the step had called Next. It does nothing when no async
// step is waiting, and a continuation that resolved already wins. It
// returns whether the run is still in progress afterwards
func (e *Engine) Advance(value any) bool {
	e.mu.Lock()
	c := e.inflight
	running := e.state == StateRunning
	e.mu.Unlock()

	if c == nil || !running {
		return running
	}
	c.Next(value)
	return e.State() == StateRunning
}

// Reset empties the queue and results and rewinds the cursor. Handlers
// are kept. Continuations of the dropped run become inert
func (e *Engine) Reset() {
	e.mu.Lock()
	e.resetLocked()
	e.state = StatePending
	e.mu.Unlock()

	e.metrics.RecordQueueDepth(e.name, 0)
}

// State returns the current run state
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Len returns the number of queued steps
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Results returns a copy of the results collected so far in this run
func (e *Engine) Results() []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]any(nil), e.results...)
}

// RunID returns the ID of the current or last started run
func (e *Engine) RunID() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Stats returns a snapshot of the engine state
func (e *Engine) Stats() EngineStats {
	last, _ := e.history.Last()

	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineStats{
		Name:      e.name,
		RunID:     e.runID,
		State:     e.state,
		Queued:    len(e.queue),
		Cursor:    e.cursor,
		Completed: len(e.results),
		Strict:    e.strict,
		LastStep:  last.Name,
		LastAt:    last.FinishedAt,
	}
}

// RecentSteps returns up to limit resolved steps, newest first
func (e *Engine) RecentSteps(limit int) []StepExecutionRecord {
	return e.history.Recent(limit)
}

// RunSteps returns the retained records of one run in execution order
func (e *Engine) RunSteps(runID uuid.UUID) []StepExecutionRecord {
	return e.history.ForRun(runID)
}

// resume feeds a step result into the engine for run generation gen
func (e *Engine) resume(gen uint64, value any) bool {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		e.logger.Warn("dropping result of a finished run", F("engine", e.name))
		return false
	}
	if e.driving {
		e.pending = true
		e.pendingValue = value
		e.mu.Unlock()
		return true
	}
	e.driving = true

	for {
		if e.started {
			e.results = append(e.results, value)
		} else {
			e.started = true
		}
		e.inflight = nil

		if e.state == StateAborted && e.strict {
			e.resetLocked()
			break
		}
		if e.state != StateRunning {
			break
		}

		if e.cursor == len(e.queue) {
			e.complete()
			return false
		}

		s := e.queue[e.cursor]
		e.cursor++
		gen = e.gen
		e.mu.Unlock()

		s.invoke(e, gen, value)

		e.mu.Lock()
		if !e.pending {
			break
		}
		value = e.pendingValue
		e.pending = false
		e.pendingValue = nil
	}

	running := e.state == StateRunning
	e.driving = false
	e.mu.Unlock()
	return running
}

// complete finishes the run. Called with e.mu held; returns with it
// released, after the completion handler ran
func (e *Engine) complete() {
	results := e.results
	handler := e.onComplete
	runID := e.runID
	e.resetLocked()
	e.state = StatePending
	e.driving = false
	e.mu.Unlock()

	e.metrics.RecordRunOutcome(e.name, RunOutcomeCompleted)
	e.metrics.RecordQueueDepth(e.name, 0)
	e.logger.Info("run completed",
		F("engine", e.name),
		F("run_id", runID.String()),
		F("results", len(results)))

	if handler != nil {
		handler(results)
	}
}

func (e *Engine) resetLocked() {
	e.cursor = 0
	e.queue = nil
	e.results = nil
	e.started = false
	e.pending = false
	e.pendingValue = nil
	e.inflight = nil
	e.gen++
}

// track records c as the continuation the current run is waiting on
func (e *Engine) track(c *Continuation) {
	e.mu.Lock()
	if c.gen == e.gen {
		e.inflight = c
	}
	e.mu.Unlock()
}

func (e *Engine) finishStep(s *step, gen uint64, started time.Time, err error) {
	finished := time.Now()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	runID := e.runID
	e.mu.Unlock()

	e.history.Add(StepExecutionRecord{
		RunID:      runID,
		Index:      s.index,
		Name:       s.name,
		EngineName: e.name,
		Mode:       s.Mode(),
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Failed:     err != nil,
		Err:        err,
	})
	e.metrics.RecordStepDuration(e.name, s.Mode(), finished.Sub(started))
}

func (e *Engine) dispatch(fn func()) {
	if e.dispatcher == nil {
		fn()
		return
	}
	e.dispatcher.PostTask(func(context.Context) {
		fn()
	})
}
