package core

import (
	"sync/atomic"
	"time"
)

// Continuation is handed to an async step in place of its *Continuation
// parameter. The step must eventually call exactly one of Next or Fail;
// the engine does not advance until it does, and never times out.
//
// A Continuation belongs to the run that created it. Once the engine is
// reset, resolving it has no effect.
type Continuation struct {
	engine  *Engine
	step    *step
	gen     uint64
	input   any
	started time.Time
	done    atomic.Bool
}

func newContinuation(
	e *Engine, s *step, gen uint64, input any, started time.Time,
) *Continuation {
	return &Continuation{
		engine:  e,
		step:    s,
		gen:     gen,
		input:   input,
		started: started,
	}
}

// Input returns the value the previous step resolved with, or nil for the
// first step of a run
func (c *Continuation) Input() any {
	return c.input
}

// Next records value as the step's result and resumes the engine. It may
// be called from any goroutine
func (c *Continuation) Next(value any) {
	if !c.resolve() {
		return
	}
	c.engine.finishStep(c.step, c.gen, c.started, nil)
	c.engine.dispatch(func() {
		c.engine.resume(c.gen, value)
	})
}

// Fail reports the step as failed. A nil err is reported as ErrStepFailed
func (c *Continuation) Fail(err error) {
	if err == nil {
		err = ErrStepFailed
	}
	if !c.resolve() {
		return
	}
	c.engine.finishStep(c.step, c.gen, c.started, err)
	c.engine.dispatch(func() {
		c.engine.fail(c.gen, err)
	})
}

// Resolved reports whether Next or Fail has been called
func (c *Continuation) Resolved() bool {
	return c.done.Load()
}

func (c *Continuation) resolve() bool {
	if c.done.CompareAndSwap(false, true) {
		return true
	}
	c.engine.logger.Warn("continuation already resolved",
		F("engine", c.engine.name), F("step", c.step.name))
	return false
}
