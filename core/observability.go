package core

import (
	"time"

	"github.com/google/uuid"
)

// StepExecutionRecord captures one resolved step
type StepExecutionRecord struct {
	RunID      uuid.UUID
	Index      int
	Name       string
	EngineName string
	Mode       StepMode
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Failed     bool
	Err        error
}

// EngineStats represents runtime observability state for an engine.
type EngineStats struct {
	Name      string
	RunID     uuid.UUID
	State     RunState
	Queued    int
	Cursor    int
	Completed int
	Strict    bool
	LastStep  string
	LastAt    time.Time
}

// EventLoopStats represents runtime observability state for an event loop.
type EventLoopStats struct {
	Name    string
	Queued  int
	Delayed int
	Closed  bool
}
