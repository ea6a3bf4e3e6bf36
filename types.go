package linker

import "github.com/hbaptiste/linker/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the linker package for most use cases.

// Engine runs registered steps sequentially
type Engine = core.Engine

// Continuation is the handle an async step resolves through
type Continuation = core.Continuation

// Config holds engine settings
type Config = core.Config

// Option configures an Engine
type Option = core.Option

// RunState is the lifecycle state of an Engine
type RunState = core.RunState

// StepError is the result recorded for a failed step in non-strict mode
type StepError = core.StepError

// PanicError wraps a value recovered from a panicking step
type PanicError = core.PanicError

// EventLoop runs tasks on a dedicated goroutine
type EventLoop = core.EventLoop

// Slot marks where a step's continuation goes in its bound arguments
var Slot = core.ContinuationSlot

// Run states
const (
	StatePending = core.StatePending
	StateRunning = core.StateRunning
	StateAborted = core.StateAborted
)

// Errors
var (
	ErrWrongParameterType     = core.ErrWrongParameterType
	ErrWrongParameterFormat   = core.ErrWrongParameterFormat
	ErrWrongParameterPosition = core.ErrWrongParameterPosition
	ErrEmptyQueue             = core.ErrEmptyQueue
	ErrArgumentMismatch       = core.ErrArgumentMismatch
	ErrAlreadyRunning         = core.ErrAlreadyRunning
	ErrStepFailed             = core.ErrStepFailed
)

// Options and configuration helpers
var (
	DefaultConfig       = core.DefaultConfig
	LoadConfigFile      = core.LoadConfigFile
	WithConfig          = core.WithConfig
	WithStrict          = core.WithStrict
	WithName            = core.WithName
	WithHistoryCapacity = core.WithHistoryCapacity
	WithLogger          = core.WithLogger
	WithMetrics         = core.WithMetrics
	WithDispatcher      = core.WithDispatcher
)

// NewEngine creates an engine with an empty queue
func NewEngine(opts ...Option) *Engine {
	return core.NewEngine(opts...)
}

// New creates an engine whose first step is start. A nil start gives an
// empty queue; anything else that is not a function is rejected, as is an
// invalid configuration
func New(start any, opts ...Option) (*Engine, error) {
	return core.NewEngineWithStart(start, opts...)
}

// NewEventLoop creates and starts an EventLoop
func NewEventLoop(name string) *EventLoop {
	return core.NewEventLoop(name)
}
