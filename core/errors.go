package core

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongParameterType is returned when a function was expected but
	// something else was supplied
	ErrWrongParameterType = errors.New("wrong parameter type")

	// ErrWrongParameterFormat is returned when a function declares more
	// than one continuation parameter
	ErrWrongParameterFormat = errors.New(
		"continuation parameter declared more than once",
	)

	// ErrWrongParameterPosition is returned when the continuation slot in
	// the bound arguments does not match the declared parameter position
	ErrWrongParameterPosition = errors.New(
		"continuation slot does not match the function definition",
	)

	// ErrEmptyQueue is returned by Execute when no step was registered
	ErrEmptyQueue = errors.New("empty queue: a function must be provided")

	// ErrArgumentMismatch is returned when bound arguments cannot be
	// passed to the registered function
	ErrArgumentMismatch = errors.New("bound arguments do not match")

	// ErrAlreadyRunning is returned by Execute while a run is in progress
	ErrAlreadyRunning = errors.New("engine is already running")

	// ErrStepFailed is reported when a continuation fails without a cause
	ErrStepFailed = errors.New("step failed")

	ErrInvalidHistoryCapacity = errors.New(
		"history capacity cannot be negative",
	)
)

// StepError is the result recorded for a failed step when the engine
// runs in non-strict mode. It takes the failed step's slot in the
// results handed to the completion handler
type StepError struct {
	Err error
}

func (e StepError) Error() string {
	if e.Err == nil {
		return ErrStepFailed.Error()
	}
	return e.Err.Error()
}

func (e StepError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking step
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
