package core

import (
	"context"
	"time"
)

// Task is the unit of work (Closure)
type Task func(ctx context.Context)

// Dispatcher accepts tasks for later, sequential execution
type Dispatcher interface {
	PostTask(task Task)
}

// TaskRunner is a Dispatcher that can also delay tasks
type TaskRunner interface {
	Dispatcher
	PostDelayedTask(task Task, delay time.Duration)
}

// =============================================================================
// Context Helper
// =============================================================================
type taskRunnerKeyType struct{}

var taskRunnerKey taskRunnerKeyType

// GetCurrentTaskRunner returns the runner executing the task owning ctx
func GetCurrentTaskRunner(ctx context.Context) TaskRunner {
	if v := ctx.Value(taskRunnerKey); v != nil {
		return v.(TaskRunner)
	}
	return nil
}
