package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const eventLoopQueueSize = 1024

// EventLoop runs tasks one at a time on a dedicated goroutine. Used as an
// engine Dispatcher, it makes every continuation resume the engine on the
// same goroutine, and PostDelayedTask stands in for timer-driven async
// work in steps.
type EventLoop struct {
	workQueue chan Task
	delayed   *delayQueue

	// Lifecycle control
	ctx    context.Context
	cancel context.CancelFunc

	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool

	name   string
	logger Logger
	mu     sync.Mutex
}

// NewEventLoop creates and starts an EventLoop
func NewEventLoop(name string) *EventLoop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &EventLoop{
		workQueue: make(chan Task, eventLoopQueueSize),
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
		name:      name,
		logger:    NewNoOpLogger(),
	}

	l.delayed = newDelayQueue(l)

	go l.runLoop()

	return l
}

// Name returns the name of the event loop
func (l *EventLoop) Name() string {
	return l.name
}

// SetLogger sets the logger used to report task panics
func (l *EventLoop) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

func (l *EventLoop) getLogger() Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger
}

// PostTask queues task. Tasks posted after Stop are dropped
func (l *EventLoop) PostTask(task Task) {
	if l.closed.Load() {
		return
	}

	select {
	case <-l.ctx.Done():
		return
	case l.workQueue <- task:
	}
}

// PostDelayedTask queues task once delay has elapsed. Delayed tasks still
// waiting when the loop stops never run
func (l *EventLoop) PostDelayedTask(task Task, delay time.Duration) {
	if l.closed.Load() {
		return
	}
	l.delayed.add(task, delay)
}

// Stop stops the loop once the current task returns. Queued tasks are
// discarded
func (l *EventLoop) Stop() {
	l.once.Do(func() {
		l.closed.Store(true)
		l.delayed.stop()
		l.cancel()
		<-l.stopped
	})
}

// IsClosed returns true if the loop has been stopped
func (l *EventLoop) IsClosed() bool {
	return l.closed.Load()
}

// WaitIdle blocks until every task queued before the call has run
func (l *EventLoop) WaitIdle(ctx context.Context) error {
	if l.IsClosed() {
		return fmt.Errorf("event loop is closed")
	}

	done := make(chan struct{})
	l.PostTask(func(context.Context) {
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the loop state
func (l *EventLoop) Stats() EventLoopStats {
	return EventLoopStats{
		Name:    l.name,
		Queued:  len(l.workQueue),
		Delayed: l.delayed.len(),
		Closed:  l.closed.Load(),
	}
}

func (l *EventLoop) runLoop() {
	defer close(l.stopped)

	runCtx := context.WithValue(l.ctx, taskRunnerKey, TaskRunner(l))

	for {
		select {
		case task := <-l.workQueue:
			l.runTask(runCtx, task)
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *EventLoop) runTask(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			l.getLogger().Error("event loop task panicked",
				F("loop", l.name), F("panic", rec))
		}
	}()
	task(ctx)
}
