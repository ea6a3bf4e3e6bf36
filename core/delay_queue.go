package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// delayedTask is a task waiting for its deadline
type delayedTask struct {
	runAt time.Time
	task  Task
	index int
}

type delayHeap []*delayedTask

func (h delayHeap) Len() int           { return len(h) }
func (h delayHeap) Less(i, j int) bool { return h[i].runAt.Before(h[j].runAt) }
func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	item := x.(*delayedTask)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// delayQueue holds delayed tasks on one timer and hands them to target
// once due. Tasks still waiting at stop are dropped
type delayQueue struct {
	pq     delayHeap
	mu     sync.Mutex
	wakeup chan struct{}
	target Dispatcher
	ctx    context.Context
	cancel context.CancelFunc
}

func newDelayQueue(target Dispatcher) *delayQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &delayQueue{
		wakeup: make(chan struct{}, 1),
		target: target,
		ctx:    ctx,
		cancel: cancel,
	}
	go q.loop()
	return q
}

func (q *delayQueue) add(task Task, delay time.Duration) {
	q.mu.Lock()
	item := &delayedTask{runAt: time.Now().Add(delay), task: task}
	heap.Push(&q.pq, item)
	first := item.index == 0
	q.mu.Unlock()

	if first {
		select {
		case q.wakeup <- struct{}{}:
		default:
		}
	}
}

func (q *delayQueue) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		wait, ok := q.nextWait()
		if !ok {
			wait = 1000 * time.Hour
		}
		timer.Reset(wait)

		select {
		case <-q.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			q.flush()
		case <-q.wakeup:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// nextWait returns how long until the earliest task is due
func (q *delayQueue) nextWait() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pq) == 0 {
		return 0, false
	}
	return max(time.Until(q.pq[0].runAt), 0), true
}

func (q *delayQueue) flush() {
	q.mu.Lock()
	now := time.Now()
	var due []*delayedTask
	for len(q.pq) > 0 && !q.pq[0].runAt.After(now) {
		due = append(due, heap.Pop(&q.pq).(*delayedTask))
	}
	q.mu.Unlock()

	for _, item := range due {
		q.target.PostTask(item.task)
	}
}

func (q *delayQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pq)
}

func (q *delayQueue) stop() {
	q.cancel()

	q.mu.Lock()
	q.pq = nil
	q.mu.Unlock()
}
