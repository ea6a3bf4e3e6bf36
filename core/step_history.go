package core

import (
	"sync"

	"github.com/google/uuid"
)

const defaultHistoryCapacity = 100

// stepLog keeps the most recent step records across runs, oldest first.
// When full, the oldest record is dropped
type stepLog struct {
	mu       sync.Mutex
	capacity int
	records  []StepExecutionRecord
}

func newStepLog(capacity int) *stepLog {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return &stepLog{
		capacity: capacity,
		records:  make([]StepExecutionRecord, 0, capacity),
	}
}

func (l *stepLog) Add(record StepExecutionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) == l.capacity {
		copy(l.records, l.records[1:])
		l.records = l.records[:len(l.records)-1]
	}
	l.records = append(l.records, record)
}

// Recent returns up to limit records, newest first. limit <= 0 means all
func (l *stepLog) Recent(limit int) []StepExecutionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.records)
	if n == 0 {
		return nil
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]StepExecutionRecord, limit)
	for i := range out {
		out[i] = l.records[n-1-i]
	}
	return out
}

// ForRun returns the retained records of one run in execution order
func (l *stepLog) ForRun(runID uuid.UUID) []StepExecutionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []StepExecutionRecord
	for _, r := range l.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out
}

func (l *stepLog) Last() (StepExecutionRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) == 0 {
		return StepExecutionRecord{}, false
	}
	return l.records[len(l.records)-1], true
}
