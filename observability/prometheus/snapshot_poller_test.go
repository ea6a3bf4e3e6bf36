package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/hbaptiste/linker/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type engineStub struct {
	stats core.EngineStats
}

func (s engineStub) Stats() core.EngineStats { return s.stats }

type loopStub struct {
	stats core.EventLoopStats
}

func (s loopStub) Stats() core.EventLoopStats { return s.stats }

func TestSnapshotPoller_CollectsEngineAndLoopStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddEngine("engine-a", engineStub{stats: core.EngineStats{
		State:     core.StateRunning,
		Queued:    4,
		Cursor:    2,
		Completed: 1,
	}})
	poller.AddLoop("loop-a", loopStub{stats: core.EventLoopStats{
		Queued: 3,
		Closed: true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		queued := testutil.ToFloat64(poller.engineQueued.WithLabelValues("engine-a"))
		loopQueued := testutil.ToFloat64(poller.loopQueued.WithLabelValues("loop-a"))
		return queued == 4 && loopQueued == 3
	})

	if got := testutil.ToFloat64(poller.engineCursor.WithLabelValues("engine-a")); got != 2 {
		t.Fatalf("engine cursor gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.engineState.WithLabelValues("engine-a", "running")); got != 1 {
		t.Fatalf("running state gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.engineState.WithLabelValues("engine-a", "pending")); got != 0 {
		t.Fatalf("pending state gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(poller.loopClosed.WithLabelValues("loop-a")); got != 1 {
		t.Fatalf("loop closed gauge = %v, want 1", got)
	}
}

func TestSnapshotPoller_RealEngine(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	eng := core.NewEngine(core.WithName("queued"))
	eng.MustRegister(func() {}).MustRegister(func() {})
	poller.AddEngine(eng.Name(), eng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.engineQueued.WithLabelValues("queued")) == 2
	})
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
