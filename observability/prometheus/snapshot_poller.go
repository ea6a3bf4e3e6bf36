package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/hbaptiste/linker/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// EngineSnapshotProvider provides current engine stats snapshots.
type EngineSnapshotProvider interface {
	Stats() core.EngineStats
}

// LoopSnapshotProvider provides current event loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.EventLoopStats
}

// SnapshotPoller periodically exports engine and event loop Stats()
// snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	enginesMu sync.RWMutex
	engines   map[string]EngineSnapshotProvider

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	engineQueued    *prom.GaugeVec
	engineCursor    *prom.GaugeVec
	engineCompleted *prom.GaugeVec
	engineState     *prom.GaugeVec

	loopQueued  *prom.GaugeVec
	loopDelayed *prom.GaugeVec
	loopClosed  *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var runStates = []core.RunState{
	core.StatePending, core.StateRunning, core.StateAborted,
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	engineQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "engine_queued_steps",
		Help:      "Number of queued steps per engine.",
	}, []string{"engine"})
	engineCursor := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "engine_cursor",
		Help:      "Index of the next step to run per engine.",
	}, []string{"engine"})
	engineCompleted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "engine_completed_steps",
		Help:      "Results collected in the current run per engine.",
	}, []string{"engine"})
	engineState := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "engine_state",
		Help:      "Engine run state (1 for the current state, 0 otherwise).",
	}, []string{"engine", "state"})

	loopQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "event_loop_queued",
		Help:      "Queued tasks per event loop.",
	}, []string{"loop"})
	loopDelayed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "event_loop_delayed",
		Help:      "Delayed tasks waiting for their deadline per event loop.",
	}, []string{"loop"})
	loopClosed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "linker",
		Name:      "event_loop_closed",
		Help:      "Event loop closed state (1=closed, 0=open).",
	}, []string{"loop"})

	var err error
	if engineQueued, err = registerCollector(reg, engineQueued); err != nil {
		return nil, err
	}
	if engineCursor, err = registerCollector(reg, engineCursor); err != nil {
		return nil, err
	}
	if engineCompleted, err = registerCollector(reg, engineCompleted); err != nil {
		return nil, err
	}
	if engineState, err = registerCollector(reg, engineState); err != nil {
		return nil, err
	}
	if loopQueued, err = registerCollector(reg, loopQueued); err != nil {
		return nil, err
	}
	if loopDelayed, err = registerCollector(reg, loopDelayed); err != nil {
		return nil, err
	}
	if loopClosed, err = registerCollector(reg, loopClosed); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:        interval,
		engines:         make(map[string]EngineSnapshotProvider),
		loops:           make(map[string]LoopSnapshotProvider),
		engineQueued:    engineQueued,
		engineCursor:    engineCursor,
		engineCompleted: engineCompleted,
		engineState:     engineState,
		loopQueued:      loopQueued,
		loopDelayed:     loopDelayed,
		loopClosed:      loopClosed,
	}, nil
}

// AddEngine adds or replaces an engine snapshot provider by name.
func (p *SnapshotPoller) AddEngine(name string, provider EngineSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "engine")
	p.enginesMu.Lock()
	p.engines[name] = provider
	p.enginesMu.Unlock()
}

// AddLoop adds or replaces an event loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.enginesMu.RLock()
	for name, provider := range p.engines {
		stats := provider.Stats()
		p.engineQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.engineCursor.WithLabelValues(name).Set(float64(stats.Cursor))
		p.engineCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		for _, s := range runStates {
			v := 0.0
			if stats.State == s {
				v = 1
			}
			p.engineState.WithLabelValues(name, s.String()).Set(v)
		}
	}
	p.enginesMu.RUnlock()

	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.loopDelayed.WithLabelValues(name).Set(float64(stats.Delayed))
		if stats.Closed {
			p.loopClosed.WithLabelValues(name).Set(1)
		} else {
			p.loopClosed.WithLabelValues(name).Set(0)
		}
	}
	p.loopsMu.RUnlock()
}
