package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
)

// TickMetricsRecorder receives per-tick observations for Prometheus
// gauges and counters.
type TickMetricsRecorder interface {
	ObserveTick(duration time.Duration)
	IncStageError(stage string)
	SetWorldCounts(satellites, drones, queueDepth int, totalEnergy float64)
}

// Scheduler drives the orchestration pipeline once per tick period:
// Delegator -> SatelliteTicker -> Orchestrator -> EquilibriumMonitor.
// A failure in one stage is recovered and logged at the loop boundary so
// the simulation never halts.
type Scheduler struct {
	cfg    *Config
	log    logging.Logger
	notify Notifier

	delegator *Delegator
	satTicker *SatelliteTicker
	orch      *Orchestrator
	monitor   *EquilibriumMonitor
	world     *World

	metrics TickMetricsRecorder
	tracer  trace.Tracer

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	tickNum int
}

// SchedulerOption customises Scheduler construction.
type SchedulerOption func(*Scheduler)

// WithTickMetrics attaches an optional metrics recorder.
func WithTickMetrics(m TickMetricsRecorder) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracer attaches an optional tracer producing one span per tick
// with child spans per stage.
func WithTracer(t trace.Tracer) SchedulerOption {
	return func(s *Scheduler) { s.tracer = t }
}

// NewScheduler wires the full pipeline.
func NewScheduler(
	world *World,
	cfg *Config,
	delegator *Delegator,
	satTicker *SatelliteTicker,
	orch *Orchestrator,
	monitor *EquilibriumMonitor,
	notify Notifier,
	log logging.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if notify == nil {
		notify = NoopNotifier()
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &Scheduler{
		cfg:       cfg,
		log:       log,
		notify:    notify,
		delegator: delegator,
		satTicker: satTicker,
		orch:      orch,
		monitor:   monitor,
		world:     world,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start launches the background tick loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stop, s.done)
	s.log.Info(context.Background(), "simulation scheduler started",
		logging.String("period", s.cfg.TickPeriod.String()))
}

// Stop requests shutdown and waits up to timeout for the loop to drain.
// The stop flag is only checked at iteration boundaries, so this waits
// at most one tick period plus scheduling slack. Returns false if the
// join timed out.
func (s *Scheduler) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return true
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.log.Warn(context.Background(), "scheduler stop timed out")
		return false
	}
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunTick()
		}
	}
}

// RunTick executes one full orchestration pass. Exposed so tests and
// tooling can step the simulation deterministically without the timer.
func (s *Scheduler) RunTick() {
	start := time.Now()

	ctx := context.Background()
	var tickSpan trace.Span
	if s.tracer != nil {
		ctx, tickSpan = s.tracer.Start(ctx, "tick")
	}

	s.runStage(ctx, "delegator", s.delegator.AssignPending)
	s.runStage(ctx, "satellites", s.satTicker.AdvanceTick)
	s.runStage(ctx, "orchestrator", s.orch.Route)
	s.runStage(ctx, "equilibrium", s.monitor.RecordTick)

	s.mu.Lock()
	tick := s.tickNum
	s.tickNum++
	s.mu.Unlock()

	s.notify.Notify("tick", map[string]any{
		"tick":      tick,
		"timestamp": start.Unix(),
	})

	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(start))
		stats := s.world.Stats()
		s.metrics.SetWorldCounts(stats.Satellites, stats.Drones, stats.QueueDepth, stats.TotalEnergy)
	}
	if tickSpan != nil {
		tickSpan.End()
	}
}

// runStage executes one pipeline stage, converting a panic into a log
// line and an error counter. State touched by the failed stage stays
// partially updated; the next tick proceeds regardless.
func (s *Scheduler) runStage(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "tick stage failed",
				logging.String("stage", name),
				logging.String("error", fmt.Sprint(r)))
			if s.metrics != nil {
				s.metrics.IncStageError(name)
			}
		}
	}()

	if s.tracer != nil {
		_, span := s.tracer.Start(ctx, name)
		defer span.End()
	}
	fn()
}
