package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// LoadGenerator feeds synthetic compute tasks into the world queue at a
// target rate, emulating customer demand against the constellation.
type LoadGenerator struct {
	world *World
	log   logging.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewLoadGenerator wires a generator against the world.
func NewLoadGenerator(w *World, log logging.Logger) *LoadGenerator {
	if log == nil {
		log = logging.Noop()
	}
	return &LoadGenerator{world: w, log: log}
}

// Start begins producing tasks: every 1/qps seconds it enqueues between
// 1 and burst tasks with randomised energy, processing demand, and
// priority. Calling Start on a running generator is a no-op.
func (g *LoadGenerator) Start(qps float64, burst int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	if qps <= 0 {
		qps = 1
	}
	if burst < 1 {
		burst = 1
	}
	g.running = true
	g.stop = make(chan struct{})
	g.done = make(chan struct{})

	go g.loop(time.Duration(float64(time.Second)/qps), burst, g.stop, g.done)
	g.log.Info(context.Background(), "load generator started",
		logging.Float64("qps", qps), logging.Int("burst", burst))
}

// Stop halts task production. Safe to call when not running.
func (g *LoadGenerator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	g.running = false
	close(g.stop)
	<-g.done
	g.log.Info(context.Background(), "load generator stopped")
}

// Running reports whether the generator is currently producing tasks.
func (g *LoadGenerator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *LoadGenerator) loop(period time.Duration, burst int, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	priorities := []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n := 1 + rand.Intn(burst)
			batch := make([]*model.Task, 0, n)
			for i := 0; i < n; i++ {
				batch = append(batch, model.NewTask(
					5+rand.Float64()*10,
					500+rand.Float64()*1500,
					priorities[rand.Intn(len(priorities))],
				))
			}
			g.world.EnqueueTasks(batch...)
		}
	}
}
