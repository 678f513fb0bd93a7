package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation and its HTTP
// surface, and provides helpers to wire them into gin and /metrics.
type SimCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	TickDuration prometheus.Histogram
	TicksTotal   prometheus.Counter
	StageErrors  *prometheus.CounterVec

	WorldSatellites prometheus.Gauge
	WorldDrones     prometheus.Gauge
	QueueDepth      prometheus.Gauge
	TotalEnergy     prometheus.Gauge

	Transfers      *prometheus.CounterVec
	TasksAssigned  prometheus.Counter
	TasksCompleted prometheus.Counter
	TradedVolume   prometheus.Counter
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"})
	requests, err := registerCounterVec(reg, requests, "http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"})
	durations, err = registerHistogramVec(reg, durations, "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall-clock duration of one full orchestration tick.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})
	tickDuration, err = registerHistogram(reg, tickDuration, "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of completed orchestration ticks.",
	})
	ticksTotal, err = registerCounter(reg, ticksTotal, "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	stageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_stage_errors_total",
		Help: "Total number of recovered panics per pipeline stage.",
	}, []string{"stage"})
	stageErrors, err = registerCounterVec(reg, stageErrors, "sim_stage_errors_total")
	if err != nil {
		return nil, err
	}

	satellites, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_satellites",
		Help: "Current number of satellites in the world.",
	}), "sim_satellites")
	if err != nil {
		return nil, err
	}
	drones, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_drones",
		Help: "Current number of drones in the world.",
	}), "sim_drones")
	if err != nil {
		return nil, err
	}
	queueDepth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_task_queue_depth",
		Help: "Current number of tasks awaiting delegation.",
	}), "sim_task_queue_depth")
	if err != nil {
		return nil, err
	}
	totalEnergy, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_total_energy",
		Help: "Sum of all satellite energy stores.",
	}), "sim_total_energy")
	if err != nil {
		return nil, err
	}

	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_energy_transfers_total",
		Help: "Total number of recorded energy transfers, labeled by type.",
	}, []string{"type"})
	transfers, err = registerCounterVec(reg, transfers, "sim_energy_transfers_total")
	if err != nil {
		return nil, err
	}

	tasksAssigned, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_tasks_assigned_total",
		Help: "Total number of tasks delegated to satellites.",
	}), "sim_tasks_assigned_total")
	if err != nil {
		return nil, err
	}
	tasksCompleted, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_tasks_completed_total",
		Help: "Total number of tasks run to completion.",
	}), "sim_tasks_completed_total")
	if err != nil {
		return nil, err
	}
	tradedVolume, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_traded_volume_total",
		Help: "Cumulative cost of all paid energy transfers.",
	}), "sim_traded_volume_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
		TickDuration:    tickDuration,
		TicksTotal:      ticksTotal,
		StageErrors:     stageErrors,
		WorldSatellites: satellites,
		WorldDrones:     drones,
		QueueDepth:      queueDepth,
		TotalEnergy:     totalEnergy,
		Transfers:       transfers,
		TasksAssigned:   tasksAssigned,
		TasksCompleted:  tasksCompleted,
		TradedVolume:    tradedVolume,
	}, nil
}

// GinMiddleware records request counts and durations per route. The gin
// route template is used as the label so path parameters do not explode
// cardinality.
func (c *SimCollector) GinMiddleware() gin.HandlerFunc {
	return func(g *gin.Context) {
		start := time.Now()
		g.Next()

		if c == nil {
			return
		}
		route := g.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(g.Request.Method, route, strconv.Itoa(g.Writer.Status())).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(g.Request.Method, route).Observe(time.Since(start).Seconds())
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick satisfies the scheduler's metrics recorder interface.
func (c *SimCollector) ObserveTick(duration time.Duration) {
	if c == nil {
		return
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(duration.Seconds())
	}
	if c.TicksTotal != nil {
		c.TicksTotal.Inc()
	}
}

// IncStageError counts one recovered failure in a pipeline stage.
func (c *SimCollector) IncStageError(stage string) {
	if c == nil || c.StageErrors == nil {
		return
	}
	c.StageErrors.WithLabelValues(stage).Inc()
}

// SetWorldCounts drives the world gauges from the scheduler's per-tick stats.
func (c *SimCollector) SetWorldCounts(satellites, drones, queueDepth int, totalEnergy float64) {
	if c == nil {
		return
	}
	if c.WorldSatellites != nil {
		c.WorldSatellites.Set(float64(satellites))
	}
	if c.WorldDrones != nil {
		c.WorldDrones.Set(float64(drones))
	}
	if c.QueueDepth != nil {
		c.QueueDepth.Set(float64(queueDepth))
	}
	if c.TotalEnergy != nil {
		c.TotalEnergy.Set(totalEnergy)
	}
}

// IncTransfer counts one completed energy transfer by type.
func (c *SimCollector) IncTransfer(transferType string) {
	if c == nil || c.Transfers == nil {
		return
	}
	c.Transfers.WithLabelValues(transferType).Inc()
}

// IncTaskAssigned counts one task delegated to a satellite.
func (c *SimCollector) IncTaskAssigned() {
	if c == nil || c.TasksAssigned == nil {
		return
	}
	c.TasksAssigned.Inc()
}

// IncTaskCompleted counts one task finished by a satellite.
func (c *SimCollector) IncTaskCompleted() {
	if c == nil || c.TasksCompleted == nil {
		return
	}
	c.TasksCompleted.Inc()
}

// AddTradedVolume accumulates the cost of a paid transfer.
func (c *SimCollector) AddTradedVolume(cost float64) {
	if c == nil || c.TradedVolume == nil || cost <= 0 {
		return
	}
	c.TradedVolume.Add(cost)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
