package core

import (
	"math"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// EquilibriumSample is one rolling-window observation of aggregate
// system state.
type EquilibriumSample struct {
	Tick         int
	TotalEnergy  float64
	Capacity     float64
	Utilization  float64
	ActiveDrones int
	IdleDrones   int
}

// Recommendation is a fleet-sizing suggestion. Comparable so broadcasts
// can be edge-triggered on change.
type Recommendation struct {
	Action      string `json:"action"` // add_drones | dispatch_idle | maintain | reduce_drones
	Count       int    `json:"count,omitempty"`
	TotalNeeded int    `json:"total_needed,omitempty"`
	Reason      string `json:"reason"`
}

// EquilibriumMonitor samples aggregate energy and drone utilization
// every tick and periodically classifies the system into a fleet-size
// recommendation. A recommendation is only broadcast when it differs
// from the previously broadcast one.
type EquilibriumMonitor struct {
	world  *World
	cfg    *Config
	notify Notifier
	log    logging.Logger

	history   []EquilibriumSample
	tickCount int
	last      *Recommendation
}

// NewEquilibriumMonitor wires the monitor against the world.
func NewEquilibriumMonitor(w *World, cfg *Config, notify Notifier, log logging.Logger) *EquilibriumMonitor {
	if notify == nil {
		notify = NoopNotifier()
	}
	if log == nil {
		log = logging.Noop()
	}
	return &EquilibriumMonitor{world: w, cfg: cfg, notify: notify, log: log}
}

// RecordTick appends a sample and, every EquilibriumCheckInterval ticks,
// runs the equilibrium classification.
func (m *EquilibriumMonitor) RecordTick() {
	m.world.WithLock(func() {
		var totalEnergy, totalCapacity float64
		for _, s := range m.world.satellites {
			totalEnergy += s.EnergyAmount
			totalCapacity += s.MaxEnergy
		}

		active, idle := 0, 0
		for _, d := range m.world.drones {
			switch d.Status {
			case model.StatusCharging, model.StatusEnroute, model.StatusHarvesting:
				active++
			case model.StatusAtEarth, model.StatusStandby:
				idle++
			}
		}

		m.history = append(m.history, EquilibriumSample{
			Tick:         m.tickCount,
			TotalEnergy:  totalEnergy,
			Capacity:     totalCapacity,
			Utilization:  totalEnergy / math.Max(totalCapacity, 1),
			ActiveDrones: active,
			IdleDrones:   idle,
		})
		if len(m.history) > m.cfg.EquilibriumWindowTicks {
			m.history = m.history[len(m.history)-m.cfg.EquilibriumWindowTicks:]
		}

		m.tickCount++

		if m.tickCount%m.cfg.EquilibriumCheckInterval == 0 {
			m.checkEquilibriumLocked()
		}
	})
}

// checkEquilibriumLocked computes the energy trend over the last 10
// samples and broadcasts a recommendation if it changed.
func (m *EquilibriumMonitor) checkEquilibriumLocked() {
	if len(m.history) < 10 {
		return // need more data
	}

	recent := m.history[len(m.history)-10:]
	trend := recent[len(recent)-1].TotalEnergy - recent[0].TotalEnergy

	var avgUtil float64
	for _, r := range recent {
		avgUtil += r.Utilization
	}
	avgUtil /= float64(len(recent))

	criticalSats := 0
	for _, s := range m.world.satellites {
		if s.EnergyAmount < m.cfg.AutoNeedyThresh {
			criticalSats++
		}
	}

	total := len(m.world.drones)
	active := recent[len(recent)-1].ActiveDrones
	idle := recent[len(recent)-1].IdleDrones

	rec := m.classify(trend, avgUtil, criticalSats, total, idle)

	if m.last == nil || *m.last != rec {
		m.last = &rec
		m.notify.Notify("equilibrium.update", map[string]any{
			"tick":                m.tickCount,
			"energy_trend":        trend,
			"avg_utilization":     avgUtil,
			"critical_satellites": criticalSats,
			"active_drones":       active,
			"idle_drones":         idle,
			"total_drones":        total,
			"recommendation":      rec,
			"status":              m.status(trend, avgUtil, criticalSats),
		})
	}
}

// classify applies the ordered rule precedence: severe loss, moderate
// loss, idle-starved criticals, stable band, excess capacity, default.
func (m *EquilibriumMonitor) classify(trend, avgUtil float64, criticalSats, total, idle int) Recommendation {
	threshold := m.cfg.EquilibriumDispatchThreshold

	if trend < threshold*2 {
		return Recommendation{
			Action: "add_drones", Count: 2, TotalNeeded: total + 2,
			Reason: "severe_energy_loss",
		}
	}
	if trend < threshold {
		return Recommendation{
			Action: "add_drones", Count: 1, TotalNeeded: total + 1,
			Reason: "moderate_energy_loss",
		}
	}
	if criticalSats > 0 && idle > 0 {
		return Recommendation{Action: "dispatch_idle", Reason: "critical_satellites_with_idle_drones"}
	}
	if avgUtil >= 0.4 && avgUtil <= 0.7 && math.Abs(trend) < 5 {
		return Recommendation{Action: "maintain", Reason: "equilibrium_achieved"}
	}
	if idle > 1 && trend > 10 && avgUtil > 0.8 {
		return Recommendation{Action: "reduce_drones", Count: 1, Reason: "excess_capacity"}
	}
	return Recommendation{Action: "maintain", Reason: "monitoring"}
}

func (m *EquilibriumMonitor) status(trend, avgUtil float64, criticalSats int) string {
	switch {
	case criticalSats > 2 || trend < -10:
		return "critical"
	case criticalSats > 0 || trend < -5:
		return "warning"
	case math.Abs(trend) < 3 && avgUtil >= 0.4 && avgUtil <= 0.7:
		return "equilibrium"
	default:
		return "stable"
	}
}
