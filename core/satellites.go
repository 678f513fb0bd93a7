package core

import (
	"math"
	"time"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// SatelliteTicker advances solar charging and in-progress task execution
// for every satellite once per tick.
type SatelliteTicker struct {
	world  *World
	cfg    *Config
	notify Notifier
	log    logging.Logger

	// now is the clock used for the daylight model; injectable so tests
	// can pin the sun.
	now func() time.Time
}

// NewSatelliteTicker wires a ticker against the world.
func NewSatelliteTicker(w *World, cfg *Config, notify Notifier, log logging.Logger) *SatelliteTicker {
	if notify == nil {
		notify = NoopNotifier()
	}
	if log == nil {
		log = logging.Noop()
	}
	return &SatelliteTicker{world: w, cfg: cfg, notify: notify, log: log, now: time.Now}
}

// WithClock overrides the wall clock, returning the ticker for chaining.
func (st *SatelliteTicker) WithClock(now func() time.Time) *SatelliteTicker {
	st.now = now
	return st
}

// daylightFactor is the toy solar model: local solar time is UTC hours
// plus lon/15, daylight runs 06:00-18:00 with a cosine ramp peaking at
// noon, and night yields zero.
func daylightFactor(lon float64, now time.Time) float64 {
	utc := now.UTC()
	h := float64(utc.Hour()) + float64(utc.Minute())/60 + float64(utc.Second())/3600
	hrs := math.Mod(h+lon/15+24, 24)
	if hrs < 6 || hrs > 18 {
		return 0
	}
	x := (hrs - 12) / 6 // -1..+1 across the day
	return math.Max(0, math.Cos(x*math.Pi/2))
}

// AdvanceTick processes solar generation, task execution, and low-energy
// alerting for all satellites under one critical section.
func (st *SatelliteTicker) AdvanceTick() {
	now := st.now()
	st.world.WithLock(func() {
		for _, s := range st.world.satellites {
			st.advanceSatelliteLocked(s, now)
		}
	})
}

func (st *SatelliteTicker) advanceSatelliteLocked(s *model.Satellite, now time.Time) {
	// Solar generation, scaled by daylight and capped at MaxEnergy.
	gen := s.SolarGenRate * daylightFactor(s.Position.Lon, now)
	if gen > 0 {
		s.EnergyAmount = math.Min(s.MaxEnergy, s.EnergyAmount+gen)
	}

	// Task execution. A starved task still crawls at reduced efficiency
	// instead of stalling outright.
	kept := s.CurrentTasks[:0]
	for _, t := range s.CurrentTasks {
		need := math.Min(st.cfg.TaskEnergyRate, t.RemainingEnergy)
		eff := 0.2
		if need > 0 && s.EnergyAmount >= need {
			s.EnergyAmount -= need
			t.RemainingEnergy -= need
			eff = 1.0
		}
		t.Progress = math.Min(1.0, t.Progress+st.cfg.TaskProgressRate*eff)

		if t.Progress >= 1.0 || t.RemainingEnergy <= 0 {
			delete(st.world.assigned, t.TaskID)
			st.notify.Notify("task.completed", map[string]any{
				"task_id":      t.TaskID,
				"satellite_id": s.ID,
			})
			continue
		}
		kept = append(kept, t)
	}
	s.CurrentTasks = kept

	if s.EnergyAmount < st.cfg.LowEnergyAlert {
		st.notify.Notify("alert.low_energy", map[string]any{
			"satellite_id": s.ID,
			"energy":       s.EnergyAmount,
		})
	}
}
