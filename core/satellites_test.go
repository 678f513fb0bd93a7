package core

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/orbital-energy-sim/model"
)

func fixedClock(hourUTC int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 15, hourUTC, 0, 0, 0, time.UTC)
	}
}

func TestDaylightFactor_NoonPeak(t *testing.T) {
	got := daylightFactor(0, fixedClock(12)())
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected factor 1.0 at local noon, got %f", got)
	}
}

func TestDaylightFactor_NightIsZero(t *testing.T) {
	if got := daylightFactor(0, fixedClock(0)()); got != 0 {
		t.Errorf("expected factor 0 at local midnight, got %f", got)
	}
	if got := daylightFactor(0, fixedClock(19)()); got != 0 {
		t.Errorf("expected factor 0 after dusk, got %f", got)
	}
}

func TestDaylightFactor_LongitudeShiftsLocalTime(t *testing.T) {
	// 90E at 06:00 UTC is local noon.
	got := daylightFactor(90, fixedClock(6)())
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected factor 1.0 at shifted noon, got %f", got)
	}
}

func TestAdvanceTick_SolarGenerationCappedAtMax(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	sat := addSatellite(w, 119.9, 120)
	sat.SolarGenRate = 5

	st := NewSatelliteTicker(w, cfg, nil, nil).WithClock(fixedClock(12))
	st.AdvanceTick()

	if sat.EnergyAmount > sat.MaxEnergy {
		t.Errorf("energy exceeded capacity: %f > %f", sat.EnergyAmount, sat.MaxEnergy)
	}
	if sat.EnergyAmount != 120 {
		t.Errorf("expected cap at 120, got %f", sat.EnergyAmount)
	}
}

func TestAdvanceTick_TaskBurnsEnergyAndCompletes(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}
	sat := addSatellite(w, 50, 120)
	sat.SolarGenRate = 0

	sat.CurrentTasks = append(sat.CurrentTasks, &model.TaskRecord{
		TaskID:          "t1",
		RemainingEnergy: 0.05, // less than one tick's energy rate
		Progress:        0.5,
	})
	w.assigned["t1"] = sat.ID

	st := NewSatelliteTicker(w, cfg, rec, nil).WithClock(fixedClock(0))
	st.AdvanceTick()

	if len(sat.CurrentTasks) != 0 {
		t.Fatal("exhausted task should be removed")
	}
	if _, ok := w.assigned["t1"]; ok {
		t.Error("completed task must leave the assignment index")
	}
	if rec.count("task.completed") != 1 {
		t.Errorf("expected one task.completed event, got %d", rec.count("task.completed"))
	}
	if math.Abs(sat.EnergyAmount-49.95) > 1e-9 {
		t.Errorf("expected energy 49.95 after burn, got %f", sat.EnergyAmount)
	}
}

func TestAdvanceTick_StarvedTaskCrawls(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	sat := addSatellite(w, 0, 120)
	sat.SolarGenRate = 0

	task := &model.TaskRecord{TaskID: "t1", RemainingEnergy: 10}
	sat.CurrentTasks = append(sat.CurrentTasks, task)

	st := NewSatelliteTicker(w, cfg, nil, nil).WithClock(fixedClock(0))
	st.AdvanceTick()

	want := cfg.TaskProgressRate * 0.2
	if math.Abs(task.Progress-want) > 1e-9 {
		t.Errorf("starved task should crawl at 20%% efficiency: got %f, want %f", task.Progress, want)
	}
	if task.RemainingEnergy != 10 {
		t.Errorf("starved task must not consume energy, remaining=%f", task.RemainingEnergy)
	}
}

func TestAdvanceTick_ProgressMonotonic(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	sat := addSatellite(w, 100, 120)
	sat.SolarGenRate = 0

	task := &model.TaskRecord{TaskID: "t1", RemainingEnergy: 100}
	sat.CurrentTasks = append(sat.CurrentTasks, task)

	st := NewSatelliteTicker(w, cfg, nil, nil).WithClock(fixedClock(0))
	prev := 0.0
	for i := 0; i < 20; i++ {
		st.AdvanceTick()
		if task.Progress < prev {
			t.Fatalf("progress went backwards at tick %d: %f < %f", i, task.Progress, prev)
		}
		prev = task.Progress
	}
}

func TestAdvanceTick_LowEnergyAlert(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}
	sat := addSatellite(w, cfg.LowEnergyAlert-1, 120)
	sat.SolarGenRate = 0

	st := NewSatelliteTicker(w, cfg, rec, nil).WithClock(fixedClock(0))
	st.AdvanceTick()

	ev, ok := rec.last("alert.low_energy")
	if !ok {
		t.Fatal("expected a low-energy alert")
	}
	if ev.Payload["satellite_id"] != sat.ID {
		t.Errorf("alert names %v, want %s", ev.Payload["satellite_id"], sat.ID)
	}
}
