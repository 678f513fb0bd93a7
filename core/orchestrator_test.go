package core

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/orbital-energy-sim/model"
)

func newTestOrchestrator(w *World, cfg *Config, rec *eventRecorder) (*Orchestrator, *Economics) {
	var notify Notifier
	if rec != nil {
		notify = rec
	}
	econ := NewEconomics(w, cfg, notify, nil, nil)
	return NewOrchestrator(w, cfg, econ, notify, nil), econ
}

func TestRoute_AutoDispatchesToNeedySatellite(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	sat := addSatellite(w, cfg.AutoNeedyThresh-5, 120)
	drone := addDrone(w, cfg, model.StatusAtEarth)

	orch, _ := newTestOrchestrator(w, cfg, rec)
	orch.Route()

	// Instant travel: dispatch, arrival, and charging start land in one pass.
	if drone.Status != model.StatusCharging {
		t.Fatalf("expected charging after dispatch+arrival, got %s", drone.Status)
	}
	if !drone.TargetsSatellite(sat.ID) {
		t.Error("drone should target the needy satellite")
	}
	if owner, _ := w.ClaimOwner(sat.ID); owner != drone.ID {
		t.Errorf("claim owner is %q, want %q", owner, drone.ID)
	}
	if rec.count("drone.auto_dispatched") != 1 {
		t.Errorf("expected one auto-dispatch event, got %d", rec.count("drone.auto_dispatched"))
	}
	if rec.count("drone.charging_start") != 1 {
		t.Errorf("expected one charging_start event, got %d", rec.count("drone.charging_start"))
	}
}

func TestRoute_ChargingConservesEnergy(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	sat := addSatellite(w, 40, 120)
	drone := addDrone(w, cfg, model.StatusCharging)
	drone.Target = model.SatelliteTarget(sat.ID)
	w.claims[sat.ID] = drone.ID

	orch, econ := newTestOrchestrator(w, cfg, rec)
	before := sat.EnergyAmount + drone.Battery
	orch.Route()

	after := sat.EnergyAmount + drone.Battery
	if math.Abs(before-after) > 1e-9 {
		t.Errorf("charge transfer must conserve energy: before=%f after=%f", before, after)
	}
	if math.Abs(sat.EnergyAmount-48) > 1e-9 {
		t.Errorf("expected satellite at 48 after one charge tick, got %f", sat.EnergyAmount)
	}

	txns := econ.RecentTransactions(1)
	if len(txns) != 1 || txns[0].Type != model.TransferCharge {
		t.Fatalf("expected one charge transaction, got %+v", txns)
	}
	if txns[0].FromEntityID != sat.ID || txns[0].ToEntityID != drone.ID {
		t.Error("transaction direction runs satellite->drone for charge transfers")
	}
	if drone.TotalSpent <= 0 || sat.TotalRevenue <= 0 {
		t.Error("market counters should move on a paid transfer")
	}
}

func TestRoute_ChargingStopsWhenPayloadEmpty(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	sat := addSatellite(w, 50, 120)
	drone := addDrone(w, cfg, model.StatusCharging)
	drone.Battery = cfg.PayloadChargeMin - 1
	drone.Target = model.SatelliteTarget(sat.ID)
	w.claims[sat.ID] = drone.ID

	orch, _ := newTestOrchestrator(w, cfg, rec)
	orch.Route()

	ev, ok := rec.last("drone.charging_complete")
	if !ok {
		t.Fatal("expected a charging_complete event")
	}
	if ev.Payload["reason"] != "empty" {
		t.Errorf("stop reason is %v, want empty", ev.Payload["reason"])
	}
	// Payload too low to charge, nothing worth harvesting: head home.
	if drone.Status != model.StatusReturning {
		t.Errorf("expected returning, got %s", drone.Status)
	}
	if owner, held := w.ClaimOwner(sat.ID); held {
		t.Errorf("claim should be released, still held by %q", owner)
	}
}

func TestRoute_ChargingStopsWhenSatelliteFull(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	sat := addSatellite(w, 0, 120)
	sat.EnergyAmount = sat.MaxEnergy - 0.1 // inside the full epsilon
	drone := addDrone(w, cfg, model.StatusCharging)
	drone.Target = model.SatelliteTarget(sat.ID)
	w.claims[sat.ID] = drone.ID

	orch, _ := newTestOrchestrator(w, cfg, rec)
	orch.Route()

	ev, ok := rec.last("drone.charging_complete")
	if !ok {
		t.Fatal("expected a charging_complete event")
	}
	if ev.Payload["reason"] != "full" {
		t.Errorf("stop reason is %v, want full", ev.Payload["reason"])
	}
	if owner, held := w.ClaimOwner(sat.ID); held {
		t.Errorf("claim should be released, still held by %q", owner)
	}
	if math.Abs(sat.EnergyAmount-(sat.MaxEnergy-0.1)) > 1e-9 {
		t.Errorf("no energy should move into a full satellite, got %f", sat.EnergyAmount)
	}
}

func TestRoute_HarvestingRespectsFloor(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	sat := addSatellite(w, 75, 120)
	drone := addDrone(w, cfg, model.StatusHarvesting)
	drone.Battery = 0
	drone.Target = model.SatelliteTarget(sat.ID)
	w.claims[sat.ID] = drone.ID

	orch, econ := newTestOrchestrator(w, cfg, rec)
	orch.Route()

	// Only the energy above the floor is available.
	if math.Abs(sat.EnergyAmount-cfg.HarvestFloor) > 1e-9 {
		t.Errorf("expected satellite drained to the floor %f, got %f", cfg.HarvestFloor, sat.EnergyAmount)
	}
	if math.Abs(drone.Battery-5) > 1e-9 {
		t.Errorf("expected drone payload 5, got %f", drone.Battery)
	}
	txns := econ.RecentTransactions(1)
	if len(txns) != 1 || txns[0].Type != model.TransferHarvest {
		t.Fatalf("expected one harvest transaction, got %+v", txns)
	}

	// The next pass finds the satellite at the floor and stops.
	orch.Route()
	ev, ok := rec.last("drone.harvesting_complete")
	if !ok {
		t.Fatal("expected a harvesting_complete event")
	}
	if ev.Payload["reason"] != "low" {
		t.Errorf("stop reason is %v, want low", ev.Payload["reason"])
	}
}

func TestRoute_EarthArrivalRefillsAndRecords(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	drone := addDrone(w, cfg, model.StatusReturning)
	drone.Battery = 20
	drone.ReserveBattery = 100
	drone.Target = model.EarthTarget()

	orch, econ := newTestOrchestrator(w, cfg, rec)
	orch.Route()

	if drone.Battery != cfg.DronePayloadMax {
		t.Errorf("payload not refilled: %f", drone.Battery)
	}
	if drone.ReserveBattery != cfg.DroneReserveMax {
		t.Errorf("reserve not refilled: %f", drone.ReserveBattery)
	}

	txns := econ.RecentTransactions(10)
	var refill *model.Transaction
	for _, txn := range txns {
		if txn.Type == model.TransferEarthRecharge {
			refill = txn
		}
	}
	if refill == nil {
		t.Fatal("expected an earth_recharge transaction")
	}
	if refill.FromEntityID != model.EarthEntityID {
		t.Errorf("earth transfer source is %q", refill.FromEntityID)
	}
	if refill.TotalCost != 0 {
		t.Errorf("earth energy must be free, cost=%f", refill.TotalCost)
	}
	if math.Abs(refill.EnergyAmount-100) > 1e-9 {
		t.Errorf("expected refill of 100, got %f", refill.EnergyAmount)
	}
	if rec.count("drone.recharged") != 1 {
		t.Errorf("expected one recharged event, got %d", rec.count("drone.recharged"))
	}
}

func TestRoute_TimeoutRecoveryTeleportsHome(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	cfg.DroneTravelInstant = false
	rec := &eventRecorder{}

	sat := addSatellite(w, 60, 120)
	sat.Position = model.Position{Lat: 40, Lon: 140}

	drone := addDrone(w, cfg, model.StatusEnroute)
	drone.Battery = 30
	drone.Target = model.SatelliteTarget(sat.ID)
	drone.ETATicks = 100
	w.claims[sat.ID] = drone.ID

	orch, _ := newTestOrchestrator(w, cfg, rec)
	for i := 0; i < cfg.DroneEnrouteMaxTicks; i++ {
		orch.Route()
	}

	if rec.count("drone.timeout_recovery") != 1 {
		t.Fatalf("expected one timeout recovery, got %d", rec.count("drone.timeout_recovery"))
	}
	if drone.Position != drone.HomeBase {
		t.Errorf("drone should be teleported home, at %+v", drone.Position)
	}
	if drone.Battery != cfg.DronePayloadMax || drone.ReserveBattery != cfg.DroneReserveMax {
		t.Error("recovery must refill both gauges")
	}
	if drone.Status != model.StatusReturning || drone.Target == nil || !drone.Target.Earth {
		t.Errorf("expected returning to Earth, got %s", drone.Status)
	}
	if _, held := w.ClaimOwner(sat.ID); held {
		t.Error("recovery must release the claim")
	}
}

func TestRoute_GaugesStayBounded(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()

	addSatellite(w, 20, 120)
	addSatellite(w, 90, 120)
	addSatellite(w, 110, 120)
	addDrone(w, cfg, model.StatusAtEarth)
	addDrone(w, cfg, model.StatusAtEarth)

	orch, _ := newTestOrchestrator(w, cfg, nil)
	for i := 0; i < 200; i++ {
		orch.Route()
		for _, s := range w.satellites {
			if s.EnergyAmount < 0 || s.EnergyAmount > s.MaxEnergy {
				t.Fatalf("tick %d: satellite energy out of bounds: %f", i, s.EnergyAmount)
			}
		}
		for _, d := range w.drones {
			if d.Battery < 0 || d.Battery > cfg.DronePayloadMax {
				t.Fatalf("tick %d: drone payload out of bounds: %f", i, d.Battery)
			}
			if d.ReserveBattery < 0 {
				t.Fatalf("tick %d: drone reserve negative: %f", i, d.ReserveBattery)
			}
		}
	}
}

func TestLaunch_UnknownSatellite(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	orch, _ := newTestOrchestrator(w, cfg, nil)

	if _, err := orch.Launch(1, "missing"); !errors.Is(err, ErrSatelliteNotFound) {
		t.Errorf("expected ErrSatelliteNotFound, got %v", err)
	}
}

func TestLaunch_ReusesParkedDronesThenProvisions(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	rec := &eventRecorder{}

	sat := addSatellite(w, 60, 120)
	parked := addDrone(w, cfg, model.StatusAtEarth)

	orch, _ := newTestOrchestrator(w, cfg, rec)
	ids, err := orch.Launch(2, sat.ID)
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 launches, got %d", len(ids))
	}
	if ids[0] != parked.ID {
		t.Error("first launch should reuse the parked drone")
	}
	if len(w.drones) != 2 {
		t.Errorf("expected one provisioned drone, world has %d", len(w.drones))
	}
	if rec.count("drone.launched") != 2 {
		t.Errorf("expected 2 launched events, got %d", rec.count("drone.launched"))
	}
	for _, id := range ids {
		if d := w.drones[id]; d.Status != model.StatusEnroute || !d.TargetsSatellite(sat.ID) {
			t.Errorf("drone %s not enroute to %s", id, sat.ID)
		}
	}
}
