package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/orbital-energy-sim/model"
)

func TestTryClaim_ExclusiveAndIdempotent(t *testing.T) {
	w := NewWorld()

	if !w.TryClaim("sat-1", "drone-a") {
		t.Fatal("first claim should succeed")
	}
	if w.TryClaim("sat-1", "drone-b") {
		t.Error("second drone should not steal an existing claim")
	}
	if !w.TryClaim("sat-1", "drone-a") {
		t.Error("re-claim by the holder should be idempotent")
	}

	owner, ok := w.ClaimOwner("sat-1")
	if !ok || owner != "drone-a" {
		t.Errorf("expected drone-a to hold the claim, got %q (ok=%v)", owner, ok)
	}
}

func TestReleaseClaim_OwnerGated(t *testing.T) {
	w := NewWorld()
	w.TryClaim("sat-1", "drone-a")

	// A non-holder release must not free the claim.
	w.ReleaseClaim("sat-1", "drone-b")
	if _, ok := w.ClaimOwner("sat-1"); !ok {
		t.Fatal("release by non-holder should be a no-op")
	}

	w.ReleaseClaim("sat-1", "drone-a")
	if _, ok := w.ClaimOwner("sat-1"); ok {
		t.Error("release by holder should free the claim")
	}
	if w.TryClaim("sat-1", "drone-b") != true {
		t.Error("freed satellite should be claimable again")
	}
}

func TestSubmitTask_Validation(t *testing.T) {
	w := NewWorld()

	cases := []*model.Task{
		nil,
		model.NewTask(0, 500, model.PriorityLow),
		model.NewTask(10, -1, model.PriorityLow),
		model.NewTask(10, 500, model.Priority("urgent")),
	}
	for i, task := range cases {
		if _, err := w.SubmitTask(task); !errors.Is(err, ErrInvalidTask) {
			t.Errorf("case %d: expected ErrInvalidTask, got %v", i, err)
		}
	}
	if w.QueueLen() != 0 {
		t.Fatalf("invalid tasks must not be queued, queue=%d", w.QueueLen())
	}

	if _, err := w.SubmitTask(model.NewTask(10, 500, model.PriorityHigh)); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}
	if w.QueueLen() != 1 {
		t.Errorf("expected queue depth 1, got %d", w.QueueLen())
	}
}

func TestSnapshot_DeepCopy(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	sat := addSatellite(w, 50, 120)
	sat.CurrentTasks = append(sat.CurrentTasks, &model.TaskRecord{TaskID: "t1", RemainingEnergy: 5})
	addDrone(w, cfg, model.StatusAtEarth)
	w.EnqueueTasks(model.NewTask(10, 500, model.PriorityLow))

	snap := w.Snapshot()
	if len(snap.Satellites) != 1 || len(snap.Drones) != 1 || len(snap.Queue) != 1 {
		t.Fatalf("unexpected snapshot shape: %d sats, %d drones, %d queued",
			len(snap.Satellites), len(snap.Drones), len(snap.Queue))
	}

	// Mutating the snapshot must not leak into the world.
	snap.Satellites[0].EnergyAmount = -999
	snap.Satellites[0].CurrentTasks[0].RemainingEnergy = -999
	snap.Queue[0].EnergyNeed = -999

	if sat.EnergyAmount != 50 {
		t.Error("snapshot mutation leaked into satellite energy")
	}
	if sat.CurrentTasks[0].RemainingEnergy != 5 {
		t.Error("snapshot mutation leaked into task record")
	}
}

func TestStats_Aggregates(t *testing.T) {
	w := NewWorld()
	cfg := DefaultConfig()
	addSatellite(w, 40, 100)
	addSatellite(w, 60, 200)
	addDrone(w, cfg, model.StatusAtEarth)
	w.EnqueueTasks(model.NewTask(10, 500, model.PriorityLow))

	st := w.Stats()
	if st.Satellites != 2 || st.Drones != 1 || st.QueueDepth != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.TotalEnergy != 100 || st.TotalCapacity != 300 {
		t.Errorf("unexpected energy totals: %+v", st)
	}
}
