package core

import (
	"testing"
	"time"
)

func TestLoadGenerator_ProducesTasks(t *testing.T) {
	w := NewWorld()
	g := NewLoadGenerator(w, nil)

	g.Start(200, 3)
	defer g.Stop()

	deadline := time.After(2 * time.Second)
	for w.QueueLen() == 0 {
		select {
		case <-deadline:
			t.Fatal("no tasks produced within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !g.Running() {
		t.Error("generator should report running")
	}
}

func TestLoadGenerator_StopIsIdempotent(t *testing.T) {
	w := NewWorld()
	g := NewLoadGenerator(w, nil)

	g.Stop() // never started

	g.Start(100, 1)
	g.Start(100, 1) // double start is a no-op
	g.Stop()
	g.Stop()

	if g.Running() {
		t.Error("generator should be stopped")
	}

	depth := w.QueueLen()
	time.Sleep(30 * time.Millisecond)
	if w.QueueLen() != depth {
		t.Error("stopped generator must not produce tasks")
	}
}

func TestLoadGenerator_TasksAreValid(t *testing.T) {
	w := NewWorld()
	g := NewLoadGenerator(w, nil)

	g.Start(500, 5)
	time.Sleep(50 * time.Millisecond)
	g.Stop()

	w.WithLock(func() {
		for _, task := range w.queue {
			if task.EnergyNeed < 5 || task.EnergyNeed > 15 {
				t.Errorf("energy need out of range: %f", task.EnergyNeed)
			}
			if task.ProcessingPowerNeeded < 500 || task.ProcessingPowerNeeded > 2000 {
				t.Errorf("processing need out of range: %f", task.ProcessingPowerNeeded)
			}
			if !task.Priority.Valid() {
				t.Errorf("invalid priority: %q", task.Priority)
			}
		}
	})
}
