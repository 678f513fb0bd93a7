package core

import (
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

const (
	// scoreIneligible marks a satellite that cannot take the task at all.
	scoreIneligible = -1e9
	// scoreReject is the acceptance cutoff: a best score below this
	// leaves the head task queued and stops delegation for the tick.
	scoreReject = -1e8
)

// Delegator assigns queued tasks to satellites using a multi-factor
// suitability score. The queue is strictly FIFO: when the head task has
// no eligible satellite, delegation stops for the tick rather than
// skipping ahead, preserving arrival order.
type Delegator struct {
	world  *World
	cfg    *Config
	notify Notifier
}

// NewDelegator wires a delegator against the world.
func NewDelegator(w *World, cfg *Config, notify Notifier) *Delegator {
	if notify == nil {
		notify = NoopNotifier()
	}
	return &Delegator{world: w, cfg: cfg, notify: notify}
}

func (d *Delegator) score(s *model.Satellite, t *model.Task) float64 {
	if s.EnergyAmount < d.cfg.MinEnergyToAccept {
		return scoreIneligible
	}
	if len(s.CurrentTasks) >= d.cfg.MaxTasksPerSat {
		return scoreIneligible
	}
	if t.ProcessingPowerNeeded > s.ProcessingCapacity {
		return scoreIneligible
	}

	e := s.EnergyAmount / max(s.MaxEnergy, 1.0)
	spare := max(s.ProcessingCapacity-t.ProcessingPowerNeeded, 0) / max(s.ProcessingCapacity, 1.0)
	base := d.cfg.ScoreEnergyWeight*e +
		d.cfg.ScoreCapacityWeight*spare +
		d.cfg.ScorePriorityWeight*t.Priority.Weight()
	return base - float64(len(s.CurrentTasks))*d.cfg.CongestionPenalty
}

// AssignPending drains the head of the task queue while an eligible
// satellite exists, attaching each task to the highest-scoring one.
func (d *Delegator) AssignPending() {
	d.world.WithLock(func() {
		for len(d.world.queue) > 0 {
			task := d.world.queue[0]

			var best *model.Satellite
			bestScore := scoreIneligible
			for _, s := range d.world.satellites {
				if sc := d.score(s, task); sc > bestScore {
					best, bestScore = s, sc
				}
			}
			if best == nil || bestScore < scoreReject {
				// Nobody can accept the head task now; try again next tick.
				return
			}

			d.world.queue = d.world.queue[1:]
			best.CurrentTasks = append(best.CurrentTasks, &model.TaskRecord{
				TaskID:          task.ID,
				RemainingEnergy: task.EnergyNeed,
				ProcessingNeed:  task.ProcessingPowerNeeded,
				Priority:        task.Priority,
			})
			d.world.assigned[task.ID] = best.ID

			d.notify.Notify("task.assigned", map[string]any{
				"task_id":      task.ID,
				"satellite_id": best.ID,
			})
		}
	})
}
