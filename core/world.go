package core

import (
	"errors"
	"sync"

	"github.com/signalsfoundry/orbital-energy-sim/model"
)

var (
	// ErrSatelliteNotFound indicates a lookup against an unknown satellite.
	ErrSatelliteNotFound = errors.New("satellite not found")
	// ErrInvalidTask indicates a task submission that failed validation.
	ErrInvalidTask = errors.New("invalid task")
)

// World is the single source of truth for the simulation: satellites,
// drones, the FIFO task queue, the task-assignment index, and the
// per-satellite exclusive-claim table.
//
// All state is guarded by one mutex. Components that run inside the tick
// loop call WithLock once per stage and use the unexported *Locked
// helpers; the exported methods take the lock themselves and serve
// API-triggered operations. The world is never observed or mutated
// outside the lock.
type World struct {
	mu sync.Mutex

	satellites map[string]*model.Satellite
	drones     map[string]*model.Drone
	queue      []*model.Task
	assigned   map[string]string // task ID -> satellite ID
	claims     map[string]string // satellite ID -> drone ID
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		satellites: make(map[string]*model.Satellite),
		drones:     make(map[string]*model.Drone),
		assigned:   make(map[string]string),
		claims:     make(map[string]string),
	}
}

// WithLock runs fn while holding the world lock. fn must not call any
// exported World method that also takes the lock.
func (w *World) WithLock(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// Seed atomically replaces the whole world content. Used at bootstrap
// before the tick loop starts.
func (w *World) Seed(sats []*model.Satellite, drones []*model.Drone) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.satellites = make(map[string]*model.Satellite, len(sats))
	w.drones = make(map[string]*model.Drone, len(drones))
	w.queue = nil
	w.assigned = make(map[string]string)
	w.claims = make(map[string]string)

	for _, s := range sats {
		w.satellites[s.ID] = s
	}
	for _, d := range drones {
		w.drones[d.ID] = d
	}
}

// SubmitTask validates and enqueues a task, returning the stored task.
func (w *World) SubmitTask(t *model.Task) (*model.Task, error) {
	if t == nil || t.EnergyNeed <= 0 || t.ProcessingPowerNeeded <= 0 || !t.Priority.Valid() {
		return nil, ErrInvalidTask
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, t)
	return t, nil
}

// EnqueueTasks appends a batch of pre-built tasks (load generator path).
func (w *World) EnqueueTasks(tasks ...*model.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, tasks...)
}

// QueueLen returns the current task queue depth.
func (w *World) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// Satellite returns the satellite with the given ID, or nil.
func (w *World) Satellite(id string) *model.Satellite {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.satellites[id]
}

// Drone returns the drone with the given ID, or nil.
func (w *World) Drone(id string) *model.Drone {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drones[id]
}

// TryClaim attempts to acquire the exclusive claim on a satellite for a
// drone. It succeeds when the satellite is unclaimed or already claimed
// by the same drone (idempotent re-claim).
func (w *World) TryClaim(satID, droneID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tryClaimLocked(satID, droneID)
}

// ReleaseClaim releases a claim; it is a no-op unless droneID is the
// current claimant.
func (w *World) ReleaseClaim(satID, droneID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaseClaimLocked(satID, droneID)
}

// ClaimOwner returns the drone currently holding the claim on a
// satellite, if any.
func (w *World) ClaimOwner(satID string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	owner, ok := w.claims[satID]
	return owner, ok
}

func (w *World) tryClaimLocked(satID, droneID string) bool {
	owner, ok := w.claims[satID]
	if !ok || owner == droneID {
		w.claims[satID] = droneID
		return true
	}
	return false
}

func (w *World) releaseClaimLocked(satID, droneID string) {
	if w.claims[satID] == droneID {
		delete(w.claims, satID)
	}
}

// WorldStats is a cheap aggregate view used by the metrics recorder.
type WorldStats struct {
	Satellites    int
	Drones        int
	QueueDepth    int
	TotalEnergy   float64
	TotalCapacity float64
}

// Stats returns entity counts and aggregate energy totals.
func (w *World) Stats() WorldStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := WorldStats{
		Satellites: len(w.satellites),
		Drones:     len(w.drones),
		QueueDepth: len(w.queue),
	}
	for _, s := range w.satellites {
		st.TotalEnergy += s.EnergyAmount
		st.TotalCapacity += s.MaxEnergy
	}
	return st
}

// Snapshot captures a deep, consistent copy of the whole world for
// external consumers. JSON field names match the wire format of the
// /api/state endpoint.
type Snapshot struct {
	Satellites []*model.Satellite `json:"satellites"`
	Drones     []*model.Drone     `json:"batteries"`
	Queue      []*model.Task      `json:"queue"`
	Assigned   map[string]string  `json:"assigned"`
}

// Snapshot returns a deep copy of all world state, taken atomically.
func (w *World) Snapshot() *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := &Snapshot{
		Satellites: make([]*model.Satellite, 0, len(w.satellites)),
		Drones:     make([]*model.Drone, 0, len(w.drones)),
		Queue:      make([]*model.Task, 0, len(w.queue)),
		Assigned:   make(map[string]string, len(w.assigned)),
	}
	for _, s := range w.satellites {
		snap.Satellites = append(snap.Satellites, s.Clone())
	}
	for _, d := range w.drones {
		snap.Drones = append(snap.Drones, d.Clone())
	}
	for _, t := range w.queue {
		tc := *t
		snap.Queue = append(snap.Queue, &tc)
	}
	for k, v := range w.assigned {
		snap.Assigned[k] = v
	}
	return snap
}
