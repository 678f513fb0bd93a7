package model

import "time"

// Priority is a task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weight maps a priority to the delegator's scoring weight:
// low=0, medium=0.5, high=1.0. Unknown priorities score as low.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityMedium:
		return 0.5
	case PriorityHigh:
		return 1.0
	default:
		return 0.0
	}
}

// Valid reports whether p is one of the three known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a queued unit of computational work. Tasks live in the world's
// FIFO queue until the delegator attaches them to a satellite, at which
// point they become TaskRecords on that satellite.
type Task struct {
	ID                    string    `json:"task_id"`
	EnergyNeed            float64   `json:"energy_need"`
	ProcessingPowerNeeded float64   `json:"processing_power_needed"`
	Priority              Priority  `json:"priority"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewTask constructs a task with a fresh ID and creation timestamp.
func NewTask(energyNeed, processingNeed float64, priority Priority) *Task {
	return &Task{
		ID:                    NewID("task"),
		EnergyNeed:            energyNeed,
		ProcessingPowerNeeded: processingNeed,
		Priority:              priority,
		CreatedAt:             time.Now(),
	}
}

// TaskRecord is an in-progress task attached to a satellite.
type TaskRecord struct {
	TaskID          string   `json:"task_id"`
	RemainingEnergy float64  `json:"remaining_energy"`
	Progress        float64  `json:"progress"` // 0..1
	ProcessingNeed  float64  `json:"pp_need"`
	Priority        Priority `json:"priority"`
}
