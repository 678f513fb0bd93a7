package core

import "time"

// Config carries every tunable of the simulation. A zero Config is not
// usable; start from DefaultConfig and override fields as needed.
type Config struct {
	// Tick scheduling.
	TickPeriod time.Duration

	// Task delegation.
	MinEnergyToAccept float64
	MaxTasksPerSat    int
	TaskEnergyRate    float64
	TaskProgressRate  float64

	// Delegator scoring weights: energy level, spare capacity, priority.
	ScoreEnergyWeight   float64
	ScoreCapacityWeight float64
	ScorePriorityWeight float64
	CongestionPenalty   float64

	// Drone movement and reserve fuel.
	DroneSpeedKmPerTick       float64
	DroneReservePerKm         float64
	DroneReserveMinToContinue float64
	DroneReserveMax           float64
	DroneTravelInstant        bool
	DroneEnrouteMaxTicks      int

	// Drone payload (energy cargo).
	DronePayloadChargeRate float64
	DronePayloadMax        float64
	PayloadChargeMin       float64

	// Harvesting.
	DroneHarvestRate  float64
	HarvestFloor      float64
	HarvestStartLevel float64

	// Satellite thresholds.
	SatFullEps     float64
	LowEnergyAlert float64
	NeedyThresh    float64

	// Auto-dispatch.
	AutoDispatchEnabled bool
	AutoNeedyThresh     float64
	AutoMaxDronesPerSat int

	// Dwell limits.
	DroneMaxDwellTicks int

	// Equilibrium monitoring.
	EquilibriumCheckInterval     int
	EquilibriumWindowTicks       int
	EquilibriumDispatchThreshold float64

	// Economics.
	BaseEnergyPrice float64
	LedgerCapacity  int

	// Bounded notification history.
	EventLogCapacity int

	// Synthetic load generator defaults.
	SmokeQPS   int
	SmokeBurst int
}

// DefaultConfig returns the stock tuning of the simulation.
func DefaultConfig() *Config {
	return &Config{
		TickPeriod: 500 * time.Millisecond,

		MinEnergyToAccept: 10,
		MaxTasksPerSat:    30,
		TaskEnergyRate:    0.10,
		TaskProgressRate:  0.02,

		ScoreEnergyWeight:   0.35,
		ScoreCapacityWeight: 0.25,
		ScorePriorityWeight: 0.05,
		CongestionPenalty:   0.15,

		DroneSpeedKmPerTick:       4000.0,
		DroneReservePerKm:         0.001,
		DroneReserveMinToContinue: 10.0,
		DroneReserveMax:           3000.0,
		DroneTravelInstant:        true,
		DroneEnrouteMaxTicks:      8,

		DronePayloadChargeRate: 8.0,
		DronePayloadMax:        120.0,
		PayloadChargeMin:       15.0,

		DroneHarvestRate:  10.0,
		HarvestFloor:      70.0,
		HarvestStartLevel: 80.0,

		SatFullEps:     0.5,
		LowEnergyAlert: 10.0,
		NeedyThresh:    30.0,

		AutoDispatchEnabled: true,
		AutoNeedyThresh:     25.0,
		AutoMaxDronesPerSat: 2,

		DroneMaxDwellTicks: 60,

		EquilibriumCheckInterval:     10,
		EquilibriumWindowTicks:       50,
		EquilibriumDispatchThreshold: -5.0,

		BaseEnergyPrice: 0.05,
		LedgerCapacity:  1000,

		EventLogCapacity: 2000,

		SmokeQPS:   30,
		SmokeBurst: 10,
	}
}
