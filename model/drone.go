package model

import "math/rand"

// DroneStatus describes what a drone is currently doing.
type DroneStatus string

const (
	StatusStandby      DroneStatus = "standby"
	StatusAtEarth      DroneStatus = "at_earth"
	StatusEnroute      DroneStatus = "enroute"
	StatusCharging     DroneStatus = "charging"
	StatusHarvesting   DroneStatus = "harvesting"
	StatusReturning    DroneStatus = "returning"
	StatusOutOfService DroneStatus = "out_of_service"
)

// Target is where a drone is headed or parked: either a satellite or the
// Earth marker. A nil *Target means the drone has no destination.
type Target struct {
	SatelliteID string `json:"satellite_id,omitempty"`
	Earth       bool   `json:"earth,omitempty"`
}

// EarthTarget returns the Earth destination marker.
func EarthTarget() *Target { return &Target{Earth: true} }

// SatelliteTarget returns a destination marker for the given satellite.
func SatelliteTarget(id string) *Target { return &Target{SatelliteID: id} }

var droneCompanies = []string{
	"DroneFleet Co", "PowerShuttle Ltd", "Orbital Logistics", "Battery Express",
}

// Drone is a mobile energy carrier with two gauges: ReserveBattery fuels
// propulsion and is spent per kilometre, Battery is the energy payload
// ferried between Earth and satellites.
type Drone struct {
	ID string `json:"battery_id"`

	ReserveBattery float64 `json:"reserve_battery"`
	Battery        float64 `json:"battery"`

	Position       Position `json:"position"`
	HomeBase       Position `json:"home_base"`
	SpeedKmPerTick float64  `json:"speed_km_per_tick"`

	Status DroneStatus `json:"status"`
	Target *Target     `json:"target,omitempty"`

	// ETATicks counts down remaining travel ticks in multi-tick travel
	// mode. EnrouteTicks counts up while traveling and triggers timeout
	// recovery once it reaches the configured enroute limit.
	ETATicks     int `json:"eta_ticks"`
	EnrouteTicks int `json:"enroute_ticks"`

	// DwellTicks counts consecutive ticks spent charging or harvesting at
	// the current satellite. Reset on every mission change.
	DwellTicks int `json:"dwell_ticks"`

	// Market identity and running financial counters.
	OwnerWallet       string  `json:"owner_wallet"`
	CompanyName       string  `json:"company_name"`
	TotalSpent        float64 `json:"total_spent"`
	TotalEnergyBought float64 `json:"total_energy_bought"`
}

// NewDrone constructs a standby drone at the origin home base.
func NewDrone(reserve, payload, speedKmPerTick float64) *Drone {
	return &Drone{
		ID:             NewID("bat"),
		ReserveBattery: reserve,
		Battery:        payload,
		SpeedKmPerTick: speedKmPerTick,
		Status:         StatusStandby,
		Position:       Position{},
		HomeBase:       Position{},
		OwnerWallet:    NewWalletID(),
		CompanyName:    droneCompanies[rand.Intn(len(droneCompanies))],
	}
}

// TargetsSatellite reports whether the drone's target is the given satellite.
func (d *Drone) TargetsSatellite(satID string) bool {
	return d.Target != nil && d.Target.SatelliteID == satID
}

// Idle reports whether the drone is parked with no destination.
func (d *Drone) Idle() bool {
	return (d.Status == StatusStandby || d.Status == StatusAtEarth) && d.Target == nil
}

// Clone returns a deep copy for use in snapshots.
func (d *Drone) Clone() *Drone {
	cp := *d
	if d.Target != nil {
		t := *d.Target
		cp.Target = &t
	}
	return &cp
}
