package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// travelResult is the outcome of one travel tick.
type travelResult int

const (
	travelMoving travelResult = iota
	travelArrived
	travelTimeout
)

// Orchestrator drives the per-drone mission state machine: auto-dispatch
// of idle drones to needy satellites, target selection, exclusive-claim
// handling, travel, charging/harvesting transfers, and timeout recovery.
//
// Nothing here returns an error to the scheduler: unreachable targets
// are excluded from candidate search, and the only escape valve for a
// stuck drone is the timeout-recovery teleport.
type Orchestrator struct {
	world  *World
	cfg    *Config
	econ   *Economics
	notify Notifier
	log    logging.Logger
}

// NewOrchestrator wires the orchestrator against the world.
func NewOrchestrator(w *World, cfg *Config, econ *Economics, notify Notifier, log logging.Logger) *Orchestrator {
	if notify == nil {
		notify = NoopNotifier()
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Orchestrator{world: w, cfg: cfg, econ: econ, notify: notify, log: log}
}

// Route runs one orchestration pass: the system-wide auto-dispatch pass
// followed by the per-drone state transition pass, all inside a single
// world critical section.
func (o *Orchestrator) Route() {
	o.world.WithLock(func() {
		o.autoDispatchLocked()
		for _, d := range o.world.drones {
			if d.Status == model.StatusOutOfService {
				continue
			}
			o.stepDroneLocked(d)
		}
	})
}

//
// ---------- Movement helpers ----------
//

func (o *Orchestrator) reserveCost(km float64) float64 {
	return km * o.cfg.DroneReservePerKm
}

// canReach reports whether the drone can reach (lat, lon) without its
// reserve dropping below the minimum-to-continue floor.
func (o *Orchestrator) canReach(d *model.Drone, lat, lon float64) bool {
	km := HaversineKm(d.Position.Lat, d.Position.Lon, lat, lon)
	return d.ReserveBattery >= o.reserveCost(km)+o.cfg.DroneReserveMinToContinue
}

// setCourse pays the reserve cost for the trip and arms the travel
// counters. Courses are only set for reachable targets, so the reserve
// never goes negative.
func (o *Orchestrator) setCourse(d *model.Drone, lat, lon float64, label string) {
	d.SpeedKmPerTick = o.cfg.DroneSpeedKmPerTick

	km := HaversineKm(d.Position.Lat, d.Position.Lon, lat, lon)
	d.ReserveBattery -= o.reserveCost(km)

	if o.cfg.DroneTravelInstant {
		d.ETATicks = 0
	} else {
		d.ETATicks = int(math.Max(1, km/math.Max(d.SpeedKmPerTick, 1)))
	}

	d.DwellTicks = 0
	d.EnrouteTicks = 0

	if label != "" {
		o.notify.Notify("drone.enroute", map[string]any{
			"battery_id": d.ID,
			"eta":        d.ETATicks,
			"to":         label,
		})
	}
}

func (o *Orchestrator) arriveAt(d *model.Drone, lat, lon float64) {
	d.Position.Lat = lat
	d.Position.Lon = lon
	d.ETATicks = 0
	d.DwellTicks = 0
	d.EnrouteTicks = 0
}

// tickTravel advances one travel tick toward dest. A zero ETA means
// arrival is due, so a recovered drone parked on its destination does
// not idle in a travel state.
func (o *Orchestrator) tickTravel(d *model.Drone, dest model.Position) travelResult {
	if o.cfg.DroneTravelInstant || d.ETATicks <= 0 {
		o.arriveAt(d, dest.Lat, dest.Lon)
		return travelArrived
	}

	d.ETATicks--
	d.EnrouteTicks++

	if d.EnrouteTicks >= o.cfg.DroneEnrouteMaxTicks {
		return travelTimeout
	}
	if d.ETATicks == 0 {
		o.arriveAt(d, dest.Lat, dest.Lon)
		return travelArrived
	}
	return travelMoving
}

func (o *Orchestrator) releaseCurrentClaim(d *model.Drone) {
	if d.Target != nil && d.Target.SatelliteID != "" {
		o.world.releaseClaimLocked(d.Target.SatelliteID, d.ID)
	}
}

//
// ---------- Target selection ----------
//

// chargerCount counts drones other than exclude currently charging satID.
func (o *Orchestrator) chargerCount(satID, exclude string) int {
	n := 0
	for _, b := range o.world.drones {
		if b.ID != exclude && b.Status == model.StatusCharging && b.TargetsSatellite(satID) {
			n++
		}
	}
	return n
}

// findChargingTarget picks the best satellite to deliver energy to:
// not full, reachable, below the concurrent-charger cap; lowest energy
// first, least crowded as tiebreak.
func (o *Orchestrator) findChargingTarget(d *model.Drone) *model.Satellite {
	type candidate struct {
		sat      *model.Satellite
		chargers int
	}
	var candidates []candidate

	for _, s := range o.world.satellites {
		if s.EnergyAmount >= s.MaxEnergy-o.cfg.SatFullEps {
			continue
		}
		if !o.canReach(d, s.Position.Lat, s.Position.Lon) {
			continue
		}
		chargers := o.chargerCount(s.ID, d.ID)
		if chargers >= o.cfg.AutoMaxDronesPerSat {
			continue
		}
		candidates = append(candidates, candidate{sat: s, chargers: chargers})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sat.EnergyAmount != candidates[j].sat.EnergyAmount {
			return candidates[i].sat.EnergyAmount < candidates[j].sat.EnergyAmount
		}
		return candidates[i].chargers < candidates[j].chargers
	})
	return candidates[0].sat
}

// findHarvestSource picks the highest-energy satellite at or above the
// harvest start level that is reachable, not being charged by anyone,
// and not already being harvested by another drone.
func (o *Orchestrator) findHarvestSource(d *model.Drone) *model.Satellite {
	var best *model.Satellite

	for _, s := range o.world.satellites {
		if s.EnergyAmount < o.cfg.HarvestStartLevel {
			continue
		}
		if !o.canReach(d, s.Position.Lat, s.Position.Lon) {
			continue
		}

		beingCharged := false
		beingHarvested := false
		for _, b := range o.world.drones {
			if !b.TargetsSatellite(s.ID) {
				continue
			}
			if b.Status == model.StatusCharging {
				beingCharged = true
				break
			}
			if b.ID != d.ID && b.Status == model.StatusHarvesting {
				beingHarvested = true
			}
		}
		if beingCharged || beingHarvested {
			continue
		}

		if best == nil || s.EnergyAmount > best.EnergyAmount {
			best = s
		}
	}
	return best
}

// shouldReturnToEarth decides whether the drone must head home: payload
// critically low with reserve nearly spent, or payload low with no
// viable harvest source.
func (o *Orchestrator) shouldReturnToEarth(d *model.Drone) bool {
	if d.Battery < o.cfg.PayloadChargeMin &&
		d.ReserveBattery < o.cfg.DroneReserveMinToContinue*2 {
		return true
	}
	if d.Battery < o.cfg.PayloadChargeMin {
		return o.findHarvestSource(d) == nil
	}
	return false
}

func (o *Orchestrator) returnToEarth(d *model.Drone) {
	o.releaseCurrentClaim(d)
	d.Status = model.StatusReturning
	d.Target = model.EarthTarget()
	o.setCourse(d, d.HomeBase.Lat, d.HomeBase.Lon, "earth")
}

// chooseNextMission is invoked whenever a drone becomes idle or must
// re-plan: return to Earth if depleted, otherwise deliver to the
// neediest chargeable satellite, otherwise harvest, otherwise go home.
func (o *Orchestrator) chooseNextMission(d *model.Drone) {
	if o.shouldReturnToEarth(d) {
		o.returnToEarth(d)
		return
	}

	if d.Battery >= o.cfg.PayloadChargeMin {
		if target := o.findChargingTarget(d); target != nil &&
			o.world.tryClaimLocked(target.ID, d.ID) {
			d.Status = model.StatusEnroute
			d.Target = model.SatelliteTarget(target.ID)
			o.setCourse(d, target.Position.Lat, target.Position.Lon, target.ID)
			return
		}
	}

	if target := o.findHarvestSource(d); target != nil &&
		o.world.tryClaimLocked(target.ID, d.ID) {
		d.Status = model.StatusEnroute
		d.Target = model.SatelliteTarget(target.ID)
		o.setCourse(d, target.Position.Lat, target.Position.Lon, target.ID)
		return
	}

	o.returnToEarth(d)
}

//
// ---------- Auto-dispatch ----------
//

// autoDispatchLocked sends the nearest idle, fueled drones toward
// satellites below the auto-needy threshold, most urgent first. Each
// drone is removed from the candidate pool once dispatched.
func (o *Orchestrator) autoDispatchLocked() {
	if !o.cfg.AutoDispatchEnabled {
		return
	}

	var needy []*model.Satellite
	for _, s := range o.world.satellites {
		if s.EnergyAmount < o.cfg.AutoNeedyThresh {
			needy = append(needy, s)
		}
	}
	if len(needy) == 0 {
		return
	}
	sort.Slice(needy, func(i, j int) bool { return needy[i].EnergyAmount < needy[j].EnergyAmount })

	var available []*model.Drone
	for _, b := range o.world.drones {
		if (b.Status == model.StatusAtEarth || b.Status == model.StatusStandby) &&
			b.Battery >= o.cfg.PayloadChargeMin {
			available = append(available, b)
		}
	}

	for _, sat := range needy {
		if len(available) == 0 {
			break
		}

		targeting := 0
		for _, b := range o.world.drones {
			if b.TargetsSatellite(sat.ID) {
				targeting++
			}
		}
		if targeting >= o.cfg.AutoMaxDronesPerSat {
			continue
		}

		var closest *model.Drone
		closestIdx := -1
		closestDist := math.MaxFloat64
		for i, b := range available {
			if !o.canReach(b, sat.Position.Lat, sat.Position.Lon) {
				continue
			}
			dist := HaversineKm(b.Position.Lat, b.Position.Lon, sat.Position.Lat, sat.Position.Lon)
			if dist < closestDist {
				closest, closestIdx, closestDist = b, i, dist
			}
		}

		if closest != nil && o.world.tryClaimLocked(sat.ID, closest.ID) {
			closest.Status = model.StatusEnroute
			closest.Target = model.SatelliteTarget(sat.ID)
			o.setCourse(closest, sat.Position.Lat, sat.Position.Lon, sat.ID)
			available = append(available[:closestIdx], available[closestIdx+1:]...)

			o.notify.Notify("drone.auto_dispatched", map[string]any{
				"battery_id":   closest.ID,
				"satellite_id": sat.ID,
				"reason":       "low_energy",
			})
		}
	}
}

//
// ---------- Per-drone state machine ----------
//

func (o *Orchestrator) stepDroneLocked(d *model.Drone) {
	switch d.Status {
	case model.StatusEnroute, model.StatusReturning:
		o.travelTick(d)
	case model.StatusCharging:
		o.chargingTick(d)
	case model.StatusHarvesting:
		o.harvestingTick(d)
	case model.StatusStandby, model.StatusAtEarth:
		if d.Target == nil {
			o.chooseNextMission(d)
		}
	}
}

func (o *Orchestrator) travelTick(d *model.Drone) {
	switch {
	case d.Target != nil && d.Target.Earth:
		switch o.tickTravel(d, d.HomeBase) {
		case travelArrived:
			o.earthArrival(d)
		case travelTimeout:
			o.timeoutRecovery(d)
		}

	case d.Target != nil && d.Target.SatelliteID != "":
		sat := o.world.satellites[d.Target.SatelliteID]
		if sat == nil {
			o.releaseCurrentClaim(d)
			o.chooseNextMission(d)
			return
		}
		switch o.tickTravel(d, sat.Position) {
		case travelArrived:
			o.satelliteArrival(d, sat)
		case travelTimeout:
			o.timeoutRecovery(d)
		}
	}
}

// earthArrival refills both gauges, records the free Earth-side energy
// transfer, and immediately re-enters mission selection so a fueled
// drone never wastes an idle tick.
func (o *Orchestrator) earthArrival(d *model.Drone) {
	refill := o.cfg.DronePayloadMax - d.Battery

	d.Status = model.StatusAtEarth
	d.Battery = o.cfg.DronePayloadMax
	d.ReserveBattery = o.cfg.DroneReserveMax
	d.Target = nil

	if refill > 0 {
		o.econ.ProcessTransfer(nil, d, refill, model.TransferEarthRecharge)
	}
	o.notify.Notify("drone.recharged", map[string]any{"battery_id": d.ID})

	o.chooseNextMission(d)
}

// satelliteArrival decides what to do at the destination: the satellite
// may have changed since dispatch, in which case the claim is dropped
// and the drone re-plans.
func (o *Orchestrator) satelliteArrival(d *model.Drone, sat *model.Satellite) {
	switch {
	case d.Battery >= o.cfg.PayloadChargeMin &&
		sat.EnergyAmount < sat.MaxEnergy-o.cfg.SatFullEps:
		d.Status = model.StatusCharging
		d.DwellTicks = 0
		o.notify.Notify("drone.charging_start", map[string]any{
			"battery_id":   d.ID,
			"satellite_id": sat.ID,
		})
	case sat.EnergyAmount >= o.cfg.HarvestStartLevel:
		d.Status = model.StatusHarvesting
		d.DwellTicks = 0
		o.notify.Notify("drone.harvesting_start", map[string]any{
			"battery_id":   d.ID,
			"satellite_id": sat.ID,
		})
	default:
		o.releaseCurrentClaim(d)
		o.chooseNextMission(d)
	}
}

// timeoutRecovery teleports a stuck drone to its home base with both
// gauges refilled. Losing simulated energy beats losing a drone forever.
func (o *Orchestrator) timeoutRecovery(d *model.Drone) {
	o.releaseCurrentClaim(d)
	d.Status = model.StatusReturning
	d.Target = model.EarthTarget()
	d.Position = d.HomeBase
	d.Battery = o.cfg.DronePayloadMax
	d.ReserveBattery = o.cfg.DroneReserveMax
	d.ETATicks = 0
	d.EnrouteTicks = 0

	o.notify.Notify("drone.timeout_recovery", map[string]any{"battery_id": d.ID})
}

func (o *Orchestrator) chargingTick(d *model.Drone) {
	if d.Target == nil || d.Target.SatelliteID == "" {
		o.chooseNextMission(d)
		return
	}
	sat := o.world.satellites[d.Target.SatelliteID]
	if sat == nil {
		o.releaseCurrentClaim(d)
		o.chooseNextMission(d)
		return
	}

	d.DwellTicks++

	satFull := sat.EnergyAmount >= sat.MaxEnergy-o.cfg.SatFullEps
	payloadEmpty := d.Battery < o.cfg.PayloadChargeMin
	maxDwell := d.DwellTicks >= o.cfg.DroneMaxDwellTicks

	if satFull || payloadEmpty || maxDwell {
		reason := "max_dwell"
		if satFull {
			reason = "full"
		} else if payloadEmpty {
			reason = "empty"
		}
		o.notify.Notify("drone.charging_complete", map[string]any{
			"battery_id":   d.ID,
			"satellite_id": sat.ID,
			"reason":       reason,
		})
		o.releaseCurrentClaim(d)
		o.chooseNextMission(d)
		return
	}

	deficit := sat.MaxEnergy - sat.EnergyAmount
	give := math.Min(o.cfg.DronePayloadChargeRate, math.Min(d.Battery, deficit))
	if give > 0 {
		d.Battery -= give
		sat.EnergyAmount += give
		o.econ.ProcessTransfer(sat, d, give, model.TransferCharge)
		o.notify.Notify("drone.charged", map[string]any{
			"battery_id":   d.ID,
			"satellite_id": sat.ID,
			"amount":       give,
		})
	}
}

func (o *Orchestrator) harvestingTick(d *model.Drone) {
	if d.Target == nil || d.Target.SatelliteID == "" {
		o.chooseNextMission(d)
		return
	}
	sat := o.world.satellites[d.Target.SatelliteID]
	if sat == nil {
		o.releaseCurrentClaim(d)
		o.chooseNextMission(d)
		return
	}

	d.DwellTicks++

	satLow := sat.EnergyAmount <= o.cfg.HarvestFloor
	payloadFull := d.Battery >= o.cfg.DronePayloadMax-1
	maxDwell := d.DwellTicks >= o.cfg.DroneMaxDwellTicks

	if satLow || payloadFull || maxDwell {
		reason := "max_dwell"
		if satLow {
			reason = "low"
		} else if payloadFull {
			reason = "full"
		}
		o.notify.Notify("drone.harvesting_complete", map[string]any{
			"battery_id":   d.ID,
			"satellite_id": sat.ID,
			"reason":       reason,
		})
		o.releaseCurrentClaim(d)
		o.chooseNextMission(d)
		return
	}

	available := math.Max(0, sat.EnergyAmount-o.cfg.HarvestFloor)
	take := math.Min(o.cfg.DroneHarvestRate, math.Min(o.cfg.DronePayloadMax-d.Battery, available))
	if take > 0 {
		d.Battery += take
		sat.EnergyAmount -= take
		o.econ.ProcessTransfer(sat, d, take, model.TransferHarvest)
		o.notify.Notify("drone.harvested", map[string]any{
			"battery_id":   d.ID,
			"satellite_id": sat.ID,
			"amount":       take,
		})
	}
}

//
// ---------- Manual launch ----------
//

// Launch sends count drones toward the given satellite, reusing drones
// parked at Earth and materializing new ones when the pool runs dry. It
// bypasses auto-dispatch eligibility checks but sets the course exactly
// as mission selection would.
func (o *Orchestrator) Launch(count int, satID string) ([]string, error) {
	if count < 1 {
		count = 1
	}

	var launched []string
	var err error
	o.world.WithLock(func() {
		sat := o.world.satellites[satID]
		if sat == nil {
			err = ErrSatelliteNotFound
			return
		}

		for i := 0; i < count; i++ {
			var drone *model.Drone
			for _, b := range o.world.drones {
				if b.Status == model.StatusAtEarth {
					drone = b
					break
				}
			}
			if drone == nil {
				drone = model.NewDrone(o.cfg.DroneReserveMax, o.cfg.DronePayloadMax, o.cfg.DroneSpeedKmPerTick)
				o.world.drones[drone.ID] = drone
			}

			drone.Status = model.StatusEnroute
			drone.Target = model.SatelliteTarget(sat.ID)
			o.setCourse(drone, sat.Position.Lat, sat.Position.Lon, "")
			launched = append(launched, drone.ID)

			o.notify.Notify("drone.launched", map[string]any{
				"battery_id": drone.ID,
				"target":     sat.ID,
				"eta":        drone.ETATicks,
			})
		}
	})
	return launched, err
}
