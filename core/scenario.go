package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// ScenarioSummary reports what a scenario load produced. Mainly useful
// for logging from main().
type ScenarioSummary struct {
	SatelliteIDs []string
	DroneIDs     []string
}

// internal JSON shapes, unexported so we are free to evolve them.
type scenarioJSON struct {
	Satellites []scenarioSatelliteJSON `json:"satellites"`
	Drones     []scenarioDroneJSON     `json:"drones"`
}

type scenarioSatelliteJSON struct {
	Energy             float64  `json:"energy"`
	MaxEnergy          float64  `json:"max_energy"`
	ProcessingCapacity float64  `json:"processing_capacity"`
	SolarGenRate       float64  `json:"solar_gen_rate"`
	Company            string   `json:"company"`
	PricePerUnit       *float64 `json:"price_per_unit"` // optional; defaults to 0.05

	// Either a fixed position or a TLE pair. When both are present the
	// TLE wins; when neither is, the constructor's random placement is kept.
	Position *scenarioPositionJSON `json:"position"`
	TLE1     string                `json:"tle1"`
	TLE2     string                `json:"tle2"`
}

type scenarioDroneJSON struct {
	ReserveBattery *float64 `json:"reserve_battery"` // optional; defaults to full
	Battery        *float64 `json:"battery"`         // optional; defaults to full payload
	Company        string   `json:"company"`
}

type scenarioPositionJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// LoadScenario reads a JSON scenario from r and seeds the world with its
// satellites and drones, replacing any prior content. It fails only on
// JSON and TLE errors; value ranges are the caller's business.
func LoadScenario(w *World, cfg *Config, r io.Reader) (*ScenarioSummary, error) {
	if w == nil {
		return nil, fmt.Errorf("LoadScenario: world is nil")
	}

	var payload scenarioJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	sats := make([]*model.Satellite, 0, len(payload.Satellites))
	for i, js := range payload.Satellites {
		s := model.NewSatellite(js.Energy, js.MaxEnergy, js.ProcessingCapacity, js.SolarGenRate)
		if js.Company != "" {
			s.CompanyName = js.Company
		}
		if js.PricePerUnit != nil {
			s.EnergyPricePerUnit = *js.PricePerUnit
		}
		switch {
		case js.TLE1 != "" && js.TLE2 != "":
			pos, err := tlePosition(js.TLE1, js.TLE2, time.Now().UTC())
			if err != nil {
				return nil, fmt.Errorf("LoadScenario: satellite %d: %w", i, err)
			}
			s.Position = pos
		case js.Position != nil:
			s.Position = model.Position{Lat: js.Position.Lat, Lon: js.Position.Lon, Alt: js.Position.Alt}
		}
		sats = append(sats, s)
	}

	drones := make([]*model.Drone, 0, len(payload.Drones))
	for _, jd := range payload.Drones {
		d := newFueledDrone(cfg)
		if jd.ReserveBattery != nil {
			d.ReserveBattery = *jd.ReserveBattery
		}
		if jd.Battery != nil {
			d.Battery = *jd.Battery
		}
		if jd.Company != "" {
			d.CompanyName = jd.Company
		}
		drones = append(drones, d)
	}

	w.Seed(sats, drones)
	return summarize(sats, drones), nil
}

// SeedDefault populates the world with the stock fleet: four satellites
// at staggered charge levels and two fully fueled carriers parked on
// Earth.
func SeedDefault(w *World, cfg *Config) *ScenarioSummary {
	specs := []struct {
		energy, capacity, solar float64
	}{
		{90, 2500, 0.45},
		{65, 1800, 0.35},
		{40, 2200, 0.40},
		{75, 2000, 0.38},
	}

	sats := make([]*model.Satellite, 0, len(specs))
	for _, sp := range specs {
		s := model.NewSatellite(sp.energy, 120, sp.capacity, sp.solar)
		s.EnergyPricePerUnit = 0.03 + rand.Float64()*0.05
		sats = append(sats, s)
	}

	drones := []*model.Drone{
		newFueledDrone(cfg),
		newFueledDrone(cfg),
	}

	w.Seed(sats, drones)
	return summarize(sats, drones)
}

// newFueledDrone returns a drone parked on Earth with both gauges full.
func newFueledDrone(cfg *Config) *model.Drone {
	d := model.NewDrone(cfg.DroneReserveMax, cfg.DronePayloadMax, cfg.DroneSpeedKmPerTick)
	d.Status = model.StatusAtEarth
	return d
}

// tlePosition propagates a TLE pair to t with SGP4 and returns the
// subsatellite point in degrees plus altitude in kilometres.
func tlePosition(line1, line2 string, t time.Time) (pos model.Position, err error) {
	// go-satellite panics on malformed lines.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tle propagation failed: %v", r)
		}
	}()

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	gmst := satellite.GSTimeFromDate(year, int(month), day, hour, min, sec)
	alt, _, llRad := satellite.ECIToLLA(posECI, gmst)
	ll := satellite.LatLongDeg(llRad)

	return model.Position{Lat: ll.Latitude, Lon: ll.Longitude, Alt: alt}, nil
}

func summarize(sats []*model.Satellite, drones []*model.Drone) *ScenarioSummary {
	sum := &ScenarioSummary{
		SatelliteIDs: make([]string, 0, len(sats)),
		DroneIDs:     make([]string, 0, len(drones)),
	}
	for _, s := range sats {
		sum.SatelliteIDs = append(sum.SatelliteIDs, s.ID)
	}
	for _, d := range drones {
		sum.DroneIDs = append(sum.DroneIDs, d.ID)
	}
	return sum
}
