package core

import (
	"sync"

	"github.com/signalsfoundry/orbital-energy-sim/model"
)

// addSatellite inserts a satellite pinned at the origin so distances in
// tests are predictable.
func addSatellite(w *World, energy, maxEnergy float64) *model.Satellite {
	s := model.NewSatellite(energy, maxEnergy, 2000, 0.4)
	s.Position = model.Position{Lat: 0, Lon: 0}
	w.satellites[s.ID] = s
	return s
}

// addDrone inserts a fully fueled drone at the origin home base.
func addDrone(w *World, cfg *Config, status model.DroneStatus) *model.Drone {
	d := model.NewDrone(cfg.DroneReserveMax, cfg.DronePayloadMax, cfg.DroneSpeedKmPerTick)
	d.Status = status
	w.drones[d.ID] = d
	return d
}

// eventRecorder captures notifications for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Notify(eventType string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Type: eventType, Payload: payload})
}

func (r *eventRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(eventType string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return Event{}, false
}
