package model

import "math/rand"

var satelliteCompanies = []string{
	"OrbitPower Inc", "SkyGrid Energy", "SolarSat Systems", "NexGen Space",
}

// Satellite is an orbital energy producer and task host.
//
// Invariants maintained by the core: 0 <= EnergyAmount <= MaxEnergy, and
// len(CurrentTasks) never exceeds the configured per-satellite cap.
type Satellite struct {
	ID string `json:"satellite_id"`

	// Energy store.
	EnergyAmount float64 `json:"energy_amount"`
	MaxEnergy    float64 `json:"max_energy"`

	// Processing.
	ProcessingCapacity float64       `json:"processing_capacity"`
	CurrentTasks       []*TaskRecord `json:"current_tasks"`

	// Solar generation in energy units per tick at full sun.
	SolarGenRate float64 `json:"solar_gen_rate"`

	Position Position `json:"position"`

	// Market identity and running financial counters.
	OwnerWallet          string  `json:"owner_wallet"`
	CompanyName          string  `json:"company_name"`
	EnergyPricePerUnit   float64 `json:"energy_price_per_unit"`
	TotalRevenue         float64 `json:"total_revenue"`
	TotalEnergySold      float64 `json:"total_energy_sold"`
	TotalEnergyPurchased float64 `json:"total_energy_purchased"`
}

// NewSatellite constructs a satellite with a fresh identity, a random
// mid-latitude position, and default capacity/pricing.
func NewSatellite(energy, maxEnergy, processingCapacity, solarGenRate float64) *Satellite {
	return &Satellite{
		ID:                 NewID("sat"),
		EnergyAmount:       energy,
		MaxEnergy:          maxEnergy,
		ProcessingCapacity: processingCapacity,
		SolarGenRate:       solarGenRate,
		Position: Position{
			Lat: -60 + rand.Float64()*120,
			Lon: -180 + rand.Float64()*360,
		},
		OwnerWallet:        NewWalletID(),
		CompanyName:        satelliteCompanies[rand.Intn(len(satelliteCompanies))],
		EnergyPricePerUnit: 0.05,
	}
}

// Utilization returns EnergyAmount/MaxEnergy, guarding against a zero cap.
func (s *Satellite) Utilization() float64 {
	if s.MaxEnergy <= 0 {
		return 0
	}
	return s.EnergyAmount / s.MaxEnergy
}

// Clone returns a deep copy for use in snapshots.
func (s *Satellite) Clone() *Satellite {
	cp := *s
	cp.CurrentTasks = make([]*TaskRecord, len(s.CurrentTasks))
	for i, t := range s.CurrentTasks {
		tc := *t
		cp.CurrentTasks[i] = &tc
	}
	return &cp
}
