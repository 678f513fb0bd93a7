package model

// Position is a geodetic position in degrees. Altitude is tracked for
// completeness but the energy market only reasons about ground tracks.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt,omitempty"`
}
