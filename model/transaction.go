package model

import "time"

// TransferType labels the direction and source of an energy transfer.
type TransferType string

const (
	TransferCharge        TransferType = "charge"
	TransferHarvest       TransferType = "harvest"
	TransferEarthRecharge TransferType = "earth_recharge"
)

// EarthEntityID is the source identity used for free Earth-side transfers.
const EarthEntityID = "earth"

// Transaction is an immutable record of one energy transfer. Once
// appended to the ledger it is never mutated.
type Transaction struct {
	ID        string    `json:"transaction_id"`
	Timestamp time.Time `json:"timestamp"`

	FromEntityID string `json:"from_entity_id"` // satellite ID or "earth"
	FromCompany  string `json:"from_company"`
	FromWallet   string `json:"from_wallet"`

	ToEntityID string `json:"to_entity_id"` // drone ID
	ToCompany  string `json:"to_company"`
	ToWallet   string `json:"to_wallet"`

	EnergyAmount float64 `json:"energy_amount"`
	PricePerUnit float64 `json:"price_per_unit"`
	TotalCost    float64 `json:"total_cost"`

	Type   TransferType `json:"transaction_type"`
	Status string       `json:"status"`
}
