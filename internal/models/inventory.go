package models

import "time"

// Inventory movement types
const (
	MovementIn  = "in"
	MovementOut = "out"
)

// InventoryMovement is one row of the append-only stock ledger
type InventoryMovement struct {
	ID              int       `json:"id"`
	MaterialID      int       `json:"material_id"`
	MaterialName    string    `json:"material_name,omitempty"`
	MovementType    string    `json:"movement_type"` // in or out
	Quantity        float64   `json:"quantity"`
	Note            string    `json:"note,omitempty"`
	CreatedByUserID int       `json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateMovementRequest represents the request body for recording a movement
type CreateMovementRequest struct {
	MaterialID   int     `json:"material_id"`
	MovementType string  `json:"movement_type"`
	Quantity     float64 `json:"quantity"`
	Note         string  `json:"note"`
}

// StockSummary is the aggregated position of one material
type StockSummary struct {
	MaterialID   int     `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Unit         string  `json:"unit"`
	TotalIn      float64 `json:"total_in"`
	TotalOut     float64 `json:"total_out"`
	InStock      float64 `json:"in_stock"`
}
