package models

import "time"

// Material is a stockable item (tiles, adhesive, plaster, paint etc.)
type Material struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Unit      string    `json:"unit"` // sqft, bag, box, litre
	UnitPrice float64   `json:"unit_price,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateMaterialRequest represents the request body for creating a material
type CreateMaterialRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
}

// UpdateMaterialRequest represents the request body for updating a material
type UpdateMaterialRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
}
