package models

import "time"

// Client is a customer of the wall & flooring business
type Client struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	AltPhone  string    `json:"alt_phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateClientRequest represents the request body for creating a client
type CreateClientRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	AltPhone string `json:"alt_phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
}

// UpdateClientRequest represents the request body for updating a client
type UpdateClientRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	AltPhone string `json:"alt_phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
}
