package models

import "time"

// User roles
const (
	RoleAdmin    = "admin"
	RoleEngineer = "engineer"
)

// User is a back-office account: an administrator or a site engineer.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         string    `json:"role"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication.
// When TOTP is enabled, Token is empty and TempToken must be exchanged
// via the 2FA verify endpoint.
type AuthResponse struct {
	Token       string `json:"token,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
	RequiresTwo bool   `json:"requires_2fa"`
	User        *User  `json:"user,omitempty"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password,omitempty"` // Optional
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// TOTPSetupResponse is returned when an admin begins 2FA enrolment
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`
	QRCode      string `json:"qr_code"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

// TOTPVerifyRequest carries a 6-digit authenticator code
type TOTPVerifyRequest struct {
	TempToken string `json:"temp_token,omitempty"`
	Code      string `json:"code"`
}
