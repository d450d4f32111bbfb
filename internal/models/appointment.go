package models

import "time"

// Appointment statuses. Status only moves forward, except to cancelled.
const (
	AppointmentScheduled = "scheduled"
	AppointmentOTPSent   = "otp_sent"
	AppointmentVerified  = "verified"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is a scheduled site visit by an engineer, gated by a
// client OTP before work can be signed off.
type Appointment struct {
	ID           int        `json:"id"`
	EngineerID   int        `json:"engineer_id"`
	EngineerName string     `json:"engineer_name,omitempty"`
	ClientID     int        `json:"client_id"`
	ClientName   string     `json:"client_name,omitempty"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Purpose      string     `json:"purpose,omitempty"`
	SiteAddress  string     `json:"site_address,omitempty"`
	OTPPhone     string     `json:"otp_phone,omitempty"` // overrides client's primary contact
	OTP          string     `json:"-"`                   // never expose the code
	OTPSentAt    *time.Time `json:"otp_sent_at,omitempty"`
	OTPExpiresAt *time.Time `json:"otp_expires_at,omitempty"`
	OTPAttempts  int        `json:"otp_attempts"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Terminal reports whether the appointment can no longer change state.
func (a *Appointment) Terminal() bool {
	return a.Status == AppointmentCompleted || a.Status == AppointmentCancelled
}

// CreateAppointmentRequest represents the request body for scheduling
type CreateAppointmentRequest struct {
	EngineerID  int    `json:"engineer_id"`
	ClientID    int    `json:"client_id"`
	ScheduledAt string `json:"scheduled_at"` // "2006-01-02 15:04:05" IST
	Purpose     string `json:"purpose"`
	SiteAddress string `json:"site_address"`
	OTPPhone    string `json:"otp_phone"`
}

// VerifyAppointmentOTPRequest carries the inline code
type VerifyAppointmentOTPRequest struct {
	OTP string `json:"otp"`
}

// CompleteAppointmentRequest carries the sign-off feedback
type CompleteAppointmentRequest struct {
	Feedback string `json:"feedback"`
}

// WidgetVerifyRequest carries the locally issued widget token plus the
// access token handed back by the provider's hosted widget.
type WidgetVerifyRequest struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}
