package models

import "time"

// Worker visit statuses
const (
	VisitPending     = "pending"
	VisitOTPVerified = "otp_verified"
	VisitCompleted   = "completed"
)

// WorkerVisit records a day's labour head-count at a site. The count is
// only accepted together with a valid OTP, so worker_count is set at or
// after otp_verified.
type WorkerVisit struct {
	ID            int        `json:"id"`
	EngineerID    int        `json:"engineer_id"`
	EngineerName  string     `json:"engineer_name,omitempty"`
	ClientID      int        `json:"client_id"`
	ClientName    string     `json:"client_name,omitempty"`
	VisitDate     time.Time  `json:"visit_date"`
	SiteAddress   string     `json:"site_address,omitempty"`
	WorkerCount   int        `json:"worker_count,omitempty"`
	Remarks       string     `json:"remarks,omitempty"`
	OTP           string     `json:"-"`
	OTPSentAt     *time.Time `json:"otp_sent_at,omitempty"`
	OTPExpiresAt  *time.Time `json:"otp_expires_at,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	AdminNotified bool       `json:"admin_notified"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateWorkerVisitRequest represents the request body for opening a visit
type CreateWorkerVisitRequest struct {
	EngineerID  int    `json:"engineer_id"` // admins may set, engineers must match themselves
	ClientID    int    `json:"client_id"`
	VisitDate   string `json:"visit_date"` // "2006-01-02" IST
	SiteAddress string `json:"site_address"`
}

// VerifyWorkerVisitOTPRequest carries the code plus the head-count
type VerifyWorkerVisitOTPRequest struct {
	OTP         string `json:"otp"`
	WorkerCount int    `json:"worker_count"`
	Remarks     string `json:"remarks"`
}

// WidgetVerifyWorkerVisitRequest is the widget path equivalent
type WidgetVerifyWorkerVisitRequest struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	WorkerCount int    `json:"worker_count"`
	Remarks     string `json:"remarks"`
}
