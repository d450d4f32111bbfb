package models

import "time"

// SMSLog is one row of the append-only delivery ledger: exactly one row
// is written per gateway call, success or failure, and rows are never
// updated afterwards.
type SMSLog struct {
	ID           int       `json:"id"`
	Phone        string    `json:"phone"` // normalized when normalization succeeded
	MessageType  string    `json:"message_type"`
	Message      string    `json:"message"`
	Provider     string    `json:"provider"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SMS message types
const (
	SMSTypeOTP               = "otp"
	SMSTypeAppointment       = "appointment"
	SMSTypeWorkerVisit       = "worker_visit"
	SMSTypeAdminNotification = "admin_notification"
)

// SMS delivery outcomes
const (
	SMSStatusSent   = "sent"
	SMSStatusFailed = "failed"
)

// Setting keys consumed by the OTP flows
const (
	SettingAdminPhone        = "admin_phone"
	SettingSMSNotifyAdmin    = "sms_notify_admin"
	SettingSMSSenderID       = "sms_sender_id"
	SettingSMSOTPTemplateID  = "sms_otp_template_id"
	SettingSMSFlowTemplateID = "sms_flow_template_id"
)

// SMSStats summarizes the delivery ledger for the admin dashboard
type SMSStats struct {
	TotalSent   int `json:"total_sent"`
	TotalFailed int `json:"total_failed"`
	TodaySent   int `json:"today_sent"`
	TodayFailed int `json:"today_failed"`
}
