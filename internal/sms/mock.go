package sms

import (
	"context"
	"fmt"
	"time"

	"wallfloor-backend/internal/metrics"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/phone"
)

// MockSMSService prints messages to the console instead of calling the
// provider. Used when MSG91_AUTH_KEY is not set.
type MockSMSService struct {
	LogRepo SMSLogRepo
}

// NewMockSMSService creates a new mock gateway
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

// SetLogRepository sets the delivery ledger repository
func (s *MockSMSService) SetLogRepository(repo SMSLogRepo) {
	s.LogRepo = repo
}

// Send prints the message and records a sent ledger row
func (s *MockSMSService) Send(ctx context.Context, recipient, message, messageType string) Delivery {
	if recipient == "" {
		return Delivery{ErrorMessage: "recipient phone is blank"}
	}

	normalized, err := phone.Normalize(recipient)
	if err != nil {
		d := Delivery{ErrorMessage: "invalid phone number format"}
		s.logAttempt(ctx, recipient, message, messageType, d)
		return d
	}

	fmt.Printf("\n========== MOCK SMS ==========\n")
	fmt.Printf("To: %s\n", normalized)
	fmt.Printf("Type: %s\n", messageType)
	fmt.Printf("Message: %s\n", message)
	fmt.Printf("==============================\n\n")

	d := Delivery{Delivered: true}
	s.logAttempt(ctx, normalized, message, messageType, d)
	return d
}

// SendOTP prints the OTP to the console
func (s *MockSMSService) SendOTP(ctx context.Context, recipient, code string, validFor time.Duration) Delivery {
	return s.Send(ctx, recipient, otpMessage(code, validFor), models.SMSTypeOTP)
}

// VerifyWidgetToken always succeeds in mock mode
func (s *MockSMSService) VerifyWidgetToken(ctx context.Context, accessToken string) error {
	fmt.Printf("[MockSMS] widget token accepted: %s\n", accessToken)
	return nil
}

func (s *MockSMSService) logAttempt(ctx context.Context, phoneNumber, message, messageType string, d Delivery) {
	status := models.SMSStatusSent
	if !d.Delivered {
		status = models.SMSStatusFailed
	}
	metrics.SMSDeliveriesTotal.WithLabelValues(messageType, status).Inc()

	if s.LogRepo == nil {
		return
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.LogRepo.Create(logCtx, &models.SMSLog{
		Phone:        phoneNumber,
		MessageType:  messageType,
		Message:      message,
		Provider:     "mock",
		Status:       status,
		ErrorMessage: d.ErrorMessage,
	})
}
