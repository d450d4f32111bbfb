package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/metrics"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/phone"
)

// Delivery is the atomic outcome of one gateway call. The gateway writes
// the matching ledger row itself, so callers never touch the log table;
// they only inspect Delivered before committing any state transition.
type Delivery struct {
	Delivered    bool
	ReferenceID  string
	ErrorMessage string
}

// SMSLogRepo persists delivery attempts
type SMSLogRepo interface {
	Create(ctx context.Context, log *models.SMSLog) error
}

// Provider is the outbound SMS interface. Send and SendOTP never return
// an error: every code path resolves to a Delivery and a persisted log row.
type Provider interface {
	Send(ctx context.Context, recipient, message, messageType string) Delivery
	SendOTP(ctx context.Context, recipient, code string, validFor time.Duration) Delivery
	VerifyWidgetToken(ctx context.Context, accessToken string) error
	SetLogRepository(repo SMSLogRepo)
}

const msg91BaseURL = "https://control.msg91.com"

// MSG91Service implements Provider against MSG91 (India)
type MSG91Service struct {
	AuthKey        string
	SenderID       string
	Route          string
	FlowTemplateID string // template for plain messages; plain sendsms when empty
	OTPTemplateID  string // dedicated OTP endpoint used only when set
	BaseURL        string
	LogRepo        SMSLogRepo
	client         *http.Client
}

// NewMSG91Service creates a new MSG91 gateway client
func NewMSG91Service(authKey, senderID, route, flowTemplateID, otpTemplateID string) *MSG91Service {
	return &MSG91Service{
		AuthKey:        authKey,
		SenderID:       senderID,
		Route:          route,
		FlowTemplateID: flowTemplateID,
		OTPTemplateID:  otpTemplateID,
		BaseURL:        msg91BaseURL,
		client:         &http.Client{Timeout: 30 * time.Second},
	}
}

// SetLogRepository sets the delivery ledger repository
func (s *MSG91Service) SetLogRepository(repo SMSLogRepo) {
	s.LogRepo = repo
}

// apiResponse is MSG91's common response envelope
type apiResponse struct {
	Type      string `json:"type"` // "success" or "error"
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Send delivers a plain message: templated flow endpoint when a flow
// template is configured, plain sendsms otherwise. Exactly one ledger row
// is written per call.
func (s *MSG91Service) Send(ctx context.Context, recipient, message, messageType string) Delivery {
	if recipient == "" {
		// Callers validate blank recipients up front; nothing to log here.
		return Delivery{ErrorMessage: "recipient phone is blank"}
	}

	normalized, err := phone.Normalize(recipient)
	if err != nil {
		d := Delivery{ErrorMessage: "invalid phone number format"}
		s.logAttempt(ctx, recipient, message, messageType, d)
		return d
	}

	var d Delivery
	if s.FlowTemplateID != "" {
		d = s.sendFlow(ctx, normalized, message)
	} else {
		d = s.sendPlain(ctx, normalized, message)
	}
	s.logAttempt(ctx, normalized, message, messageType, d)
	return d
}

// SendOTP is the higher-priority OTP path: the dedicated OTP endpoint is
// tried first when a template is configured, falling back to Send with a
// human-readable message. The OTP endpoint has materially better
// deliverability for transactional codes but is not always configured.
func (s *MSG91Service) SendOTP(ctx context.Context, recipient, code string, validFor time.Duration) Delivery {
	if recipient == "" {
		return Delivery{ErrorMessage: "recipient phone is blank"}
	}

	if s.OTPTemplateID != "" {
		normalized, err := phone.Normalize(recipient)
		if err != nil {
			d := Delivery{ErrorMessage: "invalid phone number format"}
			s.logAttempt(ctx, recipient, "OTP", models.SMSTypeOTP, d)
			return d
		}

		d := s.sendOTPAPI(ctx, normalized, code)
		s.logAttempt(ctx, normalized, "OTP", models.SMSTypeOTP, d)
		if d.Delivered {
			return d
		}
		log.Printf("[SMS] OTP endpoint failed for %s, falling back to SMS: %s", normalized, d.ErrorMessage)
	}

	return s.Send(ctx, recipient, otpMessage(code, validFor), models.SMSTypeOTP)
}

// otpMessage formats the fallback OTP text. The wording is a business
// concern; the code itself must appear verbatim.
func otpMessage(code string, validFor time.Duration) string {
	minutes := int(validFor.Minutes())
	return fmt.Sprintf("Your WallFloor verification code is %s. Valid for %d minutes. Do not share this code with anyone.", code, minutes)
}

// sendOTPAPI calls MSG91's dedicated OTP delivery endpoint
func (s *MSG91Service) sendOTPAPI(ctx context.Context, mobile, code string) Delivery {
	q := url.Values{}
	q.Set("template_id", s.OTPTemplateID)
	q.Set("mobile", mobile)
	q.Set("authkey", s.AuthKey)
	q.Set("otp", code)

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"/api/v5/otp?"+q.Encode(), nil)
	if err != nil {
		return Delivery{ErrorMessage: err.Error()}
	}
	return s.do(req)
}

// sendFlow calls the templated delivery endpoint with the message embedded
// as a template variable.
func (s *MSG91Service) sendFlow(ctx context.Context, mobile, message string) Delivery {
	payload := map[string]interface{}{
		"template_id": s.FlowTemplateID,
		"short_url":   "0",
		"recipients": []map[string]string{
			{"mobiles": mobile, "message": message},
		},
	}

	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/api/v5/flow/", bytes.NewBuffer(jsonData))
	if err != nil {
		return Delivery{ErrorMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.AuthKey)
	return s.do(req)
}

// sendPlain calls the plain-message delivery endpoint
func (s *MSG91Service) sendPlain(ctx context.Context, mobile, message string) Delivery {
	payload := map[string]interface{}{
		"sender":  s.SenderID,
		"route":   s.Route,
		"country": phone.CountryPrefix,
		"sms": []map[string]interface{}{
			{"message": message, "to": []string{mobile}},
		},
	}

	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/api/v2/sendsms", bytes.NewBuffer(jsonData))
	if err != nil {
		return Delivery{ErrorMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.AuthKey)
	return s.do(req)
}

// do executes a provider request. The provider's "type" discriminator is
// the sole success signal; any transport error resolves to a failed
// Delivery, never a raised error.
func (s *MSG91Service) do(req *http.Request) Delivery {
	resp, err := s.client.Do(req)
	if err != nil {
		return Delivery{ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var api apiResponse
	json.Unmarshal(body, &api)

	if api.Type != "success" {
		msg := api.Message
		if msg == "" {
			if len(body) > 0 {
				msg = string(body)
			} else {
				msg = "Unknown error"
			}
		}
		return Delivery{ErrorMessage: msg}
	}

	return Delivery{Delivered: true, ReferenceID: api.RequestID}
}

// VerifyWidgetToken confirms a hosted-widget access token against the
// provider. Only a provider-reported success means the human completed
// the widget OTP flow.
func (s *MSG91Service) VerifyWidgetToken(ctx context.Context, accessToken string) error {
	payload := map[string]string{
		"authkey":      s.AuthKey,
		"access-token": accessToken,
	}

	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+"/api/v5/widget/verifyAccessToken", bytes.NewBuffer(jsonData))
	if err != nil {
		return &apperr.ExternalVerificationError{ProviderMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &apperr.ExternalVerificationError{ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var api apiResponse
	json.Unmarshal(body, &api)

	if api.Type != "success" {
		msg := api.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return &apperr.ExternalVerificationError{ProviderMessage: msg}
	}

	return nil
}

// logAttempt writes the ledger row for one gateway call before Send
// returns. Ledger writes must not fail the delivery path.
func (s *MSG91Service) logAttempt(ctx context.Context, phoneNumber, message, messageType string, d Delivery) {
	status := models.SMSStatusSent
	if !d.Delivered {
		status = models.SMSStatusFailed
	}
	metrics.SMSDeliveriesTotal.WithLabelValues(messageType, status).Inc()

	if s.LogRepo == nil {
		return
	}

	row := &models.SMSLog{
		Phone:        phoneNumber,
		MessageType:  messageType,
		Message:      message,
		Provider:     "msg91",
		Status:       status,
		ErrorMessage: d.ErrorMessage,
		ReferenceID:  d.ReferenceID,
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.LogRepo.Create(logCtx, row); err != nil {
		log.Printf("[SMS] failed to write delivery log: %v", err)
	}
}
