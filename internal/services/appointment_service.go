package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/auth"
	"wallfloor-backend/internal/metrics"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/otp"
	"wallfloor-backend/internal/phone"
	"wallfloor-backend/internal/sms"
	"wallfloor-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
)

const (
	// MaxOTPAttempts caps inline verification tries per issued code.
	MaxOTPAttempts = 3

	// ResendCooldown is the minimum gap between OTP sends for one entity.
	ResendCooldown = 60 * time.Second

	minFeedbackLength = 10
)

// AppointmentStore is the persistence surface the appointment state
// machine needs. *repositories.AppointmentRepository satisfies it.
type AppointmentStore interface {
	Create(ctx context.Context, a *models.Appointment) error
	Get(ctx context.Context, id int) (*models.Appointment, error)
	List(ctx context.Context, engineerID int, status string, limit, offset int) ([]*models.Appointment, int, error)
	SetOTP(ctx context.Context, id int, code string, sentAt, expiresAt time.Time, status string) error
	SetOTPAttempts(ctx context.Context, id, attempts int) error
	MarkVerified(ctx context.Context, id int, verifiedAt time.Time, attempts int) error
	Complete(ctx context.Context, id int, feedback string) error
	Cancel(ctx context.Context, id int) error
}

// ClientStore resolves client records for OTP recipients
type ClientStore interface {
	Get(ctx context.Context, id int) (*models.Client, error)
}

// FailedSMSFinder looks up the most recent failed delivery for a phone
// suffix, used to enrich resend failures.
type FailedSMSFinder interface {
	LastFailedByPhoneSuffix(ctx context.Context, last10 string) (*models.SMSLog, error)
}

type AppointmentService struct {
	Appointments AppointmentStore
	Clients      ClientStore
	SMS          sms.Provider
	SMSLogs      FailedSMSFinder
	JWT          *auth.JWTManager
}

func NewAppointmentService(
	appointments AppointmentStore,
	clients ClientStore,
	smsProvider sms.Provider,
	smsLogs FailedSMSFinder,
	jwtManager *auth.JWTManager,
) *AppointmentService {
	return &AppointmentService{
		Appointments: appointments,
		Clients:      clients,
		SMS:          smsProvider,
		SMSLogs:      smsLogs,
		JWT:          jwtManager,
	}
}

// Create schedules a new appointment. Admin only.
func (s *AppointmentService) Create(ctx context.Context, actorRole string, req *models.CreateAppointmentRequest) (*models.Appointment, error) {
	if actorRole != models.RoleAdmin {
		return nil, &apperr.AuthorizationError{Msg: "only admins can schedule appointments"}
	}
	if req.EngineerID <= 0 || req.ClientID <= 0 {
		return nil, apperr.Validation("engineer_id and client_id are required")
	}
	scheduledAt, err := time.ParseInLocation(timeutil.DateTimeLayout, req.ScheduledAt, timeutil.IST)
	if err != nil {
		return nil, apperr.Validation("invalid scheduled_at, expected %q", timeutil.DateTimeLayout)
	}

	if _, err := s.Clients.Get(ctx, req.ClientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "client"}
		}
		return nil, err
	}

	a := &models.Appointment{
		EngineerID:  req.EngineerID,
		ClientID:    req.ClientID,
		ScheduledAt: scheduledAt,
		Purpose:     strings.TrimSpace(req.Purpose),
		SiteAddress: strings.TrimSpace(req.SiteAddress),
		OTPPhone:    strings.TrimSpace(req.OTPPhone),
		Status:      models.AppointmentScheduled,
	}
	if err := s.Appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns appointments visible to the actor. Engineers only see
// their own.
func (s *AppointmentService) List(ctx context.Context, actorID int, actorRole, status string, limit, offset int) ([]*models.Appointment, int, error) {
	engineerID := 0
	if actorRole != models.RoleAdmin {
		engineerID = actorID
	}
	return s.Appointments.List(ctx, engineerID, status, limit, offset)
}

// Get returns one appointment after an ownership check
func (s *AppointmentService) Get(ctx context.Context, actorID int, actorRole string, id int) (*models.Appointment, error) {
	return s.load(ctx, actorID, actorRole, id)
}

// Cancel moves a non-terminal appointment to cancelled
func (s *AppointmentService) Cancel(ctx context.Context, actorID int, actorRole string, id int) error {
	a, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return err
	}
	if a.Terminal() {
		return &apperr.StatusConflictError{Msg: "appointment is already " + a.Status}
	}
	return s.Appointments.Cancel(ctx, id)
}

// SendOTP issues a fresh code to the appointment's contact phone and
// moves the appointment to otp_sent. State only mutates after the
// gateway reports delivery.
func (s *AppointmentService) SendOTP(ctx context.Context, actorID int, actorRole string, id int) (*models.Appointment, error) {
	return s.sendOTP(ctx, actorID, actorRole, id, false)
}

// ResendOTP is SendOTP behind a cooldown guard, with the failure path
// enriched from the delivery ledger.
func (s *AppointmentService) ResendOTP(ctx context.Context, actorID int, actorRole string, id int) (*models.Appointment, error) {
	return s.sendOTP(ctx, actorID, actorRole, id, true)
}

func (s *AppointmentService) sendOTP(ctx context.Context, actorID int, actorRole string, id int, resend bool) (*models.Appointment, error) {
	a, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if a.Terminal() {
		return nil, &apperr.StatusConflictError{Msg: "cannot send OTP for a " + a.Status + " appointment"}
	}
	if resend && a.OTPSentAt != nil {
		if elapsed := timeutil.Now().Sub(*a.OTPSentAt); elapsed < ResendCooldown {
			return nil, &apperr.RateLimitError{RetryAfter: ResendCooldown - elapsed}
		}
	}

	recipient, err := s.recipientPhone(ctx, a)
	if err != nil {
		return nil, err
	}

	code := otp.Generate(otp.CodeLength)
	delivery := s.SMS.SendOTP(ctx, recipient, code, otp.AppointmentExpiry)
	if !delivery.Delivered {
		detail := delivery.ErrorMessage
		if resend && s.SMSLogs != nil {
			if last, err := s.SMSLogs.LastFailedByPhoneSuffix(ctx, phone.Last10(recipient)); err == nil && last.ErrorMessage != "" {
				detail = last.ErrorMessage
			}
		}
		return nil, &apperr.DeliveryFailureError{Detail: detail}
	}

	// A send after verification does not regress the status.
	status := models.AppointmentOTPSent
	if a.Status == models.AppointmentVerified {
		status = a.Status
	}
	sentAt := timeutil.Now()
	expiresAt := otp.ExpiryFromNow(otp.AppointmentExpiry)
	if err := s.Appointments.SetOTP(ctx, id, code, sentAt, expiresAt, status); err != nil {
		return nil, err
	}

	a.OTP = code
	a.OTPSentAt = &sentAt
	a.OTPExpiresAt = &expiresAt
	a.OTPAttempts = 0
	a.Status = status
	return a, nil
}

// VerifyOTP checks an inline code. Check order is fixed: expiry, then
// the attempt cap, then the code itself. The cap fires on the third
// call (attempts already at 2) before any comparison, and a successful
// match still bumps the counter.
func (s *AppointmentService) VerifyOTP(ctx context.Context, actorID int, actorRole string, id int, code string) (*models.Appointment, error) {
	a, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if a.Terminal() {
		return nil, &apperr.StatusConflictError{Msg: "cannot verify a " + a.Status + " appointment"}
	}
	if a.OTPSentAt == nil || a.OTP == "" {
		return nil, &apperr.StatusConflictError{Msg: "no OTP has been sent for this appointment"}
	}
	if a.OTPExpiresAt == nil || otp.IsExpired(*a.OTPExpiresAt) {
		return nil, &apperr.OTPExpiredError{}
	}
	if a.OTPAttempts >= MaxOTPAttempts-1 {
		return nil, &apperr.OTPAttemptsExceededError{}
	}
	if code != a.OTP && code != otp.BypassCode {
		if err := s.Appointments.SetOTPAttempts(ctx, id, a.OTPAttempts+1); err != nil {
			return nil, err
		}
		metrics.OTPVerificationsTotal.WithLabelValues("appointment", "mismatch").Inc()
		return nil, &apperr.OTPMismatchError{AttemptsRemaining: (MaxOTPAttempts - 1) - a.OTPAttempts}
	}
	metrics.OTPVerificationsTotal.WithLabelValues("appointment", "success").Inc()

	now := timeutil.Now()
	if err := s.Appointments.MarkVerified(ctx, id, now, a.OTPAttempts+1); err != nil {
		return nil, err
	}
	a.Status = models.AppointmentVerified
	a.VerifiedAt = &now
	a.OTPAttempts++
	return a, nil
}

// IssueWidgetToken signs a short-lived token binding the contact phone
// to this appointment for the provider's hosted OTP widget.
func (s *AppointmentService) IssueWidgetToken(ctx context.Context, actorID int, actorRole string, id int) (string, error) {
	a, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return "", err
	}
	if a.Terminal() {
		return "", &apperr.StatusConflictError{Msg: "cannot start widget verification for a " + a.Status + " appointment"}
	}
	recipient, err := s.recipientPhone(ctx, a)
	if err != nil {
		return "", err
	}
	normalized, err := phone.Normalize(recipient)
	if err != nil {
		return "", apperr.Validation("invalid contact phone: %v", err)
	}
	return s.JWT.GenerateWidgetToken(normalized, a.ID, auth.PurposeAppointment, otp.AppointmentExpiry)
}

// VerifyWidgetToken finalizes the widget flow. The locally issued token
// is checked for shape and binding first; only then is the provider's
// access token verified, and only a provider-confirmed success marks
// the appointment verified.
func (s *AppointmentService) VerifyWidgetToken(ctx context.Context, actorID int, actorRole string, id int, req *models.WidgetVerifyRequest) (*models.Appointment, error) {
	a, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if a.Terminal() {
		return nil, &apperr.StatusConflictError{Msg: "cannot verify a " + a.Status + " appointment"}
	}

	claims, err := s.JWT.ValidateWidgetToken(req.Token)
	if err != nil {
		return nil, apperr.Validation("invalid widget token: %v", err)
	}
	if claims.Purpose != auth.PurposeAppointment || claims.EntityID != a.ID {
		return nil, apperr.Validation("widget token is not bound to this appointment")
	}

	if err := s.SMS.VerifyWidgetToken(ctx, req.AccessToken); err != nil {
		return nil, err
	}

	now := timeutil.Now()
	if err := s.Appointments.MarkVerified(ctx, id, now, a.OTPAttempts); err != nil {
		return nil, err
	}
	a.Status = models.AppointmentVerified
	a.VerifiedAt = &now
	return a, nil
}

// Complete signs off a verified appointment with client feedback
func (s *AppointmentService) Complete(ctx context.Context, actorID int, actorRole string, id int, feedback string) (*models.Appointment, error) {
	a, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.AppointmentVerified {
		return nil, &apperr.StatusConflictError{Msg: "appointment must be verified before completion"}
	}
	trimmed := strings.TrimSpace(feedback)
	if len(trimmed) < minFeedbackLength {
		return nil, apperr.Validation("feedback must be at least %d characters", minFeedbackLength)
	}
	if err := s.Appointments.Complete(ctx, id, trimmed); err != nil {
		return nil, err
	}
	a.Status = models.AppointmentCompleted
	a.Feedback = trimmed
	return a, nil
}

func (s *AppointmentService) load(ctx context.Context, actorID int, actorRole string, id int) (*models.Appointment, error) {
	a, err := s.Appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "appointment"}
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin && a.EngineerID != actorID {
		return nil, &apperr.AuthorizationError{Msg: "appointment belongs to another engineer"}
	}
	return a, nil
}

// recipientPhone resolves the OTP recipient: the appointment's override
// phone when set, else the client's primary contact. Blank is a
// validation error raised before the gateway is ever called.
func (s *AppointmentService) recipientPhone(ctx context.Context, a *models.Appointment) (string, error) {
	recipient := strings.TrimSpace(a.OTPPhone)
	if recipient == "" {
		client, err := s.Clients.Get(ctx, a.ClientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", &apperr.NotFoundError{Resource: "client"}
			}
			return "", err
		}
		recipient = strings.TrimSpace(client.Phone)
	}
	if recipient == "" {
		return "", apperr.Validation("no contact phone available for this appointment")
	}
	return recipient, nil
}
