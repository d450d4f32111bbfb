package services

import (
	"context"
	"errors"
	"fmt"
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

// WorkerVisitStore is the persistence surface the worker-visit state
// machine needs. *repositories.WorkerVisitRepository satisfies it.
type WorkerVisitStore interface {
	Create(ctx context.Context, w *models.WorkerVisit) error
	Get(ctx context.Context, id int) (*models.WorkerVisit, error)
	List(ctx context.Context, engineerID int, status string, limit, offset int) ([]*models.WorkerVisit, int, error)
	SetOTP(ctx context.Context, id int, code string, sentAt, expiresAt time.Time, adminNotified bool) error
	MarkVerified(ctx context.Context, id int, verifiedAt time.Time, workerCount int, remarks string) error
}

// UserStore resolves engineer accounts for visit assignment
type UserStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

// SettingReader resolves a single keyed configuration value
type SettingReader interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
}

type WorkerVisitService struct {
	Visits   WorkerVisitStore
	Clients  ClientStore
	Users    UserStore
	Settings SettingReader
	SMS      sms.Provider
	JWT      *auth.JWTManager

	// DefaultAdminPhone is the fallback when the admin_phone setting
	// is absent.
	DefaultAdminPhone string
}

func NewWorkerVisitService(
	visits WorkerVisitStore,
	clients ClientStore,
	users UserStore,
	settings SettingReader,
	smsProvider sms.Provider,
	jwtManager *auth.JWTManager,
	defaultAdminPhone string,
) *WorkerVisitService {
	return &WorkerVisitService{
		Visits:            visits,
		Clients:           clients,
		Users:             users,
		Settings:          settings,
		SMS:               smsProvider,
		JWT:               jwtManager,
		DefaultAdminPhone: defaultAdminPhone,
	}
}

// Create opens a visit and immediately issues its OTP to two
// recipients: the client (hard precondition) and the configured admin
// phone (best effort, tracked via admin_notified). The visit row is
// persisted even when delivery fails, so a later resend can retry.
func (s *WorkerVisitService) Create(ctx context.Context, actorID int, actorRole string, req *models.CreateWorkerVisitRequest) (*models.WorkerVisit, error) {
	engineerID := req.EngineerID
	if actorRole != models.RoleAdmin {
		if engineerID != 0 && engineerID != actorID {
			return nil, &apperr.AuthorizationError{Msg: "engineers can only create visits for themselves"}
		}
		engineerID = actorID
	} else {
		engineer, err := s.Users.Get(ctx, engineerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &apperr.NotFoundError{Resource: "engineer"}
			}
			return nil, err
		}
		if !engineer.IsActive {
			return nil, apperr.Validation("engineer account is inactive")
		}
	}

	if req.ClientID <= 0 {
		return nil, apperr.Validation("client_id is required")
	}
	visitDate, err := time.ParseInLocation(timeutil.DateLayout, req.VisitDate, timeutil.IST)
	if err != nil {
		return nil, apperr.Validation("invalid visit_date, expected %q", timeutil.DateLayout)
	}

	clientPhone, err := s.clientPhone(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	v := &models.WorkerVisit{
		EngineerID:  engineerID,
		ClientID:    req.ClientID,
		VisitDate:   visitDate,
		SiteAddress: strings.TrimSpace(req.SiteAddress),
		Status:      models.VisitPending,
	}
	if err := s.Visits.Create(ctx, v); err != nil {
		return nil, err
	}

	if err := s.issueOTP(ctx, v, clientPhone); err != nil {
		return nil, err
	}
	return v, nil
}

// ResendOTP regenerates and redelivers the visit code to both
// recipients, behind the shared cooldown.
func (s *WorkerVisitService) ResendOTP(ctx context.Context, actorID int, actorRole string, id int) (*models.WorkerVisit, error) {
	v, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if v.Status == models.VisitCompleted {
		return nil, &apperr.StatusConflictError{Msg: "visit is already completed"}
	}
	if v.OTPSentAt != nil {
		if elapsed := timeutil.Now().Sub(*v.OTPSentAt); elapsed < ResendCooldown {
			return nil, &apperr.RateLimitError{RetryAfter: ResendCooldown - elapsed}
		}
	}

	clientPhone, err := s.clientPhone(ctx, v.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.issueOTP(ctx, v, clientPhone); err != nil {
		return nil, err
	}
	return v, nil
}

// VerifyOTP checks an inline code and records the head-count. Visits
// have no attempt cap: a wrong code can be retried until the code
// expires.
func (s *WorkerVisitService) VerifyOTP(ctx context.Context, actorID int, actorRole string, id int, req *models.VerifyWorkerVisitOTPRequest) (*models.WorkerVisit, error) {
	v, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if v.Status == models.VisitCompleted {
		return nil, &apperr.StatusConflictError{Msg: "visit is already completed"}
	}
	if v.OTPSentAt == nil || v.OTP == "" {
		return nil, &apperr.StatusConflictError{Msg: "no OTP has been sent for this visit"}
	}
	if req.WorkerCount <= 0 {
		return nil, apperr.Validation("worker_count must be positive")
	}
	if v.OTPExpiresAt == nil || otp.IsExpired(*v.OTPExpiresAt) {
		return nil, &apperr.OTPExpiredError{}
	}
	if req.OTP != v.OTP && req.OTP != otp.BypassCode {
		metrics.OTPVerificationsTotal.WithLabelValues("worker_visit", "mismatch").Inc()
		return nil, &apperr.OTPMismatchError{AttemptsRemaining: -1}
	}
	metrics.OTPVerificationsTotal.WithLabelValues("worker_visit", "success").Inc()

	return s.markVerified(ctx, v, req.WorkerCount, req.Remarks)
}

// IssueWidgetToken signs a 24-hour token binding the client phone to
// this visit for the provider's hosted OTP widget.
func (s *WorkerVisitService) IssueWidgetToken(ctx context.Context, actorID int, actorRole string, id int) (string, error) {
	v, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return "", err
	}
	if v.Status == models.VisitCompleted {
		return "", &apperr.StatusConflictError{Msg: "visit is already completed"}
	}
	normalized, err := s.normalizedClientPhone(ctx, v.ClientID)
	if err != nil {
		return "", err
	}
	return s.JWT.GenerateWidgetToken(normalized, v.ID, auth.PurposeWorkerVisit, otp.WorkerVisitExpiry)
}

// VerifyWidgetToken finalizes the widget flow: local binding check
// first, then the provider round-trip, then the same head-count
// recording as the inline path.
func (s *WorkerVisitService) VerifyWidgetToken(ctx context.Context, actorID int, actorRole string, id int, req *models.WidgetVerifyWorkerVisitRequest) (*models.WorkerVisit, error) {
	v, err := s.load(ctx, actorID, actorRole, id)
	if err != nil {
		return nil, err
	}
	if v.Status == models.VisitCompleted {
		return nil, &apperr.StatusConflictError{Msg: "visit is already completed"}
	}
	if req.WorkerCount <= 0 {
		return nil, apperr.Validation("worker_count must be positive")
	}

	claims, err := s.JWT.ValidateWidgetToken(req.Token)
	if err != nil {
		return nil, apperr.Validation("invalid widget token: %v", err)
	}
	if claims.Purpose != auth.PurposeWorkerVisit || claims.EntityID != v.ID {
		return nil, apperr.Validation("widget token is not bound to this visit")
	}

	if err := s.SMS.VerifyWidgetToken(ctx, req.AccessToken); err != nil {
		return nil, err
	}

	return s.markVerified(ctx, v, req.WorkerCount, req.Remarks)
}

// List returns visits visible to the actor
func (s *WorkerVisitService) List(ctx context.Context, actorID int, actorRole, status string, limit, offset int) ([]*models.WorkerVisit, int, error) {
	engineerID := 0
	if actorRole != models.RoleAdmin {
		engineerID = actorID
	}
	return s.Visits.List(ctx, engineerID, status, limit, offset)
}

// Get returns one visit after an ownership check
func (s *WorkerVisitService) Get(ctx context.Context, actorID int, actorRole string, id int) (*models.WorkerVisit, error) {
	return s.load(ctx, actorID, actorRole, id)
}

// issueOTP generates a fresh code, delivers it to the client and the
// admin phone, and persists the OTP fields only when the client-side
// delivery succeeded.
func (s *WorkerVisitService) issueOTP(ctx context.Context, v *models.WorkerVisit, clientPhone string) error {
	code := otp.Generate(otp.CodeLength)
	delivery := s.SMS.SendOTP(ctx, clientPhone, code, otp.WorkerVisitExpiry)
	if !delivery.Delivered {
		return &apperr.DeliveryFailureError{Detail: delivery.ErrorMessage}
	}

	adminNotified := false
	if adminPhone := s.adminPhone(ctx); adminPhone != "" {
		message := fmt.Sprintf(
			"WallFloor worker visit #%d: verification code %s was sent to the client. Valid for %d hours.",
			v.ID, code, int(otp.WorkerVisitExpiry.Hours()))
		adminDelivery := s.SMS.Send(ctx, adminPhone, message, models.SMSTypeAdminNotification)
		adminNotified = adminDelivery.Delivered
	}

	sentAt := timeutil.Now()
	expiresAt := otp.ExpiryFromNow(otp.WorkerVisitExpiry)
	if err := s.Visits.SetOTP(ctx, v.ID, code, sentAt, expiresAt, adminNotified); err != nil {
		return err
	}

	v.OTP = code
	v.OTPSentAt = &sentAt
	v.OTPExpiresAt = &expiresAt
	v.AdminNotified = adminNotified
	return nil
}

func (s *WorkerVisitService) markVerified(ctx context.Context, v *models.WorkerVisit, workerCount int, remarks string) (*models.WorkerVisit, error) {
	now := timeutil.Now()
	trimmed := strings.TrimSpace(remarks)
	if err := s.Visits.MarkVerified(ctx, v.ID, now, workerCount, trimmed); err != nil {
		return nil, err
	}
	v.Status = models.VisitOTPVerified
	v.VerifiedAt = &now
	v.WorkerCount = workerCount
	v.Remarks = trimmed
	return v, nil
}

func (s *WorkerVisitService) load(ctx context.Context, actorID int, actorRole string, id int) (*models.WorkerVisit, error) {
	v, err := s.Visits.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "worker visit"}
		}
		return nil, err
	}
	if actorRole != models.RoleAdmin && v.EngineerID != actorID {
		return nil, &apperr.AuthorizationError{Msg: "visit belongs to another engineer"}
	}
	return v, nil
}

func (s *WorkerVisitService) clientPhone(ctx context.Context, clientID int) (string, error) {
	client, err := s.Clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &apperr.NotFoundError{Resource: "client"}
		}
		return "", err
	}
	p := strings.TrimSpace(client.Phone)
	if p == "" {
		return "", apperr.Validation("client has no contact phone")
	}
	return p, nil
}

func (s *WorkerVisitService) normalizedClientPhone(ctx context.Context, clientID int) (string, error) {
	raw, err := s.clientPhone(ctx, clientID)
	if err != nil {
		return "", err
	}
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return "", apperr.Validation("invalid client phone: %v", err)
	}
	return normalized, nil
}

// adminPhone reads the configured admin notification number, falling
// back to the environment default.
func (s *WorkerVisitService) adminPhone(ctx context.Context) string {
	if s.Settings != nil {
		if setting, err := s.Settings.Get(ctx, models.SettingAdminPhone); err == nil && strings.TrimSpace(setting.SettingValue) != "" {
			return strings.TrimSpace(setting.SettingValue)
		}
	}
	return strings.TrimSpace(s.DefaultAdminPhone)
}
