package services

import (
	"context"
	"testing"
	"time"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/auth"
	"wallfloor-backend/internal/config"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/sms"
	"wallfloor-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes shared by the state-machine tests ---

type fakeAppointmentStore struct {
	appointments map[int]*models.Appointment
	nextID       int
}

func newFakeAppointmentStore(appointments ...*models.Appointment) *fakeAppointmentStore {
	s := &fakeAppointmentStore{appointments: map[int]*models.Appointment{}, nextID: 1}
	for _, a := range appointments {
		s.appointments[a.ID] = a
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	return s
}

func (s *fakeAppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	a.ID = s.nextID
	s.nextID++
	s.appointments[a.ID] = a
	return nil
}

func (s *fakeAppointmentStore) Get(ctx context.Context, id int) (*models.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAppointmentStore) List(ctx context.Context, engineerID int, status string, limit, offset int) ([]*models.Appointment, int, error) {
	var out []*models.Appointment
	for _, a := range s.appointments {
		if (engineerID == 0 || a.EngineerID == engineerID) && (status == "" || a.Status == status) {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (s *fakeAppointmentStore) SetOTP(ctx context.Context, id int, code string, sentAt, expiresAt time.Time, status string) error {
	a := s.appointments[id]
	a.OTP = code
	a.OTPSentAt = &sentAt
	a.OTPExpiresAt = &expiresAt
	a.OTPAttempts = 0
	a.Status = status
	return nil
}

func (s *fakeAppointmentStore) SetOTPAttempts(ctx context.Context, id, attempts int) error {
	s.appointments[id].OTPAttempts = attempts
	return nil
}

func (s *fakeAppointmentStore) MarkVerified(ctx context.Context, id int, verifiedAt time.Time, attempts int) error {
	a := s.appointments[id]
	a.Status = models.AppointmentVerified
	a.VerifiedAt = &verifiedAt
	a.OTPAttempts = attempts
	return nil
}

func (s *fakeAppointmentStore) Complete(ctx context.Context, id int, feedback string) error {
	a := s.appointments[id]
	a.Status = models.AppointmentCompleted
	a.Feedback = feedback
	return nil
}

func (s *fakeAppointmentStore) Cancel(ctx context.Context, id int) error {
	s.appointments[id].Status = models.AppointmentCancelled
	return nil
}

type fakeClientStore struct {
	clients map[int]*models.Client
}

func (s *fakeClientStore) Get(ctx context.Context, id int) (*models.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

// fakeSMS implements sms.Provider with scripted outcomes
type fakeSMS struct {
	deliverOTP    bool
	deliverPlain  bool
	otpError      string
	verifyErr     error
	otpCalls      []string // recipients of SendOTP
	plainCalls    []string // recipients of Send
	lastCode      string
	lastMessage   string
	verifyCalls   int
	lastValidFor  time.Duration
	lastPlainType string
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{deliverOTP: true, deliverPlain: true}
}

func (f *fakeSMS) Send(ctx context.Context, recipient, message, messageType string) sms.Delivery {
	f.plainCalls = append(f.plainCalls, recipient)
	f.lastMessage = message
	f.lastPlainType = messageType
	if !f.deliverPlain {
		return sms.Delivery{ErrorMessage: "plain delivery failed"}
	}
	return sms.Delivery{Delivered: true, ReferenceID: "ref-plain"}
}

func (f *fakeSMS) SendOTP(ctx context.Context, recipient, code string, validFor time.Duration) sms.Delivery {
	f.otpCalls = append(f.otpCalls, recipient)
	f.lastCode = code
	f.lastValidFor = validFor
	if !f.deliverOTP {
		msg := f.otpError
		if msg == "" {
			msg = "otp delivery failed"
		}
		return sms.Delivery{ErrorMessage: msg}
	}
	return sms.Delivery{Delivered: true, ReferenceID: "ref-otp"}
}

func (f *fakeSMS) VerifyWidgetToken(ctx context.Context, accessToken string) error {
	f.verifyCalls++
	return f.verifyErr
}

func (f *fakeSMS) SetLogRepository(repo sms.SMSLogRepo) {}

type fakeFailedSMSFinder struct {
	log *models.SMSLog
}

func (f *fakeFailedSMSFinder) LastFailedByPhoneSuffix(ctx context.Context, last10 string) (*models.SMSLog, error) {
	if f.log == nil {
		return nil, pgx.ErrNoRows
	}
	return f.log, nil
}

func newTestJWT() *auth.JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "wallfloor-test"
	return auth.NewJWTManager(cfg)
}

const (
	engineerID = 7
	clientID   = 3
)

func newAppointmentFixture(status string) (*AppointmentService, *fakeAppointmentStore, *fakeSMS) {
	store := newFakeAppointmentStore(&models.Appointment{
		ID:         1,
		EngineerID: engineerID,
		ClientID:   clientID,
		Status:     status,
	})
	clients := &fakeClientStore{clients: map[int]*models.Client{
		clientID: {ID: clientID, Name: "Renu Sharma", Phone: "919876543210"},
	}}
	gateway := newFakeSMS()
	svc := NewAppointmentService(store, clients, gateway, &fakeFailedSMSFinder{}, newTestJWT())
	return svc, store, gateway
}

func TestAppointmentSendOTP(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentScheduled)

	a, err := svc.SendOTP(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)

	assert.Equal(t, models.AppointmentOTPSent, a.Status)
	assert.Equal(t, 0, a.OTPAttempts)
	assert.Len(t, a.OTP, 6)
	require.NotNil(t, a.OTPExpiresAt)
	assert.WithinDuration(t, timeutil.Now().Add(15*time.Minute), *a.OTPExpiresAt, 5*time.Second)

	stored := store.appointments[1]
	assert.Equal(t, a.OTP, stored.OTP)
	assert.Equal(t, []string{"919876543210"}, gateway.otpCalls)
	assert.Equal(t, 15*time.Minute, gateway.lastValidFor)
}

func TestAppointmentSendOTPUsesOverridePhone(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentScheduled)
	store.appointments[1].OTPPhone = "8765432109"

	_, err := svc.SendOTP(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"8765432109"}, gateway.otpCalls)
}

func TestAppointmentSendOTPBlankPhone(t *testing.T) {
	svc, _, gateway := newAppointmentFixture(models.AppointmentScheduled)
	svc.Clients = &fakeClientStore{clients: map[int]*models.Client{
		clientID: {ID: clientID, Name: "No Phone", Phone: "  "},
	}}

	_, err := svc.SendOTP(context.Background(), engineerID, models.RoleEngineer, 1)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, gateway.otpCalls, "gateway must not be called for a blank phone")
}

func TestAppointmentSendOTPDeliveryFailure(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentScheduled)
	gateway.deliverOTP = false
	gateway.deliverPlain = false
	gateway.otpError = "provider timeout"

	_, err := svc.SendOTP(context.Background(), engineerID, models.RoleEngineer, 1)

	var dfe *apperr.DeliveryFailureError
	require.ErrorAs(t, err, &dfe)
	assert.Contains(t, dfe.Detail, "provider timeout")

	stored := store.appointments[1]
	assert.Equal(t, models.AppointmentScheduled, stored.Status, "state must not mutate on delivery failure")
	assert.Empty(t, stored.OTP)
}

func TestAppointmentSendOTPTerminalStatus(t *testing.T) {
	for _, status := range []string{models.AppointmentCompleted, models.AppointmentCancelled} {
		svc, _, _ := newAppointmentFixture(status)
		_, err := svc.SendOTP(context.Background(), engineerID, models.RoleEngineer, 1)

		var sce *apperr.StatusConflictError
		assert.ErrorAs(t, err, &sce, "status %s", status)
	}
}

func TestAppointmentSendOTPOwnership(t *testing.T) {
	svc, _, _ := newAppointmentFixture(models.AppointmentScheduled)

	_, err := svc.SendOTP(context.Background(), 99, models.RoleEngineer, 1)
	var ae *apperr.AuthorizationError
	require.ErrorAs(t, err, &ae)

	// admins bypass the ownership check
	_, err = svc.SendOTP(context.Background(), 99, models.RoleAdmin, 1)
	assert.NoError(t, err)
}

func TestAppointmentResendCooldown(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentOTPSent)
	sentAt := timeutil.Now().Add(-30 * time.Second)
	store.appointments[1].OTPSentAt = &sentAt
	store.appointments[1].OTP = "123456"

	_, err := svc.ResendOTP(context.Background(), engineerID, models.RoleEngineer, 1)

	var rle *apperr.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rle.RetryAfter, 60*time.Second)
}

func TestAppointmentResendAfterCooldown(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentOTPSent)
	sentAt := timeutil.Now().Add(-2 * time.Minute)
	store.appointments[1].OTPSentAt = &sentAt
	store.appointments[1].OTP = "123456"

	a, err := svc.ResendOTP(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)
	assert.NotEqual(t, "123456", a.OTP, "resend must issue a fresh code")
	assert.Equal(t, 0, a.OTPAttempts)
}

func TestAppointmentResendFailureEnrichedFromLedger(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentOTPSent)
	sentAt := timeutil.Now().Add(-2 * time.Minute)
	store.appointments[1].OTPSentAt = &sentAt
	gateway.deliverOTP = false
	gateway.deliverPlain = false
	svc.SMSLogs = &fakeFailedSMSFinder{log: &models.SMSLog{
		Phone:        "919876543210",
		Status:       models.SMSStatusFailed,
		ErrorMessage: "DND number blocked by operator",
	}}

	_, err := svc.ResendOTP(context.Background(), engineerID, models.RoleEngineer, 1)

	var dfe *apperr.DeliveryFailureError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, "DND number blocked by operator", dfe.Detail)
}

func setOTPState(a *models.Appointment, code string, attempts int, expiresIn time.Duration) {
	sentAt := timeutil.Now().Add(-time.Minute)
	expiresAt := timeutil.Now().Add(expiresIn)
	a.OTP = code
	a.OTPSentAt = &sentAt
	a.OTPExpiresAt = &expiresAt
	a.OTPAttempts = attempts
	a.Status = models.AppointmentOTPSent
}

func TestAppointmentVerifyNoOTPSent(t *testing.T) {
	svc, _, _ := newAppointmentFixture(models.AppointmentScheduled)

	_, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1, "123456")
	var sce *apperr.StatusConflictError
	assert.ErrorAs(t, err, &sce)
}

func TestAppointmentVerifyExpired(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(store.appointments[1], "123456", 0, -time.Second)

	_, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1, "123456")
	var oee *apperr.OTPExpiredError
	assert.ErrorAs(t, err, &oee)
}

func TestAppointmentVerifyThreeWrongThenCorrect(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(store.appointments[1], "123456", 0, 15*time.Minute)
	ctx := context.Background()

	// first wrong code: attempts 0 -> 1, two attempts remaining
	_, err := svc.VerifyOTP(ctx, engineerID, models.RoleEngineer, 1, "000001")
	var mismatch *apperr.OTPMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.AttemptsRemaining)
	assert.Equal(t, 1, store.appointments[1].OTPAttempts)

	// second wrong code: attempts 1 -> 2, one attempt remaining
	_, err = svc.VerifyOTP(ctx, engineerID, models.RoleEngineer, 1, "000002")
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.AttemptsRemaining)
	assert.Equal(t, 2, store.appointments[1].OTPAttempts)

	// third call fails before the code is even compared
	_, err = svc.VerifyOTP(ctx, engineerID, models.RoleEngineer, 1, "000003")
	var exceeded *apperr.OTPAttemptsExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 2, store.appointments[1].OTPAttempts, "the guard must not increment")

	// a fourth call with the correct code is also rejected
	_, err = svc.VerifyOTP(ctx, engineerID, models.RoleEngineer, 1, "123456")
	assert.ErrorAs(t, err, &exceeded)
	assert.Equal(t, models.AppointmentOTPSent, store.appointments[1].Status)
}

func TestAppointmentVerifySuccessIncrementsAttempts(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(store.appointments[1], "123456", 1, 15*time.Minute)

	a, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentVerified, a.Status)
	assert.NotNil(t, a.VerifiedAt)
	assert.Equal(t, 2, store.appointments[1].OTPAttempts, "success still bumps the counter")
}

func TestAppointmentVerifyBypassCode(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(store.appointments[1], "123456", 0, 15*time.Minute)

	a, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1, "000000")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentVerified, a.Status)
}

func TestAppointmentWidgetTokenRoundTrip(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(store.appointments[1], "123456", 0, 15*time.Minute)

	token, err := svc.IssueWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	a, err := svc.VerifyWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.WidgetVerifyRequest{Token: token, AccessToken: "provider-token"})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentVerified, a.Status)
	assert.Equal(t, 1, gateway.verifyCalls)
}

func TestAppointmentWidgetVerifyIDMismatch(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentOTPSent)
	other := &models.Appointment{ID: 2, EngineerID: engineerID, ClientID: clientID, Status: models.AppointmentOTPSent}
	store.appointments[2] = other

	token, err := svc.IssueWidgetToken(context.Background(), engineerID, models.RoleEngineer, 2)
	require.NoError(t, err)

	_, err = svc.VerifyWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.WidgetVerifyRequest{Token: token, AccessToken: "provider-token"})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, gateway.verifyCalls, "mismatch must be rejected before the provider round-trip")
}

func TestAppointmentWidgetVerifyProviderRejection(t *testing.T) {
	svc, store, gateway := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(store.appointments[1], "123456", 0, 15*time.Minute)
	gateway.verifyErr = &apperr.ExternalVerificationError{ProviderMessage: "token already consumed"}

	token, err := svc.IssueWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)

	_, err = svc.VerifyWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.WidgetVerifyRequest{Token: token, AccessToken: "provider-token"})

	var eve *apperr.ExternalVerificationError
	require.ErrorAs(t, err, &eve)
	assert.Equal(t, "token already consumed", eve.ProviderMessage)
	assert.Equal(t, models.AppointmentOTPSent, store.appointments[1].Status)
}

func TestAppointmentComplete(t *testing.T) {
	svc, store, _ := newAppointmentFixture(models.AppointmentVerified)

	_, err := svc.Complete(context.Background(), engineerID, models.RoleEngineer, 1, "  short  ")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	a, err := svc.Complete(context.Background(), engineerID, models.RoleEngineer, 1, "  Flooring laid and client satisfied.  ")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, a.Status)
	assert.Equal(t, "Flooring laid and client satisfied.", a.Feedback)
	assert.Equal(t, models.AppointmentCompleted, store.appointments[1].Status)
}

func TestAppointmentCompleteRequiresVerified(t *testing.T) {
	svc, _, _ := newAppointmentFixture(models.AppointmentOTPSent)

	_, err := svc.Complete(context.Background(), engineerID, models.RoleEngineer, 1, "long enough feedback text")
	var sce *apperr.StatusConflictError
	assert.ErrorAs(t, err, &sce)
}

func TestAppointmentNotFound(t *testing.T) {
	svc, _, _ := newAppointmentFixture(models.AppointmentScheduled)

	_, err := svc.Get(context.Background(), engineerID, models.RoleEngineer, 42)
	var nfe *apperr.NotFoundError
	assert.ErrorAs(t, err, &nfe)
}
