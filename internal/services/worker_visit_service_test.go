package services

import (
	"context"
	"testing"
	"time"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkerVisitStore struct {
	visits map[int]*models.WorkerVisit
	nextID int
}

func newFakeWorkerVisitStore(visits ...*models.WorkerVisit) *fakeWorkerVisitStore {
	s := &fakeWorkerVisitStore{visits: map[int]*models.WorkerVisit{}, nextID: 1}
	for _, v := range visits {
		s.visits[v.ID] = v
		if v.ID >= s.nextID {
			s.nextID = v.ID + 1
		}
	}
	return s
}

func (s *fakeWorkerVisitStore) Create(ctx context.Context, v *models.WorkerVisit) error {
	v.ID = s.nextID
	s.nextID++
	stored := *v
	s.visits[v.ID] = &stored
	return nil
}

func (s *fakeWorkerVisitStore) Get(ctx context.Context, id int) (*models.WorkerVisit, error) {
	v, ok := s.visits[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *v
	return &copied, nil
}

func (s *fakeWorkerVisitStore) List(ctx context.Context, engineerID int, status string, limit, offset int) ([]*models.WorkerVisit, int, error) {
	var out []*models.WorkerVisit
	for _, v := range s.visits {
		if (engineerID == 0 || v.EngineerID == engineerID) && (status == "" || v.Status == status) {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

func (s *fakeWorkerVisitStore) SetOTP(ctx context.Context, id int, code string, sentAt, expiresAt time.Time, adminNotified bool) error {
	v := s.visits[id]
	v.OTP = code
	v.OTPSentAt = &sentAt
	v.OTPExpiresAt = &expiresAt
	v.AdminNotified = adminNotified
	return nil
}

func (s *fakeWorkerVisitStore) MarkVerified(ctx context.Context, id int, verifiedAt time.Time, workerCount int, remarks string) error {
	v := s.visits[id]
	v.Status = models.VisitOTPVerified
	v.VerifiedAt = &verifiedAt
	v.WorkerCount = workerCount
	v.Remarks = remarks
	return nil
}

type fakeUserStore struct {
	users map[int]*models.User
}

func (s *fakeUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type fakeSettingReader struct {
	values map[string]string
}

func (s *fakeSettingReader) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	value, ok := s.values[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.SystemSetting{SettingKey: key, SettingValue: value}, nil
}

func newVisitFixture() (*WorkerVisitService, *fakeWorkerVisitStore, *fakeSMS) {
	store := newFakeWorkerVisitStore()
	clients := &fakeClientStore{clients: map[int]*models.Client{
		clientID: {ID: clientID, Name: "Renu Sharma", Phone: "919876543210"},
	}}
	users := &fakeUserStore{users: map[int]*models.User{
		engineerID: {ID: engineerID, Role: models.RoleEngineer, IsActive: true},
	}}
	settings := &fakeSettingReader{values: map[string]string{
		models.SettingAdminPhone: "917000000001",
	}}
	gateway := newFakeSMS()
	svc := NewWorkerVisitService(store, clients, users, settings, gateway, newTestJWT(), "919999999999")
	return svc, store, gateway
}

func visitRequest() *models.CreateWorkerVisitRequest {
	return &models.CreateWorkerVisitRequest{
		EngineerID: engineerID,
		ClientID:   clientID,
		VisitDate:  timeutil.Now().Format(timeutil.DateLayout),
	}
}

func TestVisitCreateSendsToBothRecipients(t *testing.T) {
	svc, store, gateway := newVisitFixture()

	v, err := svc.Create(context.Background(), engineerID, models.RoleEngineer, visitRequest())
	require.NoError(t, err)

	assert.Equal(t, models.VisitPending, v.Status)
	assert.Len(t, v.OTP, 6)
	assert.True(t, v.AdminNotified)
	require.NotNil(t, v.OTPExpiresAt)
	assert.WithinDuration(t, timeutil.Now().Add(24*time.Hour), *v.OTPExpiresAt, 5*time.Second)

	// client gets the dedicated OTP path, admin gets a plain message
	assert.Equal(t, []string{"919876543210"}, gateway.otpCalls)
	assert.Equal(t, []string{"917000000001"}, gateway.plainCalls)
	assert.Contains(t, gateway.lastMessage, v.OTP, "admin message must carry the code verbatim")
	assert.Equal(t, models.SMSTypeAdminNotification, gateway.lastPlainType)
	assert.Equal(t, v.OTP, store.visits[v.ID].OTP)
}

func TestVisitCreateAdminPhoneFromEnvDefault(t *testing.T) {
	svc, _, gateway := newVisitFixture()
	svc.Settings = &fakeSettingReader{values: map[string]string{}}

	_, err := svc.Create(context.Background(), engineerID, models.RoleEngineer, visitRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"919999999999"}, gateway.plainCalls)
}

func TestVisitCreateAdminDeliverySoftFailure(t *testing.T) {
	svc, store, gateway := newVisitFixture()
	gateway.deliverPlain = false

	v, err := svc.Create(context.Background(), engineerID, models.RoleEngineer, visitRequest())
	require.NoError(t, err, "admin-side failure must not block the visit")
	assert.False(t, v.AdminNotified)
	assert.NotEmpty(t, store.visits[v.ID].OTP)
}

func TestVisitCreateClientDeliveryHardFailure(t *testing.T) {
	svc, store, gateway := newVisitFixture()
	gateway.deliverOTP = false

	_, err := svc.Create(context.Background(), engineerID, models.RoleEngineer, visitRequest())

	var dfe *apperr.DeliveryFailureError
	require.ErrorAs(t, err, &dfe)

	// the visit row exists for a later resend, but carries no OTP
	require.Len(t, store.visits, 1)
	for _, v := range store.visits {
		assert.Empty(t, v.OTP)
		assert.Nil(t, v.OTPSentAt)
	}
}

func TestVisitCreateBlankClientPhone(t *testing.T) {
	svc, store, gateway := newVisitFixture()
	svc.Clients = &fakeClientStore{clients: map[int]*models.Client{
		clientID: {ID: clientID, Phone: ""},
	}}

	_, err := svc.Create(context.Background(), engineerID, models.RoleEngineer, visitRequest())

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, gateway.otpCalls)
	assert.Empty(t, store.visits, "nothing is persisted when the client has no phone")
}

func TestVisitCreateEngineerSelfOnly(t *testing.T) {
	svc, _, _ := newVisitFixture()
	req := visitRequest()
	req.EngineerID = 42

	_, err := svc.Create(context.Background(), engineerID, models.RoleEngineer, req)
	var ae *apperr.AuthorizationError
	assert.ErrorAs(t, err, &ae)
}

func TestVisitCreateAdminRequiresActiveEngineer(t *testing.T) {
	svc, _, _ := newVisitFixture()
	svc.Users = &fakeUserStore{users: map[int]*models.User{
		engineerID: {ID: engineerID, Role: models.RoleEngineer, IsActive: false},
	}}

	_, err := svc.Create(context.Background(), 1, models.RoleAdmin, visitRequest())
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func seedVisit(store *fakeWorkerVisitStore, code string, expiresIn time.Duration) *models.WorkerVisit {
	sentAt := timeutil.Now().Add(-2 * time.Minute)
	expiresAt := timeutil.Now().Add(expiresIn)
	v := &models.WorkerVisit{
		ID:           1,
		EngineerID:   engineerID,
		ClientID:     clientID,
		VisitDate:    timeutil.Now(),
		OTP:          code,
		OTPSentAt:    &sentAt,
		OTPExpiresAt: &expiresAt,
		Status:       models.VisitPending,
	}
	store.visits[1] = v
	store.nextID = 2
	return v
}

func TestVisitVerifyBypassCode(t *testing.T) {
	svc, store, _ := newVisitFixture()
	seedVisit(store, "842913", 24*time.Hour)

	v, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.VerifyWorkerVisitOTPRequest{OTP: "000000", WorkerCount: 12, Remarks: "tiling crew"})
	require.NoError(t, err)

	assert.Equal(t, models.VisitOTPVerified, v.Status)
	assert.Equal(t, 12, v.WorkerCount)
	assert.Equal(t, "tiling crew", v.Remarks)
	assert.NotNil(t, v.VerifiedAt)
}

func TestVisitVerifyNoAttemptLimit(t *testing.T) {
	svc, store, _ := newVisitFixture()
	seedVisit(store, "842913", 24*time.Hour)
	ctx := context.Background()

	// any number of wrong codes is tolerated
	for i := 0; i < 5; i++ {
		_, err := svc.VerifyOTP(ctx, engineerID, models.RoleEngineer, 1,
			&models.VerifyWorkerVisitOTPRequest{OTP: "111111", WorkerCount: 4})
		var mismatch *apperr.OTPMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, -1, mismatch.AttemptsRemaining)
	}

	v, err := svc.VerifyOTP(ctx, engineerID, models.RoleEngineer, 1,
		&models.VerifyWorkerVisitOTPRequest{OTP: "842913", WorkerCount: 4})
	require.NoError(t, err)
	assert.Equal(t, models.VisitOTPVerified, v.Status)
}

func TestVisitVerifyExpired(t *testing.T) {
	svc, store, _ := newVisitFixture()
	seedVisit(store, "842913", -time.Second)

	_, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.VerifyWorkerVisitOTPRequest{OTP: "842913", WorkerCount: 4})
	var oee *apperr.OTPExpiredError
	assert.ErrorAs(t, err, &oee)
}

func TestVisitVerifyRequiresPositiveWorkerCount(t *testing.T) {
	svc, store, _ := newVisitFixture()
	seedVisit(store, "842913", 24*time.Hour)

	_, err := svc.VerifyOTP(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.VerifyWorkerVisitOTPRequest{OTP: "842913", WorkerCount: 0})
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestVisitResendCooldown(t *testing.T) {
	svc, store, _ := newVisitFixture()
	v := seedVisit(store, "842913", 24*time.Hour)
	sentAt := timeutil.Now().Add(-10 * time.Second)
	v.OTPSentAt = &sentAt

	_, err := svc.ResendOTP(context.Background(), engineerID, models.RoleEngineer, 1)
	var rle *apperr.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, rle.RetryAfter, 60*time.Second)
}

func TestVisitResendRejectsCompleted(t *testing.T) {
	svc, store, _ := newVisitFixture()
	v := seedVisit(store, "842913", 24*time.Hour)
	v.Status = models.VisitCompleted

	_, err := svc.ResendOTP(context.Background(), engineerID, models.RoleEngineer, 1)
	var sce *apperr.StatusConflictError
	assert.ErrorAs(t, err, &sce)
}

func TestVisitResendIssuesFreshCode(t *testing.T) {
	svc, store, gateway := newVisitFixture()
	seedVisit(store, "842913", 24*time.Hour)

	v, err := svc.ResendOTP(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)
	assert.NotEqual(t, "842913", v.OTP)
	assert.Equal(t, []string{"919876543210"}, gateway.otpCalls)
	assert.Equal(t, []string{"917000000001"}, gateway.plainCalls)
}

func TestVisitWidgetTokenRoundTrip(t *testing.T) {
	svc, store, gateway := newVisitFixture()
	seedVisit(store, "842913", 24*time.Hour)

	token, err := svc.IssueWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)

	v, err := svc.VerifyWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.WidgetVerifyWorkerVisitRequest{Token: token, AccessToken: "provider-token", WorkerCount: 8})
	require.NoError(t, err)
	assert.Equal(t, models.VisitOTPVerified, v.Status)
	assert.Equal(t, 8, v.WorkerCount)
	assert.Equal(t, 1, gateway.verifyCalls)
}

func TestVisitWidgetVerifyIDMismatch(t *testing.T) {
	svc, store, gateway := newVisitFixture()
	seedVisit(store, "842913", 24*time.Hour)
	other := &models.WorkerVisit{ID: 2, EngineerID: engineerID, ClientID: clientID, Status: models.VisitPending}
	store.visits[2] = other
	store.nextID = 3

	token, err := svc.IssueWidgetToken(context.Background(), engineerID, models.RoleEngineer, 2)
	require.NoError(t, err)

	_, err = svc.VerifyWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.WidgetVerifyWorkerVisitRequest{Token: token, AccessToken: "provider-token", WorkerCount: 8})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, gateway.verifyCalls)
}

func TestVisitWidgetTokenNotValidForAppointments(t *testing.T) {
	appointmentSvc, apptStore, _ := newAppointmentFixture(models.AppointmentOTPSent)
	setOTPState(apptStore.appointments[1], "123456", 0, 15*time.Minute)
	visitSvc, visitStore, _ := newVisitFixture()
	seedVisit(visitStore, "842913", 24*time.Hour)

	token, err := visitSvc.IssueWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1)
	require.NoError(t, err)

	// a visit token must not verify an appointment, even with a matching id
	_, err = appointmentSvc.VerifyWidgetToken(context.Background(), engineerID, models.RoleEngineer, 1,
		&models.WidgetVerifyRequest{Token: token, AccessToken: "provider-token"})
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}
