package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/models"
)

type memLogRepo struct {
	mu   sync.Mutex
	rows []*models.SMSLog
}

func (m *memLogRepo) Create(ctx context.Context, row *models.SMSLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

func newTestService(baseURL string) (*MSG91Service, *memLogRepo) {
	svc := NewMSG91Service("test-key", "WFSRVC", "4", "", "")
	svc.BaseURL = baseURL
	repo := &memLogRepo{}
	svc.SetLogRepository(repo)
	return svc, repo
}

func TestSendPlainSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/sendsms" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"type":"success","request_id":"req-1"}`))
	}))
	defer srv.Close()

	svc, repo := newTestService(srv.URL)
	d := svc.Send(context.Background(), "9876543210", "hello", models.SMSTypeAppointment)

	if !d.Delivered {
		t.Fatalf("expected delivery, got error %q", d.ErrorMessage)
	}
	if d.ReferenceID != "req-1" {
		t.Fatalf("reference id = %q", d.ReferenceID)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.Status != models.SMSStatusSent || row.Phone != "919876543210" {
		t.Fatalf("log row = %+v", row)
	}
}

func TestSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"error","message":"invalid authkey"}`))
	}))
	defer srv.Close()

	svc, repo := newTestService(srv.URL)
	d := svc.Send(context.Background(), "9876543210", "hello", models.SMSTypeAppointment)

	if d.Delivered {
		t.Fatal("expected failure")
	}
	if d.ErrorMessage != "invalid authkey" {
		t.Fatalf("error = %q", d.ErrorMessage)
	}
	if len(repo.rows) != 1 || repo.rows[0].Status != models.SMSStatusFailed {
		t.Fatalf("expected one failed log row, got %+v", repo.rows)
	}
}

func TestSendNetworkFailureNeverRaises(t *testing.T) {
	svc, repo := newTestService("http://127.0.0.1:1")
	d := svc.Send(context.Background(), "9876543210", "hello", models.SMSTypeAppointment)
	if d.Delivered {
		t.Fatal("expected failure")
	}
	if d.ErrorMessage == "" {
		t.Fatal("expected error detail")
	}
	if len(repo.rows) != 1 || repo.rows[0].Status != models.SMSStatusFailed {
		t.Fatal("network failure must still write a failed log row")
	}
}

func TestSendBlankPhoneDoesNotLog(t *testing.T) {
	svc, repo := newTestService("http://127.0.0.1:1")
	d := svc.Send(context.Background(), "", "hello", models.SMSTypeAppointment)
	if d.Delivered {
		t.Fatal("expected failure")
	}
	if len(repo.rows) != 0 {
		t.Fatal("blank recipient must short-circuit before logging")
	}
}

func TestSendMalformedPhoneLogsFailedRow(t *testing.T) {
	svc, repo := newTestService("http://127.0.0.1:1")
	d := svc.Send(context.Background(), "12345", "hello", models.SMSTypeAppointment)
	if d.Delivered {
		t.Fatal("expected failure")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.Status != models.SMSStatusFailed || row.ErrorMessage != "invalid phone number format" {
		t.Fatalf("log row = %+v", row)
	}
	// Original input is kept when normalization failed.
	if row.Phone != "12345" {
		t.Fatalf("log phone = %q", row.Phone)
	}
}

func TestSendFlowUsedWhenTemplateConfigured(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"type":"success"}`))
	}))
	defer srv.Close()

	svc, _ := newTestService(srv.URL)
	svc.FlowTemplateID = "tpl-123"
	d := svc.Send(context.Background(), "9876543210", "hello", models.SMSTypeAppointment)
	if !d.Delivered {
		t.Fatalf("expected delivery, got %q", d.ErrorMessage)
	}
	if gotPath != "/api/v5/flow/" {
		t.Fatalf("path = %q, want flow endpoint", gotPath)
	}
}

func TestSendOTPFallsBackToSMS(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/api/v5/otp") {
			w.Write([]byte(`{"type":"error","message":"template disabled"}`))
			return
		}
		w.Write([]byte(`{"type":"success","request_id":"req-2"}`))
	}))
	defer srv.Close()

	svc, repo := newTestService(srv.URL)
	svc.OTPTemplateID = "otp-tpl"
	d := svc.SendOTP(context.Background(), "9876543210", "482913", 15*time.Minute)

	if !d.Delivered {
		t.Fatalf("expected fallback delivery, got %q", d.ErrorMessage)
	}
	if len(paths) != 2 || paths[0] != "/api/v5/otp" || paths[1] != "/api/v2/sendsms" {
		t.Fatalf("paths = %v", paths)
	}
	// One ledger row per gateway call: the failed OTP attempt and the sent fallback.
	if len(repo.rows) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(repo.rows))
	}
	if repo.rows[0].Status != models.SMSStatusFailed || repo.rows[1].Status != models.SMSStatusSent {
		t.Fatalf("rows = %+v, %+v", repo.rows[0], repo.rows[1])
	}
	if !strings.Contains(repo.rows[1].Message, "482913") {
		t.Fatal("fallback message must contain the code verbatim")
	}
}

func TestSendOTPUsesOTPEndpointFirst(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasPrefix(r.URL.Path, "/api/v5/otp") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("otp") != "001234" {
			t.Errorf("otp query = %q", r.URL.Query().Get("otp"))
		}
		w.Write([]byte(`{"type":"success","request_id":"req-3"}`))
	}))
	defer srv.Close()

	svc, repo := newTestService(srv.URL)
	svc.OTPTemplateID = "otp-tpl"
	d := svc.SendOTP(context.Background(), "9876543210", "001234", 15*time.Minute)

	if !d.Delivered || calls != 1 {
		t.Fatalf("delivered=%v calls=%d", d.Delivered, calls)
	}
	if len(repo.rows) != 1 || repo.rows[0].MessageType != models.SMSTypeOTP {
		t.Fatalf("rows = %+v", repo.rows)
	}
}

func TestSendOTPWithoutTemplateUsesPlainPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/sendsms" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"type":"success"}`))
	}))
	defer srv.Close()

	svc, _ := newTestService(srv.URL)
	d := svc.SendOTP(context.Background(), "9876543210", "777777", 15*time.Minute)
	if !d.Delivered {
		t.Fatalf("expected delivery, got %q", d.ErrorMessage)
	}
}

func TestVerifyWidgetToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v5/widget/verifyAccessToken" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"type":"success"}`))
	}))
	defer srv.Close()

	svc, _ := newTestService(srv.URL)
	if err := svc.VerifyWidgetToken(context.Background(), "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyWidgetTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"error","message":"token already used"}`))
	}))
	defer srv.Close()

	svc, _ := newTestService(srv.URL)
	err := svc.VerifyWidgetToken(context.Background(), "tok")

	var extErr *apperr.ExternalVerificationError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalVerificationError, got %v", err)
	}
	if extErr.ProviderMessage != "token already used" {
		t.Fatalf("provider message = %q", extErr.ProviderMessage)
	}
}
