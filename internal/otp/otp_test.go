package otp

import (
	"testing"
	"time"

	"wallfloor-backend/internal/timeutil"
)

func TestGenerateLengthAndDigits(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code := Generate(length)
		if len(code) != length {
			t.Fatalf("Generate(%d) = %q, wrong length", length, code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("Generate(%d) = %q contains non-digit", length, code)
			}
		}
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seen[Generate(CodeLength)] = true
	}
	if len(seen) < 2 {
		t.Fatal("Generate returned the same code 20 times")
	}
}

func TestIsExpiredBoundary(t *testing.T) {
	future := timeutil.Now().Add(time.Hour)
	if IsExpired(future) {
		t.Fatal("future timestamp reported expired")
	}
	past := timeutil.Now().Add(-time.Millisecond)
	if !IsExpired(past) {
		t.Fatal("past timestamp reported valid")
	}
}

func TestExpiryFromNow(t *testing.T) {
	exp := ExpiryFromNow(AppointmentExpiry)
	d := exp.Sub(timeutil.Now())
	if d > AppointmentExpiry || d < AppointmentExpiry-time.Second {
		t.Fatalf("ExpiryFromNow off by too much: %v", d)
	}
}
