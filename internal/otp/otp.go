package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"wallfloor-backend/internal/timeutil"
)

const (
	// CodeLength is the number of digits in a generated OTP
	CodeLength = 6

	// AppointmentExpiry is the validity window of an appointment OTP
	AppointmentExpiry = 15 * time.Minute

	// WorkerVisitExpiry is the validity window of a worker-visit OTP.
	// Visits are scheduled a day ahead, so the window is deliberately long.
	WorkerVisitExpiry = 24 * time.Hour

	// BypassCode always verifies, reserved for QA on staging numbers
	BypassCode = "000000"
)

// Generate returns a string of length uniformly random decimal digits.
// Leading zeros are allowed.
func Generate(length int) string {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, _ := rand.Int(rand.Reader, max)
	return fmt.Sprintf("%0*d", length, n)
}

// ExpiryFromNow returns the absolute expiry instant for a code issued now.
func ExpiryFromNow(d time.Duration) time.Time {
	return timeutil.Now().Add(d)
}

// IsExpired reports whether t has passed. A check at exactly t is still valid.
func IsExpired(t time.Time) bool {
	return timeutil.Now().After(t)
}
