package apperr

import (
	"fmt"
	"time"
)

// ValidationError signals missing or malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError signals that an entity id did not resolve.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// AuthorizationError signals that the actor does not own the entity
// or lacks the required role.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// StatusConflictError signals an operation invalid for the entity's
// current state.
type StatusConflictError struct {
	Msg string
}

func (e *StatusConflictError) Error() string { return e.Msg }

// RateLimitError signals that the resend cooldown has not elapsed.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another OTP", int(e.RetryAfter.Seconds()))
}

// OTPExpiredError signals that the stored OTP's validity window has passed.
type OTPExpiredError struct{}

func (e *OTPExpiredError) Error() string { return "OTP has expired, please request a new one" }

// OTPAttemptsExceededError signals that the verification attempt limit
// was reached.
type OTPAttemptsExceededError struct{}

func (e *OTPAttemptsExceededError) Error() string {
	return "maximum verification attempts exceeded, please request a new OTP"
}

// OTPMismatchError signals a wrong code. AttemptsRemaining is -1 for
// flows without an attempt limit.
type OTPMismatchError struct {
	AttemptsRemaining int
}

func (e *OTPMismatchError) Error() string {
	if e.AttemptsRemaining < 0 {
		return "invalid OTP code"
	}
	return fmt.Sprintf("invalid OTP code, %d attempts remaining", e.AttemptsRemaining)
}

// DeliveryFailureError signals that the SMS gateway could not deliver.
// Detail carries the last known provider error when available.
type DeliveryFailureError struct {
	Detail string
}

func (e *DeliveryFailureError) Error() string {
	if e.Detail == "" {
		return "failed to deliver OTP"
	}
	return "failed to deliver OTP: " + e.Detail
}

// ExternalVerificationError signals that the OTP provider rejected a
// widget token verification.
type ExternalVerificationError struct {
	ProviderMessage string
}

func (e *ExternalVerificationError) Error() string {
	if e.ProviderMessage == "" {
		return "provider verification failed"
	}
	return "provider verification failed: " + e.ProviderMessage
}
