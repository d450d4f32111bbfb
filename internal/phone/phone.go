package phone

import (
	"errors"
	"log"
	"strings"
)

// CountryPrefix is the national dialing prefix for India
const CountryPrefix = "91"

// canonical length: "91" + 10 digit mobile number
const canonicalLen = 12

// ErrInvalidFormat is returned when a phone number cannot be normalized
var ErrInvalidFormat = errors.New("invalid phone number format")

// Normalize canonicalizes heterogeneous phone input into a 12-digit
// country-code-qualified numeric string ("91" + 10 digits).
// It is a pure mapping: every input yields either a canonical string
// or ErrInvalidFormat, never a panic.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
		}
	}
	digits := b.String()

	if digits == "" {
		return "", ErrInvalidFormat
	}

	// Exactly 10 digits is always a national number, even when it happens
	// to start with "91" (e.g. 9198765432 is a real mobile number).
	if len(digits) == 10 {
		return CountryPrefix + digits, nil
	}

	if strings.HasPrefix(digits, CountryPrefix) {
		switch {
		case len(digits) == canonicalLen:
			return digits, nil
		case len(digits) > canonicalLen:
			// Lossy but deterministic: extra trailing digits are dropped.
			return digits[:canonicalLen], nil
		default:
			// Prefix present but too short to contain a full number.
			return "", ErrInvalidFormat
		}
	}

	// 0-prefixed national format (e.g. 09876543210)
	if len(digits) == 11 && digits[0] == '0' {
		return CountryPrefix + digits[1:], nil
	}

	// Best effort for odd lengths that still look like phone numbers.
	if len(digits) >= 11 && len(digits) <= 13 {
		if len(digits) == 11 && digits[0] == '0' {
			digits = digits[1:]
		}
		log.Printf("[Phone] accepting non-standard number %s (len %d)", digits, len(digits))
		return digits, nil
	}

	return "", ErrInvalidFormat
}

// Last10 returns the trailing 10 digits of a number, used to match
// delivery log rows regardless of prefix form.
func Last10(number string) string {
	var b strings.Builder
	for _, c := range number {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
		}
	}
	digits := b.String()
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}
