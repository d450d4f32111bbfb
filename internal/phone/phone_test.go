package phone

import "testing"

func TestNormalizeTenDigit(t *testing.T) {
	cases := []string{"9876543210", "98765 43210", "98765-43210", "(98765)43210", "9198765432"}
	for _, in := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", in, err)
		}
		if len(got) != 12 {
			t.Fatalf("Normalize(%q) = %q, want 12 digits", in, got)
		}
		if got[:2] != CountryPrefix {
			t.Fatalf("Normalize(%q) = %q, want %s prefix", in, got, CountryPrefix)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize("919876543210")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("re-Normalize returned error: %v", err)
	}
	if first != second {
		t.Fatalf("Normalize not idempotent: %q != %q", first, second)
	}
}

func TestNormalizeLeadingZero(t *testing.T) {
	got, err := Normalize("09876543210")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got != "919876543210" {
		t.Fatalf("got %q, want 919876543210", got)
	}
}

func TestNormalizeTruncatesLongPrefixed(t *testing.T) {
	got, err := Normalize("9198765432109999")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got != "919876543210" {
		t.Fatalf("got %q, want truncation to first 12 digits", got)
	}
}

func TestNormalizeShortPrefixedFails(t *testing.T) {
	// Starts with the prefix but cannot contain a full number.
	if _, err := Normalize("91987654321"); err == nil {
		t.Fatal("expected error for 11-digit number starting with 91")
	}
}

func TestNormalizeFailures(t *testing.T) {
	for _, in := range []string{"", "abc", "12345", "12345678901234567"} {
		if _, err := Normalize(in); err == nil {
			t.Fatalf("Normalize(%q) should fail", in)
		}
	}
}

func TestNormalizeBestEffortPassThrough(t *testing.T) {
	// 13 digits, no recognized prefix: accepted as-is with a warning.
	got, err := Normalize("1234567890123")
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got != "1234567890123" {
		t.Fatalf("got %q, want pass-through", got)
	}
}

func TestLast10(t *testing.T) {
	if got := Last10("919876543210"); got != "9876543210" {
		t.Fatalf("Last10 = %q", got)
	}
	if got := Last10("98765"); got != "98765" {
		t.Fatalf("Last10 short = %q", got)
	}
}
