package funnel

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (234) 567-8901", "+12345678901"},
		{"998 90 123 45 67", "998901234567"},
		{"5551234567", "5551234567"},
		{" + 7 ( 9 0 1 ) ", "+7901"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"+12345678901", true},
		{"5551234567", true},
		{"998901234567", true},
		{"+123456789012345", true},
		{"12345", false},
		{"abc1234567890", false},
		{"+1234567890123456", false},
		{"", false},
		{"++12345678901", false},
	}
	for _, tc := range cases {
		if got := ValidPhone(tc.in); got != tc.valid {
			t.Errorf("ValidPhone(%q) = %v, want %v", tc.in, got, tc.valid)
		}
	}
}

func TestPhoneValidationIdempotent(t *testing.T) {
	norm := NormalizePhone("+1 (234) 567-8901")
	if !ValidPhone(norm) {
		t.Fatalf("first validation rejected %q", norm)
	}
	again := NormalizePhone(norm)
	if again != norm {
		t.Fatalf("re-normalization changed %q to %q", norm, again)
	}
	if !ValidPhone(again) {
		t.Fatalf("re-validation rejected %q", again)
	}
}
