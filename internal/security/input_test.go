package security

import (
	"strings"
	"testing"
)

func TestValidateRequiredFields(t *testing.T) {
	data := map[string]any{
		"name":  "  ",
		"email": "a@b.com",
	}
	errs := ValidateRequiredFields(data, []string{"name", "email", "phone"})

	if _, ok := errs["name"]; !ok {
		t.Error("expected whitespace-only field to be flagged")
	}
	if _, ok := errs["email"]; ok {
		t.Error("did not expect populated field to be flagged")
	}
	if _, ok := errs["phone"]; !ok {
		t.Error("expected missing field to be flagged")
	}
}

func TestValidateFieldLength(t *testing.T) {
	rules := map[string]FieldLengthRule{
		"name": {MinLength: 3, MaxLength: 5},
	}
	cases := map[string]bool{
		"ab":     true,
		"abc":    false,
		"abcde":  false,
		"abcdef": true,
	}
	for value, wantErr := range cases {
		errs := ValidateFieldLength(map[string]any{"name": value}, rules)
		if _, got := errs["name"]; got != wantErr {
			t.Errorf("ValidateFieldLength(%q) error presence = %v, want %v", value, got, wantErr)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "jane.doe+tag@example.co.uk"}
	invalid := []string{"not-an-email", "@missing-local.com", "missing-at.com"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

func TestSanitizeString_StripsControlCharsAndTruncates(t *testing.T) {
	input := "hello\x00 world\x01\n"
	got := SanitizeString(input, 0)
	if strings.ContainsAny(got, "\x00\x01") {
		t.Fatalf("SanitizeString() = %q, still contains control characters", got)
	}

	long := strings.Repeat("a", defaultSanitizeMaxLength+50)
	got = SanitizeString(long, 0)
	if len(got) != defaultSanitizeMaxLength {
		t.Fatalf("len(SanitizeString()) = %d, want %d", len(got), defaultSanitizeMaxLength)
	}
}

func TestSanitizeString_EmptyInput(t *testing.T) {
	if got := SanitizeString("", 10); got != "" {
		t.Fatalf("SanitizeString(\"\") = %q, want empty", got)
	}
}
