package security

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// FieldLengthRule bounds a field's string length.
type FieldLengthRule struct {
	MinLength int
	MaxLength int
}

// ValidateRequiredFields checks that each named field is present in data,
// non-nil, and (for strings) not whitespace-only. Field order in the
// returned map is not significant; callers needing deterministic order
// should sort the keys.
func ValidateRequiredFields(data map[string]any, fields []string) map[string]string {
	errs := make(map[string]string)
	for _, field := range fields {
		v, ok := data[field]
		if !ok || v == nil {
			errs[field] = fmt.Sprintf("%s is required", field)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			errs[field] = fmt.Sprintf("%s cannot be empty", field)
		}
	}
	return errs
}

// ValidateFieldLength applies per-field min/max length rules, stringifying
// non-string values first.
func ValidateFieldLength(data map[string]any, rules map[string]FieldLengthRule) map[string]string {
	errs := make(map[string]string)
	for field, rule := range rules {
		v, ok := data[field]
		if !ok || v == nil {
			continue
		}
		value := fmt.Sprintf("%v", v)
		if rule.MinLength > 0 && len(value) < rule.MinLength {
			errs[field] = fmt.Sprintf("%s must be at least %d characters", field, rule.MinLength)
			continue
		}
		if rule.MaxLength > 0 && len(value) > rule.MaxLength {
			errs[field] = fmt.Sprintf("%s must be no more than %d characters", field, rule.MaxLength)
		}
	}
	return errs
}

// IsValidEmail reports whether email matches the gateway's accepted format.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

const defaultSanitizeMaxLength = 1000

// SanitizeString strips null bytes and control characters (keeping tab,
// newline, and carriage return), trims surrounding whitespace, and
// truncates to maxLength (defaultSanitizeMaxLength if maxLength <= 0).
func SanitizeString(value string, maxLength int) string {
	if value == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = defaultSanitizeMaxLength
	}

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}

	sanitized := strings.TrimSpace(b.String())
	if len(sanitized) > maxLength {
		sanitized = sanitized[:maxLength]
	}
	return sanitized
}
