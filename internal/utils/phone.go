package utils

import "regexp"

var (
	// E.164: leading +, country code, 8-15 digits total.
	phoneE164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	// Local format: exactly 10 digits.
	phoneLocal = regexp.MustCompile(`^[0-9]{10}$`)
)

// ValidPhone accepts E.164 ("+919876543210") or 10-digit local
// ("9876543210") numbers. Shorter strings like "99999999" fail.
func ValidPhone(phone string) bool {
	return phoneE164.MatchString(phone) || phoneLocal.MatchString(phone)
}
