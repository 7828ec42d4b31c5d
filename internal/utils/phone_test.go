package utils

import "testing"

func TestValidPhone(t *testing.T) {
	cases := []struct {
		phone string
		want  bool
	}{
		{"9876543210", true},
		{"+919876543210", true},
		{"+12025550123", true},
		{"99999999", false}, // 8 digits, too short for local format
		{"123", false},
		{"", false},
		{"98765432101", false},   // 11 digits without +
		{"+0123456789", false},   // country code cannot start with 0
		{"987654321a", false},    // letters
		{"+9198765432101234", false}, // too long for E.164
	}
	for _, tc := range cases {
		if got := ValidPhone(tc.phone); got != tc.want {
			t.Errorf("ValidPhone(%q) = %v, want %v", tc.phone, got, tc.want)
		}
	}
}
