package models

import "testing"

func TestNormalizeDuration(t *testing.T) {
	cases := []struct {
		stored int
		want   int
	}{
		{90, 90},
		{15, 15},
		{0, DefaultDurationMinutes},
		{-30, DefaultDurationMinutes},
	}
	for _, tc := range cases {
		s := Service{DurationMinutes: tc.stored}
		if got := s.NormalizeDuration(); got != tc.want {
			t.Errorf("NormalizeDuration with stored %d = %d, want %d", tc.stored, got, tc.want)
		}
	}
}

func TestGenerateOrderCode(t *testing.T) {
	code := GenerateOrderCode()
	if len(code) != 8 {
		t.Fatalf("order code length = %d, want 8", len(code))
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Errorf("unexpected character %q in order code %q", r, code)
		}
	}
}
