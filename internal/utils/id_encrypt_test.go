package utils

import "testing"

const testKey = "0123456789abcdef" // 16 bytes

func TestEncryptDecryptIDRoundTrip(t *testing.T) {
	for _, id := range []uint{1, 42, 999999} {
		enc, err := EncryptID(id, testKey)
		if err != nil {
			t.Fatalf("EncryptID(%d): %v", id, err)
		}
		if enc == "" {
			t.Fatalf("EncryptID(%d) returned empty string", id)
		}

		dec, err := DecryptID(enc, testKey)
		if err != nil {
			t.Fatalf("DecryptID(%q): %v", enc, err)
		}
		if dec != id {
			t.Errorf("round trip: got %d, want %d", dec, id)
		}
	}
}

func TestDecryptIDPlainFallback(t *testing.T) {
	id, err := DecryptID("123", testKey)
	if err != nil {
		t.Fatalf("plain numeric id should be accepted: %v", err)
	}
	if id != 123 {
		t.Errorf("got %d, want 123", id)
	}
}

func TestDecryptIDRejectsGarbage(t *testing.T) {
	if _, err := DecryptID("", testKey); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := DecryptID("not-a-number!!", testKey); err == nil {
		t.Error("non-numeric garbage should fail")
	}
}

func TestEncryptIDRejectsBadKey(t *testing.T) {
	if _, err := EncryptID(1, "short"); err == nil {
		t.Error("short key should fail")
	}
}
