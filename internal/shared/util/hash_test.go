package util

import "testing"

func TestSHA256HexStableAndHex(t *testing.T) {
	got := SHA256Hex([]byte("declaration bytes"))
	if got != SHA256Hex([]byte("declaration bytes")) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSHA256HexSensitiveToSingleByte(t *testing.T) {
	a := SHA256Hex([]byte("content 1"))
	b := SHA256Hex([]byte("content 2"))
	if a == b {
		t.Fatalf("expected different digests for different content")
	}
}

func TestSaltedSHA256HexMatchesConcatenation(t *testing.T) {
	got := SaltedSHA256Hex("123456789", "pepper")
	want := SHA256Hex([]byte("123456789pepper"))
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got == SaltedSHA256Hex("123456789", "other") {
		t.Fatalf("expected salt to change the digest")
	}
}
