package crypto

import (
	"bytes"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bytes.Contains(hash, []byte("s3cret-pass")) {
		t.Fatalf("hash must not contain the plaintext")
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := ComparePassword(hash, "wrong-pass"); err == nil {
		t.Fatalf("expected mismatch for wrong password")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatalf("expected distinct salts to yield distinct hashes")
	}
}
