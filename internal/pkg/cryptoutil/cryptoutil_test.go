package cryptoutil

import (
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestRoundTrip(t *testing.T) {
	enc, err := New(testKey)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := enc.Encrypt("ghp_secrettoken")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(sealed, "v1:") {
		t.Fatalf("missing version prefix: %q", sealed)
	}
	if strings.Contains(sealed, "ghp_secrettoken") {
		t.Fatalf("ciphertext leaks plaintext")
	}
	plain, err := enc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "ghp_secrettoken" {
		t.Fatalf("got %q", plain)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	enc, _ := New(testKey)
	a, _ := enc.Encrypt("same")
	b, _ := enc.Encrypt("same")
	if a == b {
		t.Fatalf("two encryptions of the same value should differ")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc, _ := New(testKey)
	for _, in := range []string{"", "v1:", "v1:!!!!", "v2:abcd", "plaintext"} {
		if _, err := enc.Decrypt(in); err == nil {
			t.Fatalf("Decrypt(%q) should fail", in)
		}
	}
}

func TestDecryptRejectsTamper(t *testing.T) {
	enc, _ := New(testKey)
	sealed, _ := enc.Encrypt("value")
	tampered := sealed[:len(sealed)-2] + "AA"
	if _, err := enc.Decrypt(tampered); err == nil {
		t.Fatalf("tampered ciphertext should fail")
	}
}

func TestNewRejectsEmptyKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("empty key should fail")
	}
}

func TestNewStretchesPassphrase(t *testing.T) {
	enc, err := New("not-32-bytes")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := enc.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	plain, err := enc.Decrypt(sealed)
	if err != nil || plain != "value" {
		t.Fatalf("Decrypt = %q, %v", plain, err)
	}

	// The same passphrase must derive the same key.
	enc2, _ := New("not-32-bytes")
	if plain, err := enc2.Decrypt(sealed); err != nil || plain != "value" {
		t.Fatalf("Decrypt with re-derived key = %q, %v", plain, err)
	}
}
