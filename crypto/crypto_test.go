package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc := NewService([]byte("k8Jz2mNq5vXw9bCf4hRt7yUp3aSd6gLe"))

	plaintext := []byte("what is the weather in amsterdam today?")
	ciphertext, err := svc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	decrypted, err := svc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptProducesUniqueNonces(t *testing.T) {
	svc := NewService([]byte("another-sufficiently-long-secret-key-value"))

	plaintext := []byte("same prompt")
	first, err := svc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := svc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	svc := NewService([]byte("key-one-key-one-key-one-key-one-"))
	other := NewService([]byte("key-two-key-two-key-two-key-two-"))

	ciphertext, err := svc.Encrypt([]byte("secret prompt"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := other.Decrypt(ciphertext); err == nil {
		t.Error("decrypt with a different key should fail")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	svc := NewService([]byte("short-ciphertext-test-secret-key"))
	if _, err := svc.Decrypt([]byte("too short")); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}

func TestShortSecretsAreUsable(t *testing.T) {
	// Dev environments may run without a configured secret; derivation
	// must still yield a valid 32-byte cipher key.
	svc := NewService(nil)
	ciphertext, err := svc.Encrypt([]byte("dev prompt"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := svc.Decrypt(ciphertext); err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
}
