// Package crypto provides at-rest encryption for conversation payloads
// using the XChaCha20-Poly1305 AEAD cipher. The cipher key is derived
// from the application secret key, so prompts stored in the database
// are unreadable without the process configuration.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Service provides encryption and decryption operations using a key
// derived from the configured application secret.
type Service struct {
	key [32]byte
}

// NewService derives the cipher key from the application secret. The
// secret may be any length; derivation normalizes it to 32 bytes.
func NewService(secret []byte) *Service {
	return &Service{key: sha256.Sum256(secret)}
}

// Encrypt encrypts plaintext with a random nonce. The nonce is
// prepended to the returned ciphertext.
func (s *Service) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// Decrypt decrypts ciphertext that was produced by Encrypt.
func (s *Service) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce := ciphertext[:aead.NonceSize()]
	ciphertext = ciphertext[aead.NonceSize():]

	return aead.Open(nil, nonce, ciphertext, nil)
}
