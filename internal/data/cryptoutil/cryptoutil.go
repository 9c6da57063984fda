package cryptoutil

// Package cryptoutil seals short secrets (stored credentials) with AES-256-GCM.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sealer protects values at rest. The binding string is authenticated but not stored, so a
// value sealed for one binding cannot be opened under another.
type Sealer interface {
	Seal(plaintext []byte, binding string) (string, error)
	Open(sealed, binding string) ([]byte, error)
}

// ErrUnsealable is returned when a value was not produced by this sealer and key.
var ErrUnsealable = errors.New("sealed value cannot be opened")

const sealedPrefixV1 = "v1:"

// AESGCMSealer implements Sealer with AES-256-GCM.
type AESGCMSealer struct {
	aead cipher.AEAD
}

var _ Sealer = (*AESGCMSealer)(nil)

// NewAESGCMSealer builds a sealer from a 32-byte key.
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMSealer{aead: aead}, nil
}

// NewSealerFromSecret accepts a 64-char hex key as-is and hashes anything else down to 32 bytes.
func NewSealerFromSecret(secret string) (*AESGCMSealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("sealing key is required")
	}
	if decoded, err := hex.DecodeString(secret); err == nil && len(decoded) == 32 {
		return NewAESGCMSealer(decoded)
	}
	sum := sha256.Sum256([]byte(secret))
	return NewAESGCMSealer(sum[:])
}

// Seal encrypts plaintext under a random nonce; the result is "v1:" + base64(nonce||ciphertext).
func (s *AESGCMSealer) Seal(plaintext []byte, binding string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plaintext, []byte(binding))
	return sealedPrefixV1 + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Tampered values, a different key, or a different binding all yield
// ErrUnsealable.
func (s *AESGCMSealer) Open(sealed, binding string) ([]byte, error) {
	b64, ok := strings.CutPrefix(sealed, sealedPrefixV1)
	if !ok {
		return nil, fmt.Errorf("%w: unknown version", ErrUnsealable)
	}
	raw, err := base64.RawStdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealable, err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrUnsealable)
	}
	pt, err := s.aead.Open(nil, raw[:n], raw[n:], []byte(binding))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealable, err)
	}
	return pt, nil
}
