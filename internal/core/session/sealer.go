package session

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Sealer encrypts credentials at rest with secretbox, keyed by a SHA-256
// digest of the configured secret. Sealed data is the nonce followed by the box.
type Sealer struct {
	key [32]byte
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	return &Sealer{key: sha256.Sum256([]byte(secret))}, nil
}

func (s *Sealer) Seal(token string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(token), &nonce, &s.key), nil
}

// Open returns ErrCorruptStore when data was truncated, tampered with or
// sealed under another secret.
func (s *Sealer) Open(data []byte) (string, error) {
	if len(data) < nonceSize+secretbox.Overhead {
		return "", ErrCorruptStore
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrCorruptStore
	}
	return string(plain), nil
}
