package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// SealKeySize is the required length of a sealing key in bytes.
const SealKeySize = 32

const nonceSize = 24

// ErrSealedValue indicates a stored value is corrupt or was sealed under a different key.
var ErrSealedValue = errors.New("sealed value cannot be opened")

// Sealer encrypts settings values before they reach persistent storage.
type Sealer struct {
	key [SealKeySize]byte
}

// NewSealer creates a sealer from a raw 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != SealKeySize {
		return nil, fmt.Errorf("seal key must be %d bytes (got %d)", SealKeySize, len(key))
	}
	s := &Sealer{}
	copy(s.key[:], key)
	return s, nil
}

// ParseSealer creates a sealer from a base64-encoded key.
func ParseSealer(encoded string) (*Sealer, error) {
	if encoded == "" {
		return nil, errors.New("seal key is required for persistent settings")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	return NewSealer(key)
}

// GenerateSealKey returns a fresh random key, base64-encoded.
func GenerateSealKey() (string, error) {
	key := make([]byte, SealKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate seal key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Seal encrypts plaintext. Output layout: nonce || secretbox ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrSealedValue
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealedValue
	}
	return plaintext, nil
}
