package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned for keys that are not valid hex or have the
	// wrong length.
	ErrInvalidKey = errors.New("encryption: invalid key")
	// ErrDecrypt is returned when a value cannot be opened: wrong key,
	// corrupted or truncated data.
	ErrDecrypt = errors.New("encryption: wrong key or corrupted data")
	// ErrNonceSize is returned when a caller-supplied nonce has the wrong
	// length.
	ErrNonceSize = errors.New("encryption: bad nonce size")
)

// hashSeed fills the start of the fixed nonce used by Hash.
const hashSeed = "sps"

// sealer holds the shared AEAD envelope logic.
type sealer struct {
	aead      cipher.AEAD
	hashNonce []byte
}

func newSealer(aead cipher.AEAD) sealer {
	nonce := make([]byte, aead.NonceSize())
	copy(nonce, hashSeed)
	return sealer{aead: aead, hashNonce: nonce}
}

func (s sealer) seal(data string, nonce []byte) (string, error) {
	if len(nonce) != s.aead.NonceSize() {
		return "", fmt.Errorf("%w: got %d, want %d", ErrNonceSize, len(nonce), s.aead.NonceSize())
	}
	out := make([]byte, 0, len(nonce)+len(data)+s.aead.Overhead())
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, []byte(data), nil)
	return hex.EncodeToString(out), nil
}

// Encrypt seals data under a random nonce.
func (s sealer) Encrypt(data string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encryption: read nonce: %w", err)
	}
	return s.seal(data, nonce)
}

// EncryptWithNonce seals data under the given nonce. Reusing a nonce for
// different data weakens the cipher; it exists for deterministic outputs.
func (s sealer) EncryptWithNonce(data string, nonce []byte) (string, error) {
	return s.seal(data, nonce)
}

// Hash seals data under the fixed nonce.
func (s sealer) Hash(data string) (string, error) {
	return s.seal(data, s.hashNonce)
}

// Decrypt opens a value produced by Encrypt or Hash.
func (s sealer) Decrypt(data string) (string, error) {
	raw, err := hex.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return "", fmt.Errorf("%w: %d bytes is too short", ErrDecrypt, len(raw))
	}
	pt, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(pt), nil
}

// decodeKey parses a hex key and checks its length against sizes.
func decodeKey(hexKey string, sizes ...int) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	for _, size := range sizes {
		if len(key) == size {
			return key, nil
		}
	}
	wipe(key)
	return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(key))
}
