package encryption

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"persistentstore/pkg/domain"
)

// ChaChaEncryption encrypts with XChaCha20-Poly1305. Its 24-byte nonce makes
// random nonces safe for any number of writes.
type ChaChaEncryption struct {
	sealer
}

// NewChaChaEncryption builds a ChaChaEncryption from a hex-encoded 32-byte
// key.
func NewChaChaEncryption(hexKey string) (*ChaChaEncryption, error) {
	key, err := decodeKey(hexKey, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &ChaChaEncryption{sealer: newSealer(aead)}, nil
}

// Compile-time assertion that ChaChaEncryption implements domain.Encryption.
var _ domain.Encryption = (*ChaChaEncryption)(nil)
