package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"persistentstore/pkg/domain"
)

// GCMEncryption encrypts with AES-GCM.
type GCMEncryption struct {
	sealer
}

// NewGCMEncryption builds a GCMEncryption from a hex-encoded AES key of 16,
// 24 or 32 bytes (32 selects AES-256).
func NewGCMEncryption(hexKey string) (*GCMEncryption, error) {
	key, err := decodeKey(hexKey, 16, 24, 32)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: gcm: %w", err)
	}
	return &GCMEncryption{sealer: newSealer(aead)}, nil
}

// Compile-time assertion that GCMEncryption implements domain.Encryption.
var _ domain.Encryption = (*GCMEncryption)(nil)
