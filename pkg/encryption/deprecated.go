package encryption

import (
	"fmt"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/storage"
)

// NoEncryptionBehavior decides what NewEncryptedStorage does when no cipher
// can be built.
//
// Deprecated: build the encryption yourself and use NewEncryptionStorage.
type NoEncryptionBehavior int

const (
	// Exception returns the error.
	Exception NoEncryptionBehavior = iota
	// NoEncryption returns the wrapped storage unchanged.
	NoEncryption
	// NoStorage returns a storage that persists nothing.
	NoStorage
)

func (b NoEncryptionBehavior) String() string {
	switch b {
	case Exception:
		return "exception"
	case NoEncryption:
		return "no-encryption"
	case NoStorage:
		return "no-storage"
	default:
		return fmt.Sprintf("NoEncryptionBehavior(%d)", int(b))
	}
}

// NewEncryptedStorage wraps storage with AES-GCM under hexKey.
//
// Deprecated: use NewEncryptionStorage with NewGCMEncryption.
func NewEncryptedStorage(wrapped domain.Storage[string], hexKey string, behavior NoEncryptionBehavior, opts ...Option) (domain.Storage[string], error) {
	enc, err := NewGCMEncryption(hexKey)
	if err == nil {
		return NewEncryptionStorage(wrapped, enc, opts...), nil
	}

	switch behavior {
	case NoEncryption:
		return wrapped, nil
	case NoStorage:
		return storage.NewNoopStorage[string](), nil
	default:
		return nil, fmt.Errorf("encryption: cannot encrypt storage: %w", err)
	}
}
