package encryption

import (
	"log/slog"

	"persistentstore/pkg/domain"
)

// Option configures an encryption storage.
type Option func(*Storage)

// WithLogger sets the logger that receives encryption failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		s.logger = logger
	}
}

// Storage hashes keys and encrypts values before handing them to the wrapped
// storage. Values that fail to decrypt read as missing.
type Storage struct {
	wrapped    domain.Storage[string]
	encryption domain.Encryption
	logger     *slog.Logger
}

// NewEncryptionStorage wraps storage with enc. If wrapped is self-updating the
// result is too, and its listeners receive decrypted values.
func NewEncryptionStorage(wrapped domain.Storage[string], enc domain.Encryption, opts ...Option) domain.Storage[string] {
	s := &Storage{wrapped: wrapped, encryption: enc, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if su, ok := wrapped.(domain.SelfUpdateStorage[string]); ok {
		return &SelfUpdateStorage{Storage: s, wrapped: su}
	}
	return s
}

func (s *Storage) GetValue(key string) (string, bool) {
	hashed, err := s.encryption.Hash(key)
	if err != nil {
		s.logger.Error("encryption storage: hash key", "error", err)
		return "", false
	}
	value, ok := s.wrapped.GetValue(hashed)
	if !ok {
		return "", false
	}
	plain, err := s.encryption.Decrypt(value)
	if err != nil {
		s.logger.Warn("encryption storage: decrypt value", "error", err)
		return "", false
	}
	return plain, true
}

func (s *Storage) SetValue(key, value string) {
	hashed, err := s.encryption.Hash(key)
	if err != nil {
		s.logger.Error("encryption storage: hash key", "error", err)
		return
	}
	sealed, err := s.encryption.Encrypt(value)
	if err != nil {
		s.logger.Error("encryption storage: encrypt value", "error", err)
		return
	}
	s.wrapped.SetValue(hashed, sealed)
}

func (s *Storage) DeleteValue(key string) {
	hashed, err := s.encryption.Hash(key)
	if err != nil {
		s.logger.Error("encryption storage: hash key", "error", err)
		return
	}
	s.wrapped.DeleteValue(hashed)
}

// SelfUpdateStorage is a Storage over a self-updating storage.
type SelfUpdateStorage struct {
	*Storage
	wrapped domain.SelfUpdateStorage[string]
}

// AddListener listens on the hashed key and decrypts incoming values.
// Changes that fail to decrypt are dropped.
func (s *SelfUpdateStorage) AddListener(key string, listener domain.Listener[string]) func() {
	hashed, err := s.encryption.Hash(key)
	if err != nil {
		s.logger.Error("encryption storage: hash key", "error", err)
		return func() {}
	}
	return s.wrapped.AddListener(hashed, func(c domain.Change[string]) {
		out := domain.Change[string]{Key: key, Deleted: c.Deleted}
		if !c.Deleted {
			plain, err := s.encryption.Decrypt(c.Value)
			if err != nil {
				s.logger.Warn("encryption storage: decrypt change", "error", err)
				return
			}
			out.Value = plain
		}
		listener(out)
	})
}

// Compile-time assertions.
var (
	_ domain.Storage[string]           = (*Storage)(nil)
	_ domain.SelfUpdateStorage[string] = (*SelfUpdateStorage)(nil)
)
