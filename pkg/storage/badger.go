package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v3"

	"persistentstore/pkg/domain"
)

// BadgerStorage keeps values in a badger database, each key under prefix.
type BadgerStorage struct {
	db     *badger.DB
	prefix []byte
	logger *slog.Logger
}

// NewBadgerStorage opens the badger database in dir.
func NewBadgerStorage(dir, prefix string, opts ...BackendOption) (*BadgerStorage, error) {
	o := defaultBackendOptions()
	for _, opt := range opts {
		opt(&o)
	}

	bopts := badger.DefaultOptions(dir)
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = &badgerLogger{logger: o.logger}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger storage: open db: %w", err)
	}
	return &BadgerStorage{db: db, prefix: []byte(prefix), logger: o.logger}, nil
}

func (s *BadgerStorage) key(key string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	return append(out, key...)
}

func (s *BadgerStorage) GetValue(key string) (value string, ok bool) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value, ok = string(v), true
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Error("badger storage: read failed", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

func (s *BadgerStorage) SetValue(key, value string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), []byte(value))
	})
	if err != nil {
		s.logger.Error("badger storage: write failed", "key", key, "error", err)
	}
}

func (s *BadgerStorage) DeleteValue(key string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	if err != nil {
		s.logger.Error("badger storage: delete failed", "key", key, "error", err)
	}
}

// Close closes the database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

// Compile-time assertion that BadgerStorage implements domain.Storage.
var _ domain.Storage[string] = (*BadgerStorage)(nil)
