package storage

import (
	"fmt"
	"log/slog"

	"go.etcd.io/bbolt"

	"persistentstore/pkg/domain"
)

// DefaultBucket is the bbolt bucket used when none is given.
const DefaultBucket = "persistent-store"

// BoltStorage keeps values in one bbolt bucket.
type BoltStorage struct {
	db     *bbolt.DB
	bucket []byte
	logger *slog.Logger
}

// NewBoltStorage opens (or creates) the database at path and its bucket.
func NewBoltStorage(path, bucket string, opts ...BackendOption) (*BoltStorage, error) {
	o := defaultBackendOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	db, err := bbolt.Open(path, o.fileMode, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt storage: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt storage: create bucket %s: %w", bucket, err)
	}

	return &BoltStorage{db: db, bucket: []byte(bucket), logger: o.logger}, nil
}

func (s *BoltStorage) GetValue(key string) (value string, ok bool) {
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		value, ok = string(v), true
		return nil
	})
	if err != nil {
		s.logger.Error("bolt storage: read failed", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

func (s *BoltStorage) SetValue(key, value string) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		s.logger.Error("bolt storage: write failed", "key", key, "error", err)
	}
}

func (s *BoltStorage) DeleteValue(key string) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
	if err != nil {
		s.logger.Error("bolt storage: delete failed", "key", key, "error", err)
	}
}

// Keys lists the keys of the bucket.
func (s *BoltStorage) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Close closes the database.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// Compile-time assertion that BoltStorage implements domain.Storage.
var _ domain.Storage[string] = (*BoltStorage)(nil)
