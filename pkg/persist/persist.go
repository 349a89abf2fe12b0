package persist

import (
	"fmt"
	"log/slog"
	"sync"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/serialization"
)

// PersistentStore is a store whose value is mirrored into a storage.
type PersistentStore[T any] struct {
	domain.Writable[T]

	storage    domain.Storage[string]
	key        string
	serializer serialization.Serializer
	logger     *slog.Logger

	mu sync.Mutex
	// echo is the serialized form of the last external value pushed into the
	// store; the store emission it causes must not be written back.
	echo    *string
	closers []func()
	closed  bool
}

// Persist mirrors store into s under key.
//
// A value already present in s replaces the store value before Persist
// returns; a value that fails to deserialize is returned as an error. After
// that, every value the store emits is serialized and written once. If s is
// a domain.SelfUpdateStorage, changes made by other contexts flow back into
// the store without being written again. External deletions leave the store
// value as it is.
func Persist[T any](p *Persister, store domain.Writable[T], s domain.Storage[string], key string) (*PersistentStore[T], error) {
	ps := &PersistentStore[T]{
		Writable:   store,
		storage:    s,
		key:        key,
		serializer: p.Serializer(),
		logger:     p.logger.With("key", key),
	}

	if raw, ok := s.GetValue(key); ok {
		var v T
		if err := ps.serializer.Deserialize(raw, &v); err != nil {
			return nil, fmt.Errorf("persist %q: read stored value: %w", key, err)
		}
		store.Set(v)
	}

	ps.closers = append(ps.closers, store.Subscribe(ps.write))
	if su, ok := s.(domain.SelfUpdateStorage[string]); ok {
		ps.closers = append(ps.closers, su.AddListener(key, ps.receive))
	}
	return ps, nil
}

// Key returns the storage key.
func (ps *PersistentStore[T]) Key() string { return ps.key }

// Delete removes the value from the storage. The in-memory value is kept.
func (ps *PersistentStore[T]) Delete() {
	ps.storage.DeleteValue(ps.key)
}

// Close stops mirroring. It is safe to call more than once.
func (ps *PersistentStore[T]) Close() {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	ps.closed = true
	closers := ps.closers
	ps.closers = nil
	ps.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

func (ps *PersistentStore[T]) write(value T) {
	data, err := ps.serializer.Serialize(value)
	if err != nil {
		ps.logger.Error("persist: serialize value", "error", err)
		return
	}

	ps.mu.Lock()
	echo := ps.echo
	ps.echo = nil
	closed := ps.closed
	ps.mu.Unlock()

	if closed || (echo != nil && *echo == data) {
		return
	}
	ps.storage.SetValue(ps.key, data)
}

func (ps *PersistentStore[T]) receive(c domain.Change[string]) {
	if c.Deleted {
		ps.logger.Debug("persist: value deleted by another context")
		return
	}

	var v T
	if err := ps.serializer.Deserialize(c.Value, &v); err != nil {
		ps.logger.Warn("persist: ignore undecodable external value", "error", err)
		return
	}
	// The store may re-encode differently from the external writer; compare
	// against our own encoding.
	data, err := ps.serializer.Serialize(v)
	if err != nil {
		ps.logger.Warn("persist: re-encode external value", "error", err)
		return
	}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	ps.echo = &data
	ps.mu.Unlock()

	ps.Set(v)
}
