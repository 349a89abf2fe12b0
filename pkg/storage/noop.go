package storage

import "persistentstore/pkg/domain"

// NoopStorage stores nothing: reads miss and writes are dropped.
type NoopStorage[T any] struct{}

// NewNoopStorage returns a storage that does nothing.
func NewNoopStorage[T any]() NoopStorage[T] { return NoopStorage[T]{} }

func (NoopStorage[T]) GetValue(string) (T, bool) {
	var zero T
	return zero, false
}

func (NoopStorage[T]) SetValue(string, T) {}

func (NoopStorage[T]) DeleteValue(string) {}

// AddListener never fires.
func (NoopStorage[T]) AddListener(string, domain.Listener[T]) func() { return func() {} }

// Compile-time assertion that NoopStorage implements domain.SelfUpdateStorage.
var _ domain.SelfUpdateStorage[string] = NoopStorage[string]{}
