package domain

// Storage is a synchronous key/value contract over string keys.
//
// GetValue reports whether the key is present. A missing key is never an
// error. SetValue and DeleteValue are fire-and-forget: adapters that can fail
// log the failure instead of returning it.
type Storage[T any] interface {
	GetValue(key string) (T, bool)
	SetValue(key string, value T)
	DeleteValue(key string)
}

// Change describes a value change that happened outside the current context.
type Change[T any] struct {
	Key     string
	Value   T
	Deleted bool
}

// Listener receives external changes for one key.
type Listener[T any] func(Change[T])

// SelfUpdateStorage is a Storage that also notifies about changes made by
// other contexts (another tab, another process).
//
// AddListener returns a func that removes the listener; calling it more than
// once is a no-op.
type SelfUpdateStorage[T any] interface {
	Storage[T]
	AddListener(key string, listener Listener[T]) (remove func())
}
