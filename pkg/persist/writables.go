package persist

import (
	"persistentstore/pkg/domain"
	"persistentstore/pkg/storage"
	"persistentstore/pkg/store"
)

// LocalWritable creates a store persisted in local storage.
func LocalWritable[T any](p *Persister, key string, initial T, start domain.StartStopNotifier[T]) (*PersistentStore[T], error) {
	return Persist[T](p, store.New(initial, start), p.storages.LocalStorage(false), key)
}

// Writable is LocalWritable.
func Writable[T any](p *Persister, key string, initial T, start domain.StartStopNotifier[T]) (*PersistentStore[T], error) {
	return LocalWritable[T](p, key, initial, start)
}

// SessionWritable creates a store persisted in session storage.
func SessionWritable[T any](p *Persister, key string, initial T, start domain.StartStopNotifier[T]) (*PersistentStore[T], error) {
	return Persist[T](p, store.New(initial, start), p.storages.SessionStorage(false), key)
}

// CookieWritable creates a store persisted in a cookie with the default
// cookie options.
func CookieWritable[T any](p *Persister, key string, initial T, start domain.StartStopNotifier[T]) (*PersistentStore[T], error) {
	return Persist[T](p, store.New(initial, start), p.storages.CookieStorage(storage.CookieOptions{}), key)
}

// PersistBrowserLocal persists an existing store in local storage.
func PersistBrowserLocal[T any](p *Persister, w domain.Writable[T], key string) (*PersistentStore[T], error) {
	return Persist[T](p, w, p.storages.LocalStorage(false), key)
}

// PersistBrowserSession persists an existing store in session storage.
func PersistBrowserSession[T any](p *Persister, w domain.Writable[T], key string) (*PersistentStore[T], error) {
	return Persist[T](p, w, p.storages.SessionStorage(false), key)
}

// PersistCookie persists an existing store in a cookie.
func PersistCookie[T any](p *Persister, w domain.Writable[T], key string) (*PersistentStore[T], error) {
	return Persist[T](p, w, p.storages.CookieStorage(storage.CookieOptions{}), key)
}
