// Package storage provides the concrete domain.Storage adapters.
//
// Browser-style adapters (local and session storage, cookies, IndexedDB,
// extension storage) are built by a Factory from a host.Environment. When the
// environment lacks an API the Factory logs one warning per API and hands out
// a no-op storage, so callers keep working without persistence.
//
// Native adapters persist on disk:
//   - FileStorage: one file per key, atomic writes, fsnotify change feed
//   - BoltStorage: a bbolt bucket
//   - BadgerStorage: a badger database under a key prefix
//
// MemoryStorage and NoopStorage cover tests and fallbacks; Instrument wraps
// any storage with prometheus counters.
package storage
