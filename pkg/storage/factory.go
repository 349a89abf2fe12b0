package storage

import (
	"log/slog"
	"sync"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/host"
)

// Factory builds browser-style storages from a host environment.
type Factory struct {
	env    host.Environment
	logger *slog.Logger

	mu     sync.Mutex
	quiet  bool
	warned map[string]bool
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithoutWarnings starts the factory with warnings disabled.
func WithoutWarnings() Option {
	return func(f *Factory) {
		f.quiet = true
	}
}

// NewFactory returns a Factory over env.
func NewFactory(env host.Environment, opts ...Option) *Factory {
	f := &Factory{
		env:    env,
		logger: slog.Default(),
		warned: map[string]bool{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DisableWarnings silences the missing-API warnings of this factory.
func (f *Factory) DisableWarnings() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quiet = true
}

// Logger returns the factory logger.
func (f *Factory) Logger() *slog.Logger { return f.logger }

// LocalStorage returns a storage backed by the environment's local storage.
// With listenExternalChanges the result is a domain.SelfUpdateStorage fed by
// writes from other contexts.
func (f *Factory) LocalStorage(listenExternalChanges bool) domain.Storage[string] {
	return f.areaStorage("localStorage", f.env.LocalStorage, listenExternalChanges)
}

// SessionStorage is LocalStorage for the session storage area.
func (f *Factory) SessionStorage(listenExternalChanges bool) domain.Storage[string] {
	return f.areaStorage("sessionStorage", f.env.SessionStorage, listenExternalChanges)
}

// IndexedDBStorage returns a self-updating storage over IndexedDB. Listeners
// also learn about values that finish loading after the storage was created.
func (f *Factory) IndexedDBStorage() domain.SelfUpdateStorage[string] {
	if f.env.IndexedDB == nil {
		f.warnMissing("indexedDB")
		return NewNoopStorage[string]()
	}
	return newSelfUpdateAreaStorage(f.env.IndexedDB)
}

func (f *Factory) areaStorage(api string, area host.Area, listen bool) domain.Storage[string] {
	if area == nil {
		f.warnMissing(api)
		return NewNoopStorage[string]()
	}
	if listen {
		return newSelfUpdateAreaStorage(area)
	}
	return &AreaStorage{area: area}
}

// warnMissing logs that api is unavailable, once per api.
func (f *Factory) warnMissing(api string) {
	f.mu.Lock()
	if f.quiet || f.warned[api] {
		f.mu.Unlock()
		return
	}
	f.warned[api] = true
	f.mu.Unlock()

	f.logger.Warn("storage api unavailable, values will not be persisted",
		"api", api,
	)
}
