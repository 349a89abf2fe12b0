package persist

import (
	"log/slog"
	"sync"

	"persistentstore/pkg/host"
	"persistentstore/pkg/serialization"
	"persistentstore/pkg/storage"
)

// Persister holds the configuration shared by Persist calls.
type Persister struct {
	mu         sync.RWMutex
	serializer serialization.Serializer
	registry   *serialization.Registry
	env        host.Environment
	logger     *slog.Logger
	quiet      bool
	storages   *storage.Factory
}

// Option configures a Persister.
type Option func(*Persister)

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s serialization.Serializer) Option {
	return func(p *Persister) {
		p.serializer = s
	}
}

// WithRegistry sets the type registry of the default JSON serializer.
func WithRegistry(r *serialization.Registry) Option {
	return func(p *Persister) {
		p.registry = r
	}
}

// WithEnvironment sets the host APIs used by the browser-style helpers.
// The default is host.Browser().
func WithEnvironment(env host.Environment) Option {
	return func(p *Persister) {
		p.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Persister) {
		p.logger = logger
	}
}

// WithoutWarnings silences missing-API warnings from the start.
func WithoutWarnings() Option {
	return func(p *Persister) {
		p.quiet = true
	}
}

// New returns a Persister.
func New(opts ...Option) *Persister {
	p := &Persister{
		env:    host.Browser(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = serialization.NewRegistry()
	}
	if p.serializer == nil {
		p.serializer = serialization.JSON(p.registry)
	}

	fopts := []storage.Option{storage.WithLogger(p.logger)}
	if p.quiet {
		fopts = append(fopts, storage.WithoutWarnings())
	}
	p.storages = storage.NewFactory(p.env, fopts...)
	return p
}

// Storages returns the factory used for browser-style backends.
func (p *Persister) Storages() *storage.Factory { return p.storages }

// Logger returns the persister logger.
func (p *Persister) Logger() *slog.Logger { return p.logger }

// Serializer returns the serializer used by subsequent Persist calls.
func (p *Persister) Serializer() serialization.Serializer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.serializer
}

// SetSerialization replaces the serializer for subsequent Persist calls.
// Stores persisted earlier keep the serializer they started with.
func (p *Persister) SetSerialization(s serialization.Serializer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serializer = s
}

// SetSerializationFuncs is SetSerialization for a plain function pair.
// register may be nil.
func (p *Persister) SetSerializationFuncs(
	serialize func(v any) (string, error),
	deserialize func(data string) (any, error),
	register func(name string, sample any) error,
) {
	p.SetSerialization(serialization.Funcs{
		SerializeFunc:   serialize,
		DeserializeFunc: deserialize,
		RegisterFunc:    register,
	})
}

// AddSerializableType registers the type of sample under name with the
// active serializer.
func (p *Persister) AddSerializableType(name string, sample any) error {
	r, ok := p.Serializer().(serialization.TypeRegistrar)
	if !ok {
		return serialization.ErrRegistrationUnsupported
	}
	return r.Register(name, sample)
}

// DisableWarnings silences warnings about missing storage APIs.
func (p *Persister) DisableWarnings() {
	p.storages.DisableWarnings()
}
