package app

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/encryption"
	"persistentstore/pkg/host"
	"persistentstore/pkg/persist"
	"persistentstore/pkg/serialization"
	"persistentstore/pkg/storage"
)

// Wire bundles the storage stack and persister for the CLI.
type Wire struct {
	Config    Config
	Logger    *slog.Logger
	Storage   domain.Storage[string]
	Persister *persist.Persister
	Metrics   *prometheus.Registry

	closers []func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, logger *slog.Logger) (*Wire, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Wire{Config: cfg, Logger: logger, Metrics: prometheus.NewRegistry()}

	backend, err := w.openBackend()
	if err != nil {
		return nil, err
	}

	metrics, err := storage.NewMetrics(w.Metrics)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	w.Storage = metrics.Instrument(backend, cfg.Storage.Backend)

	if cfg.Encryption.Enabled() {
		enc, err := newEncryption(cfg.Encryption)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		w.Storage = encryption.NewEncryptionStorage(w.Storage, enc, encryption.WithLogger(logger))
	}

	registry := serialization.NewRegistry()
	var ser serialization.Serializer = serialization.JSON(registry)
	if cfg.Serializer == "yaml" {
		ser = serialization.YAML(registry)
	}
	// The CLI has no browser host: every value goes through w.Storage.
	w.Persister = persist.New(
		persist.WithEnvironment(host.Environment{}),
		persist.WithSerializer(ser),
		persist.WithLogger(logger),
		persist.WithoutWarnings(),
	)

	logger.Debug("storage ready",
		"backend", cfg.Storage.Backend,
		"dir", cfg.Storage.Dir,
		"serializer", cfg.Serializer,
		slog.Group("encryption",
			"enabled", cfg.Encryption.Enabled(),
			"cipher", cfg.Encryption.Cipher,
			"kdf", cfg.Encryption.KDF,
			"salt", cfg.Encryption.Salt,
		),
	)
	return w, nil
}

func (w *Wire) openBackend() (domain.Storage[string], error) {
	cfg := w.Config.Storage
	opts := []storage.BackendOption{storage.WithBackendLogger(w.Logger)}

	if cfg.Backend != BackendMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("storage backend %s needs storage.dir", cfg.Backend)
	}
	switch cfg.Backend {
	case BackendFile:
		s, err := storage.NewFileStorage(cfg.Dir, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBolt:
		s, err := storage.NewBoltStorage(filepath.Join(cfg.Dir, "values.db"), cfg.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, s.Close)
		return s, nil
	case BackendBadger:
		s, err := storage.NewBadgerStorage(filepath.Join(cfg.Dir, "badger"), cfg.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, s.Close)
		return s, nil
	case BackendMemory:
		return storage.NewMemoryStorage[string](), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newEncryption(cfg EncryptionConfig) (domain.Encryption, error) {
	key := cfg.Key
	if key == "" {
		if cfg.Salt == "" {
			return nil, fmt.Errorf("encryption passphrase needs a salt (see persistctl keygen)")
		}
		derived, err := encryption.KeyFromPassphrase(cfg.Passphrase, cfg.Salt, encryption.KDF(cfg.KDF))
		if err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
		key = derived
	}
	if cfg.Cipher == "chacha" {
		return encryption.NewChaChaEncryption(key)
	}
	return encryption.NewGCMEncryption(key)
}

// Close releases the backend.
func (w *Wire) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		errs = append(errs, w.closers[i]())
	}
	w.closers = nil
	return errors.Join(errs...)
}
