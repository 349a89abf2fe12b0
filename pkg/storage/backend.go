package storage

import (
	"log/slog"
	"os"
)

// BackendOption configures the on-disk storages.
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger   *slog.Logger
	fileMode os.FileMode
	inMemory bool
}

func defaultBackendOptions() backendOptions {
	return backendOptions{logger: slog.Default(), fileMode: 0o600}
}

// WithBackendLogger sets the logger that receives I/O failures.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) {
		o.logger = logger
	}
}

// WithFileMode sets the permission bits of files created by the backend.
func WithFileMode(mode os.FileMode) BackendOption {
	return func(o *backendOptions) {
		o.fileMode = mode
	}
}

// WithInMemory keeps a badger database in memory only. Other backends ignore
// it.
func WithInMemory() BackendOption {
	return func(o *backendOptions) {
		o.inMemory = true
	}
}
