package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"persistentstore/pkg/domain"
)

const valueSuffix = ".val"

// FileStorage keeps one file per key in a directory. Writes go through a temp
// file and a rename, so readers in other processes never see partial values.
//
// Registering a listener starts an fsnotify watch on the directory; changes
// made by other processes are then delivered as domain.Change values. Writes
// made through this FileStorage are not echoed back.
type FileStorage struct {
	dir    string
	mode   os.FileMode
	logger *slog.Logger

	mu sync.Mutex
	// pending echoes of our own writes and removals while a watch runs; each
	// entry is consumed by the first event that matches it.
	own     map[string]string
	deleted map[string]bool

	listeners *listenerSet[string]
}

// NewFileStorage returns a FileStorage rooted at dir, creating it if needed.
func NewFileStorage(dir string, opts ...BackendOption) (*FileStorage, error) {
	o := defaultBackendOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file storage: create dir: %w", err)
	}

	s := &FileStorage{
		dir:     dir,
		mode:    o.fileMode,
		logger:  o.logger,
		own:     map[string]string{},
		deleted: map[string]bool{},
	}
	s.listeners = newListenerSet[string](s.watch)
	return s, nil
}

// Dir returns the storage directory.
func (s *FileStorage) Dir() string { return s.dir }

func (s *FileStorage) GetValue(key string) (string, bool) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		s.logger.Error("file storage: read failed", "key", key, "error", err)
		return "", false
	}
	return string(b), true
}

func (s *FileStorage) SetValue(key, value string) {
	watching := s.listeners.len() > 0
	s.mu.Lock()
	delete(s.deleted, key)
	if watching {
		s.own[key] = value
	}
	s.mu.Unlock()

	if err := s.write(key, []byte(value)); err != nil {
		s.logger.Error("file storage: write failed", "key", key, "error", err)
	}
}

func (s *FileStorage) DeleteValue(key string) {
	watching := s.listeners.len() > 0
	s.mu.Lock()
	delete(s.own, key)
	if watching {
		s.deleted[key] = true
	}
	s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("file storage: delete failed", "key", key, "error", err)
	}
}

// write puts b in a temp file next to the value file and renames it over it.
func (s *FileStorage) write(key string, b []byte) error {
	path := s.path(key)
	f, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file storage: create temp: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("file storage: write temp: %w", err)
	}
	if err := f.Chmod(s.mode); err != nil {
		_ = f.Close()
		return fmt.Errorf("file storage: chmod temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("file storage: close temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("file storage: rename: %w", err)
	}
	return nil
}

func (s *FileStorage) AddListener(key string, listener domain.Listener[string]) func() {
	return s.listeners.add(key, listener)
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+valueSuffix)
}

// keyOf maps a file name back to its key.
func keyOf(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, valueSuffix) {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimSuffix(base, valueSuffix))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// watch starts the fsnotify loop and returns its stop func.
func (s *FileStorage) watch() func() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("file storage: start watcher", "dir", s.dir, "error", err)
		return nil
	}
	if err := w.Add(s.dir); err != nil {
		s.logger.Error("file storage: watch dir", "dir", s.dir, "error", err)
		_ = w.Close()
		return nil
	}
	s.logger.Debug("file storage: watching directory", "dir", s.dir)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				s.handle(event)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("file storage: watcher error", "dir", s.dir, "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		if err := w.Close(); err != nil {
			s.logger.Error("file storage: close watcher", "dir", s.dir, "error", err)
		}
	}
}

func (s *FileStorage) handle(event fsnotify.Event) {
	key, ok := keyOf(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		value, present := s.GetValue(key)
		if !present {
			return
		}
		s.mu.Lock()
		own, mine := s.own[key]
		delete(s.own, key)
		delete(s.deleted, key)
		s.mu.Unlock()
		if mine && own == value {
			return
		}
		s.listeners.dispatch(domain.Change[string]{Key: key, Value: value})

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if _, present := s.GetValue(key); present {
			return
		}
		s.mu.Lock()
		mine := s.deleted[key]
		delete(s.deleted, key)
		delete(s.own, key)
		s.mu.Unlock()
		if mine {
			return
		}
		s.listeners.dispatch(domain.Change[string]{Key: key, Deleted: true})
	}
}

// Compile-time assertion that FileStorage implements domain.SelfUpdateStorage.
var _ domain.SelfUpdateStorage[string] = (*FileStorage)(nil)
