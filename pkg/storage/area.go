package storage

import (
	"persistentstore/pkg/domain"
	"persistentstore/pkg/host"
)

// AreaStorage adapts a map-like host area.
type AreaStorage struct {
	area host.Area
}

// NewAreaStorage wraps area without change notifications.
func NewAreaStorage(area host.Area) *AreaStorage {
	return &AreaStorage{area: area}
}

func (s *AreaStorage) GetValue(key string) (string, bool) {
	return s.area.GetItem(key)
}

func (s *AreaStorage) SetValue(key, value string) {
	s.area.SetItem(key, value)
}

func (s *AreaStorage) DeleteValue(key string) {
	s.area.RemoveItem(key)
}

// SelfUpdateAreaStorage is an AreaStorage that forwards the area's change
// events to per-key listeners. It attaches to the area only while at least
// one listener is registered.
type SelfUpdateAreaStorage struct {
	AreaStorage
	listeners *listenerSet[string]
}

// NewSelfUpdateAreaStorage wraps area with change notifications.
func NewSelfUpdateAreaStorage(area host.Area) *SelfUpdateAreaStorage {
	return newSelfUpdateAreaStorage(area)
}

func newSelfUpdateAreaStorage(area host.Area) *SelfUpdateAreaStorage {
	s := &SelfUpdateAreaStorage{AreaStorage: AreaStorage{area: area}}
	s.listeners = newListenerSet[string](func() func() {
		return area.OnChange(func(ev host.ChangeEvent) {
			s.listeners.dispatch(domain.Change[string]{
				Key:     ev.Key,
				Value:   ev.NewValue,
				Deleted: ev.Deleted,
			})
		})
	})
	return s
}

func (s *SelfUpdateAreaStorage) AddListener(key string, listener domain.Listener[string]) func() {
	return s.listeners.add(key, listener)
}

// Compile-time assertions.
var (
	_ domain.Storage[string]           = (*AreaStorage)(nil)
	_ domain.SelfUpdateStorage[string] = (*SelfUpdateAreaStorage)(nil)
)
