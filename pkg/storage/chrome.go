package storage

import (
	"fmt"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/host"
)

// ChromeStorageType selects a browser-extension storage area.
type ChromeStorageType int

const (
	ChromeLocal ChromeStorageType = iota
	ChromeSession
	ChromeSync
)

func (t ChromeStorageType) area() host.ExtensionArea {
	switch t {
	case ChromeSession:
		return host.ExtensionSession
	case ChromeSync:
		return host.ExtensionSync
	default:
		return host.ExtensionLocal
	}
}

func (t ChromeStorageType) String() string {
	return string(t.area())
}

// ChromeStorage returns a storage over an extension storage area. Without
// listenExternalChanges the listeners it accepts are never called.
func (f *Factory) ChromeStorage(t ChromeStorageType, listenExternalChanges bool) domain.SelfUpdateStorage[string] {
	area := f.env.Extension[t.area()]
	if area == nil {
		f.warnMissing(fmt.Sprintf("chrome.storage.%s", t))
		return NewNoopStorage[string]()
	}
	if !listenExternalChanges {
		return &silentStorage{AreaStorage: AreaStorage{area: area}}
	}
	return newSelfUpdateAreaStorage(area)
}

// silentStorage accepts listeners but never notifies them.
type silentStorage struct {
	AreaStorage
}

func (s *silentStorage) AddListener(string, domain.Listener[string]) func() { return func() {} }
