package host

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryHub is an in-process host shared by several contexts.
//
// Local storage, IndexedDB, extension areas and cookies are shared by every
// context of the hub; session storage belongs to a single context. Change
// events are dispatched synchronously, on the writer's goroutine, to every
// context except the writer.
type MemoryHub struct {
	local     *sharedArea
	indexedDB *sharedArea
	extension map[ExtensionArea]*sharedArea
	cookies   *memoryJar
}

// NewMemoryHub returns an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		local:     newSharedArea(),
		indexedDB: newSharedArea(),
		extension: map[ExtensionArea]*sharedArea{
			ExtensionLocal:   newSharedArea(),
			ExtensionSession: newSharedArea(),
			ExtensionSync:    newSharedArea(),
		},
		cookies: &memoryJar{cookies: map[string]memoryCookie{}, now: time.Now},
	}
}

// Context returns the Environment of a new context attached to the hub.
func (h *MemoryHub) Context() Environment {
	origin := uuid.New()
	ext := make(map[ExtensionArea]Area, len(h.extension))
	for name, a := range h.extension {
		ext[name] = &areaView{shared: a, origin: origin}
	}
	return Environment{
		LocalStorage:   &areaView{shared: h.local, origin: origin},
		SessionStorage: &areaView{shared: newSharedArea(), origin: origin},
		Cookies:        h.cookies,
		IndexedDB:      &areaView{shared: h.indexedDB, origin: origin},
		Extension:      ext,
	}
}

type areaListener struct {
	origin uuid.UUID
	fn     func(ChangeEvent)
}

type sharedArea struct {
	mu        sync.RWMutex
	items     map[string]string
	listeners map[uuid.UUID]*areaListener
}

func newSharedArea() *sharedArea {
	return &sharedArea{
		items:     map[string]string{},
		listeners: map[uuid.UUID]*areaListener{},
	}
}

func (a *sharedArea) write(origin uuid.UUID, ev ChangeEvent) {
	a.mu.Lock()
	if ev.Deleted {
		delete(a.items, ev.Key)
	} else {
		a.items[ev.Key] = ev.NewValue
	}
	targets := make([]*areaListener, 0, len(a.listeners))
	for _, l := range a.listeners {
		if l.origin != origin {
			targets = append(targets, l)
		}
	}
	a.mu.Unlock()

	for _, l := range targets {
		l.fn(ev)
	}
}

// areaView is one context's handle on a shared area.
type areaView struct {
	shared *sharedArea
	origin uuid.UUID
}

func (v *areaView) GetItem(key string) (string, bool) {
	v.shared.mu.RLock()
	defer v.shared.mu.RUnlock()
	value, ok := v.shared.items[key]
	return value, ok
}

func (v *areaView) SetItem(key, value string) {
	v.shared.write(v.origin, ChangeEvent{Key: key, NewValue: value})
}

func (v *areaView) RemoveItem(key string) {
	v.shared.write(v.origin, ChangeEvent{Key: key, Deleted: true})
}

func (v *areaView) OnChange(fn func(ChangeEvent)) func() {
	id := uuid.New()
	v.shared.mu.Lock()
	v.shared.listeners[id] = &areaListener{origin: v.origin, fn: fn}
	v.shared.mu.Unlock()

	return func() {
		v.shared.mu.Lock()
		delete(v.shared.listeners, id)
		v.shared.mu.Unlock()
	}
}

type memoryCookie struct {
	value   string
	expires time.Time
}

// memoryJar keeps cookies by name; Domain and Path only matter to real
// browsers and are ignored here.
type memoryJar struct {
	mu      sync.Mutex
	cookies map[string]memoryCookie
	now     func() time.Time
}

func (j *memoryJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	if !c.expires.IsZero() && !j.now().Before(c.expires) {
		delete(j.cookies, name)
		return "", false
	}
	return c.value, true
}

func (j *memoryJar) Set(name, value string, opts CookieOptions) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var expires time.Time
	if opts.Expires != 0 {
		expires = j.now().Add(opts.Expires)
	}
	j.cookies[name] = memoryCookie{value: value, expires: expires}
}

func (j *memoryJar) Erase(name string, _ CookieOptions) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, name)
}
