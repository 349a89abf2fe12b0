//go:build js && wasm

package host

import (
	"net/url"
	"strings"
	"sync"
	"syscall/js"
	"time"
)

const (
	idbName  = "keyval-store"
	idbStore = "keyval"
)

// Browser returns the storage APIs of the current page. Members whose API is
// missing or throws on access (sandboxed frames, disabled storage) are nil.
func Browser() Environment {
	global := js.Global()
	env := Environment{
		LocalStorage:   webStorage(global, "localStorage"),
		SessionStorage: webStorage(global, "sessionStorage"),
		IndexedDB:      indexedDB(global),
	}
	if doc := global.Get("document"); truthy(doc) {
		env.Cookies = &documentJar{doc: doc}
	}
	if ext := extensionAreas(global); len(ext) > 0 {
		env.Extension = ext
	}
	return env
}

func truthy(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

// lookup reads global[name], turning a thrown exception into a missing API.
func lookup(parent js.Value, name string) (v js.Value) {
	defer func() {
		if recover() != nil {
			v = js.Undefined()
		}
	}()
	return parent.Get(name)
}

// ---------- Web Storage ----------

type webStorageArea struct {
	window js.Value
	kv     js.Value
}

func webStorage(global js.Value, name string) Area {
	kv := lookup(global, name)
	if !truthy(kv) {
		return nil
	}
	return &webStorageArea{window: global, kv: kv}
}

func (a *webStorageArea) GetItem(key string) (string, bool) {
	v := a.kv.Call("getItem", key)
	if v.IsNull() {
		return "", false
	}
	return v.String(), true
}

func (a *webStorageArea) SetItem(key, value string) {
	a.kv.Call("setItem", key, value)
}

func (a *webStorageArea) RemoveItem(key string) {
	a.kv.Call("removeItem", key)
}

// OnChange listens to the window "storage" event, which browsers fire in
// every tab except the writer.
func (a *webStorageArea) OnChange(fn func(ChangeEvent)) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := args[0]
		if !ev.Get("storageArea").Equal(a.kv) || ev.Get("key").IsNull() {
			return nil
		}
		change := ChangeEvent{Key: ev.Get("key").String()}
		if nv := ev.Get("newValue"); nv.IsNull() {
			change.Deleted = true
		} else {
			change.NewValue = nv.String()
		}
		fn(change)
		return nil
	})
	a.window.Call("addEventListener", "storage", cb)

	var once sync.Once
	return func() {
		once.Do(func() {
			a.window.Call("removeEventListener", "storage", cb)
			cb.Release()
		})
	}
}

// ---------- Cookies ----------

type documentJar struct {
	doc js.Value
}

func (j *documentJar) Get(name string) (string, bool) {
	for _, part := range strings.Split(j.doc.Get("cookie").String(), ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		if dk, err := url.QueryUnescape(k); err != nil || dk != name {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return v, true
		}
		return value, true
	}
	return "", false
}

// Set writes the cookie through document.cookie. HTTPOnly cannot be set from
// script and is ignored.
func (j *documentJar) Set(name, value string, opts CookieOptions) {
	j.doc.Set("cookie", formatCookie(name, value, opts, time.Now()))
}

func (j *documentJar) Erase(name string, opts CookieOptions) {
	opts.Expires = -24 * time.Hour
	j.doc.Set("cookie", formatCookie(name, "", opts, time.Now()))
}

func formatCookie(name, value string, opts CookieOptions, now time.Time) string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(name))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
	if opts.Expires != 0 {
		b.WriteString("; expires=")
		b.WriteString(now.Add(opts.Expires).UTC().Format(time.RFC1123))
	}
	if opts.Domain != "" {
		b.WriteString("; domain=" + opts.Domain)
	}
	if opts.Path != "" {
		b.WriteString("; path=" + opts.Path)
	}
	if opts.Secure {
		b.WriteString("; secure")
	}
	if opts.SameSite != SameSiteDefault {
		b.WriteString("; samesite=" + string(opts.SameSite))
	}
	return b.String()
}

// ---------- Cached async areas ----------

// cachedArea serves reads from memory while writes are forwarded to an
// asynchronous backend. Listeners are told about every key the backend
// reports once it has loaded, and about changes pushed by the backend.
type cachedArea struct {
	mu        sync.Mutex
	items     map[string]string
	listeners map[int]func(ChangeEvent)
	nextID    int

	put    func(key, value string)
	remove func(key string)
}

func newCachedArea() *cachedArea {
	return &cachedArea{items: map[string]string{}, listeners: map[int]func(ChangeEvent){}}
}

func (c *cachedArea) GetItem(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *cachedArea) SetItem(key, value string) {
	c.mu.Lock()
	c.items[key] = value
	put := c.put
	c.mu.Unlock()
	if put != nil {
		put(key, value)
	}
}

func (c *cachedArea) RemoveItem(key string) {
	c.mu.Lock()
	delete(c.items, key)
	remove := c.remove
	c.mu.Unlock()
	if remove != nil {
		remove(key)
	}
}

func (c *cachedArea) OnChange(fn func(ChangeEvent)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// apply records a change coming from the backend and notifies listeners.
// Changes that match the cache already (the echo of our own writes) are
// dropped.
func (c *cachedArea) apply(ev ChangeEvent) {
	c.mu.Lock()
	current, ok := c.items[ev.Key]
	if (ev.Deleted && !ok) || (!ev.Deleted && ok && current == ev.NewValue) {
		c.mu.Unlock()
		return
	}
	if ev.Deleted {
		delete(c.items, ev.Key)
	} else {
		c.items[ev.Key] = ev.NewValue
	}
	fns := make([]func(ChangeEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ---------- IndexedDB ----------

func indexedDB(global js.Value) Area {
	factory := lookup(global, "indexedDB")
	if !truthy(factory) {
		return nil
	}

	area := newCachedArea()
	var (
		mu      sync.Mutex
		db      js.Value
		pending []func(js.Value)
	)
	run := func(op func(js.Value)) {
		mu.Lock()
		if db.IsUndefined() {
			pending = append(pending, op)
			mu.Unlock()
			return
		}
		d := db
		mu.Unlock()
		op(d)
	}
	objectStore := func(d js.Value, mode string) js.Value {
		return d.Call("transaction", idbStore, mode).Call("objectStore", idbStore)
	}
	area.put = func(key, value string) {
		run(func(d js.Value) { objectStore(d, "readwrite").Call("put", value, key) })
	}
	area.remove = func(key string) {
		run(func(d js.Value) { objectStore(d, "readwrite").Call("delete", key) })
	}

	req := factory.Call("open", idbName)
	var onUpgrade, onSuccess js.Func
	onUpgrade = js.FuncOf(func(this js.Value, args []js.Value) any {
		req.Get("result").Call("createObjectStore", idbStore)
		return nil
	})
	onSuccess = js.FuncOf(func(this js.Value, args []js.Value) any {
		d := req.Get("result")
		loadAll(objectStore(d, "readonly"), area)

		mu.Lock()
		db = d
		ops := pending
		pending = nil
		mu.Unlock()
		for _, op := range ops {
			op(d)
		}
		onUpgrade.Release()
		onSuccess.Release()
		return nil
	})
	req.Set("onupgradeneeded", onUpgrade)
	req.Set("onsuccess", onSuccess)
	return area
}

// loadAll walks the object store with a cursor and feeds every entry into
// area.
func loadAll(store js.Value, area *cachedArea) {
	req := store.Call("openCursor")
	var onSuccess js.Func
	onSuccess = js.FuncOf(func(this js.Value, args []js.Value) any {
		cursor := req.Get("result")
		if !truthy(cursor) {
			onSuccess.Release()
			return nil
		}
		key := cursor.Get("key").String()
		if _, written := area.GetItem(key); !written {
			area.apply(ChangeEvent{Key: key, NewValue: cursor.Get("value").String()})
		}
		cursor.Call("continue")
		return nil
	})
	req.Set("onsuccess", onSuccess)
}

// ---------- Extension storage ----------

func extensionAreas(global js.Value) map[ExtensionArea]Area {
	chrome := lookup(global, "chrome")
	if !truthy(chrome) {
		return nil
	}
	storage := lookup(chrome, "storage")
	if !truthy(storage) {
		return nil
	}

	out := map[ExtensionArea]Area{}
	for _, name := range []ExtensionArea{ExtensionLocal, ExtensionSession, ExtensionSync} {
		api := lookup(storage, string(name))
		if !truthy(api) {
			continue
		}
		out[name] = extensionArea(storage, api, name)
	}
	return out
}

func extensionArea(storage, api js.Value, name ExtensionArea) Area {
	area := newCachedArea()
	area.put = func(key, value string) {
		items := js.Global().Get("Object").New()
		items.Set(key, value)
		api.Call("set", items)
	}
	area.remove = func(key string) {
		api.Call("remove", key)
	}

	var onLoad js.Func
	onLoad = js.FuncOf(func(this js.Value, args []js.Value) any {
		items := args[0]
		keys := js.Global().Get("Object").Call("keys", items)
		for i := 0; i < keys.Length(); i++ {
			key := keys.Index(i).String()
			if _, written := area.GetItem(key); !written {
				area.apply(ChangeEvent{Key: key, NewValue: items.Get(key).String()})
			}
		}
		onLoad.Release()
		return nil
	})
	api.Call("get", js.Null(), onLoad)

	onChanged := js.FuncOf(func(this js.Value, args []js.Value) any {
		changes, areaName := args[0], args[1].String()
		if areaName != string(name) {
			return nil
		}
		keys := js.Global().Get("Object").Call("keys", changes)
		for i := 0; i < keys.Length(); i++ {
			key := keys.Index(i).String()
			nv := changes.Get(key).Get("newValue")
			if nv.IsUndefined() {
				area.apply(ChangeEvent{Key: key, Deleted: true})
				continue
			}
			area.apply(ChangeEvent{Key: key, NewValue: nv.String()})
		}
		return nil
	})
	storage.Get("onChanged").Call("addListener", onChanged)
	return area
}
