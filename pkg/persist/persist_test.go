package persist_test

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/encryption"
	"persistentstore/pkg/host"
	"persistentstore/pkg/persist"
	"persistentstore/pkg/serialization"
	"persistentstore/pkg/storage"
	"persistentstore/pkg/store"
)

type call struct {
	op, key, value string
}

// spyStorage records every write and can simulate changes made elsewhere.
type spyStorage struct {
	mu        sync.Mutex
	values    map[string]string
	calls     []call
	listeners map[string][]domain.Listener[string]
}

func newSpy() *spyStorage {
	return &spyStorage{values: map[string]string{}, listeners: map[string][]domain.Listener[string]{}}
}

func (s *spyStorage) GetValue(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *spyStorage) SetValue(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.calls = append(s.calls, call{"set", key, value})
}

func (s *spyStorage) DeleteValue(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.calls = append(s.calls, call{"delete", key, ""})
}

func (s *spyStorage) AddListener(key string, l domain.Listener[string]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[key] = append(s.listeners[key], l)
	idx := len(s.listeners[key]) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners[key][idx] = nil
	}
}

// external simulates another context writing value.
func (s *spyStorage) external(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	ls := append([]domain.Listener[string](nil), s.listeners[key]...)
	s.mu.Unlock()
	for _, l := range ls {
		if l != nil {
			l(domain.Change[string]{Key: key, Value: value})
		}
	}
}

func (s *spyStorage) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *spyStorage) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

// plainStorage hides the listener methods of a spy.
type plainStorage struct{ *spyStorage }

func (plainStorage) AddListener() {}

func newPersister() *persist.Persister {
	return persist.New(persist.WithEnvironment(host.Environment{}), persist.WithoutWarnings())
}

type prefs struct {
	Theme string `json:"theme"`
	Size  int    `json:"size"`
}

func TestPersist_StoredValueWinsImmediately(t *testing.T) {
	spy := newSpy()
	spy.values["prefs"] = `{"theme":"dark","size":3}`

	ps, err := persist.Persist[prefs](newPersister(), store.New(prefs{Theme: "light"}, nil), spy, "prefs")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()

	if got := store.Get[prefs](ps); got != (prefs{Theme: "dark", Size: 3}) {
		t.Fatalf("store value = %+v", got)
	}
}

func TestPersist_EachMutationWritesOnce(t *testing.T) {
	spy := newSpy()
	ps, err := persist.Persist[int](newPersister(), store.New(1, nil), spy, "n")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()
	spy.reset()

	ps.Set(2)
	ps.Update(func(v int) int { return v + 1 })

	want := []call{{"set", "n", "2"}, {"set", "n", "3"}}
	got := spy.recorded()
	if len(got) != len(want) {
		t.Fatalf("calls = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %+v, want %+v", got, want)
		}
	}
}

func TestPersist_InitialValueIsWritten(t *testing.T) {
	spy := newSpy()
	ps, err := persist.Persist[string](newPersister(), store.New("hello", nil), spy, "greeting")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()

	if v, ok := spy.GetValue("greeting"); !ok || v != `"hello"` {
		t.Fatalf("stored = %q, %v", v, ok)
	}
}

func TestPersist_DeleteKeepsMemoryValue(t *testing.T) {
	spy := newSpy()
	ps, err := persist.Persist[string](newPersister(), store.New("v", nil), spy, "k")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()
	spy.reset()

	ps.Delete()

	got := spy.recorded()
	if len(got) != 1 || got[0] != (call{"delete", "k", ""}) {
		t.Fatalf("calls = %+v", got)
	}
	if v := store.Get[string](ps); v != "v" {
		t.Fatalf("memory value = %q", v)
	}
}

func TestPersist_ExternalChangeDoesNotWriteBack(t *testing.T) {
	spy := newSpy()
	ps, err := persist.Persist[prefs](newPersister(), store.New(prefs{}, nil), spy, "prefs")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()
	spy.reset()

	// Formatting differs from what the JSON serializer would produce.
	spy.external("prefs", `{ "size": 9, "theme": "blue" }`)

	if got := store.Get[prefs](ps); got != (prefs{Theme: "blue", Size: 9}) {
		t.Fatalf("store value = %+v", got)
	}
	if calls := spy.recorded(); len(calls) != 0 {
		t.Fatalf("external change written back: %+v", calls)
	}

	ps.Set(prefs{Theme: "red"})
	if calls := spy.recorded(); len(calls) != 1 {
		t.Fatalf("local change after external one: calls = %+v", calls)
	}
}

func TestPersist_IgnoresListenersOfPlainStorage(t *testing.T) {
	spy := newSpy()
	ps, err := persist.Persist[string](newPersister(), store.New("a", nil), plainStorage{spy}, "k")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()

	spy.external("k", `"b"`)
	if v := store.Get[string](ps); v != "a" {
		t.Fatalf("plain storage pushed a change: %q", v)
	}
}

func TestPersist_DeserializationErrorIsReturned(t *testing.T) {
	spy := newSpy()
	spy.values["n"] = "not json"

	_, err := persist.Persist[int](newPersister(), store.New(0, nil), spy, "n")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPersist_CloseStopsMirroring(t *testing.T) {
	spy := newSpy()
	ps, err := persist.Persist[int](newPersister(), store.New(0, nil), spy, "n")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	ps.Close()
	ps.Close()
	spy.reset()

	ps.Set(5)
	spy.external("n", "7")
	if calls := spy.recorded(); len(calls) != 0 {
		t.Fatalf("writes after Close: %+v", calls)
	}
	if v := store.Get[int](ps); v != 5 {
		t.Fatalf("external change applied after Close: %d", v)
	}
}

type countingHandler struct {
	mu    sync.Mutex
	warns int
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *countingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.Level == slog.LevelWarn {
		h.warns++
	}
	return nil
}
func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func TestWritables_MissingBackendKeepsWorkingInMemory(t *testing.T) {
	h := &countingHandler{}
	p := persist.New(persist.WithEnvironment(host.Environment{}), persist.WithLogger(slog.New(h)))

	a, err := persist.LocalWritable(p, "a", 1, nil)
	if err != nil {
		t.Fatalf("LocalWritable: %v", err)
	}
	b, err := persist.Writable(p, "b", 2, nil)
	if err != nil {
		t.Fatalf("Writable: %v", err)
	}
	a.Set(10)
	b.Set(20)

	if store.Get[int](a) != 10 || store.Get[int](b) != 20 {
		t.Fatal("in-memory values lost")
	}
	if h.warns != 1 {
		t.Fatalf("warnings = %d, want 1", h.warns)
	}

	p.DisableWarnings()
	if _, err := persist.SessionWritable(p, "c", 0, nil); err != nil {
		t.Fatalf("SessionWritable: %v", err)
	}
	if h.warns != 1 {
		t.Fatalf("warnings after DisableWarnings = %d, want 1", h.warns)
	}
}

func TestWritables_SurviveReload(t *testing.T) {
	hub := host.NewMemoryHub()
	env := hub.Context()

	first := persist.New(persist.WithEnvironment(env))
	theme, err := persist.LocalWritable(first, "theme", "light", nil)
	if err != nil {
		t.Fatalf("LocalWritable: %v", err)
	}
	theme.Set("dark")
	token, err := persist.CookieWritable(first, "token", "", nil)
	if err != nil {
		t.Fatalf("CookieWritable: %v", err)
	}
	token.Set("abc")
	theme.Close()
	token.Close()

	// A new tab of the same profile.
	second := persist.New(persist.WithEnvironment(hub.Context()))
	reloaded, err := persist.LocalWritable(second, "theme", "light", nil)
	if err != nil {
		t.Fatalf("LocalWritable: %v", err)
	}
	if v := store.Get[string](reloaded); v != "dark" {
		t.Fatalf("theme after reload = %q", v)
	}
	cookie, err := persist.PersistCookie[string](second, store.New("", nil), "token")
	if err != nil {
		t.Fatalf("PersistCookie: %v", err)
	}
	if v := store.Get[string](cookie); v != "abc" {
		t.Fatalf("cookie after reload = %q", v)
	}
	session, err := persist.PersistBrowserSession[string](second, store.New("fresh", nil), "theme")
	if err != nil {
		t.Fatalf("PersistBrowserSession: %v", err)
	}
	if v := store.Get[string](session); v != "fresh" {
		t.Fatalf("session storage shared across tabs: %q", v)
	}
}

func TestPersist_SyncsAcrossContexts(t *testing.T) {
	hub := host.NewMemoryHub()
	pa := persist.New(persist.WithEnvironment(hub.Context()))
	pb := persist.New(persist.WithEnvironment(hub.Context()))

	a, err := persist.Persist[int](pa, store.New(0, nil), pa.Storages().LocalStorage(true), "counter")
	if err != nil {
		t.Fatalf("Persist a: %v", err)
	}
	defer a.Close()
	b, err := persist.Persist[int](pb, store.New(0, nil), pb.Storages().LocalStorage(true), "counter")
	if err != nil {
		t.Fatalf("Persist b: %v", err)
	}
	defer b.Close()

	a.Set(5)
	if v := store.Get[int](b); v != 5 {
		t.Fatalf("b = %d, want 5", v)
	}
	b.Update(func(v int) int { return v + 1 })
	if v := store.Get[int](a); v != 6 {
		t.Fatalf("a = %d, want 6", v)
	}
}

type shape interface{ Sides() int }

type triangle struct{ Name string }

func (triangle) Sides() int { return 3 }

func TestPersister_AddSerializableType(t *testing.T) {
	spy := newSpy()
	p := newPersister()
	if err := p.AddSerializableType("triangle", triangle{}); err != nil {
		t.Fatalf("AddSerializableType: %v", err)
	}

	first, err := persist.Persist[shape](p, store.New[shape](triangle{Name: "t"}, nil), spy, "shape")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	first.Close()

	second, err := persist.Persist[shape](p, store.New[shape](nil, nil), spy, "shape")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer second.Close()
	got, ok := store.Get[shape](second).(triangle)
	if !ok || got.Name != "t" {
		t.Fatalf("restored %#v", store.Get[shape](second))
	}
}

func TestPersister_SetSerialization(t *testing.T) {
	spy := newSpy()
	p := newPersister()
	p.SetSerializationFuncs(
		func(v any) (string, error) { return "n=" + strconv.Itoa(v.(int)), nil },
		func(data string) (any, error) { return strconv.Atoi(data[2:]) },
		nil,
	)

	ps, err := persist.Persist[int](p, store.New(4, nil), spy, "n")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer ps.Close()
	if v, _ := spy.GetValue("n"); v != "n=4" {
		t.Fatalf("stored %q", v)
	}

	if err := p.AddSerializableType("x", 1); !errors.Is(err, serialization.ErrRegistrationUnsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestPersist_EncryptedFileStorage(t *testing.T) {
	key, err := encryption.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	enc, err := encryption.NewGCMEncryption(key)
	if err != nil {
		t.Fatalf("NewGCMEncryption: %v", err)
	}
	dir := t.TempDir()
	files, err := storage.NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	p := newPersister()
	ps, err := persist.Persist[prefs](p, store.New(prefs{Theme: "x", Size: 1}, nil), encryption.NewEncryptionStorage(files, enc), "prefs")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	ps.Set(prefs{Theme: "secret", Size: 2})
	ps.Close()

	if _, ok := files.GetValue("prefs"); ok {
		t.Fatal("key stored in clear")
	}

	reopened, err := storage.NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	again, err := persist.Persist[prefs](p, store.New(prefs{}, nil), encryption.NewEncryptionStorage(reopened, enc), "prefs")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	defer again.Close()
	if got := store.Get[prefs](again); got != (prefs{Theme: "secret", Size: 2}) {
		t.Fatalf("restored %+v", got)
	}
}
