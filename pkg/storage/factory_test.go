package storage_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"persistentstore/pkg/domain"
	"persistentstore/pkg/host"
	"persistentstore/pkg/storage"
)

// recordingHandler collects log records for assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) warnings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == slog.LevelWarn {
			n++
		}
	}
	return n
}

func TestFactory_MissingAPIWarnsOnceAndFallsBackToNoop(t *testing.T) {
	h := &recordingHandler{}
	f := storage.NewFactory(host.Environment{}, storage.WithLogger(slog.New(h)))

	s := f.LocalStorage(false)
	s.SetValue("k", "v")
	if _, ok := s.GetValue("k"); ok {
		t.Fatal("noop storage returned a value")
	}
	s.DeleteValue("k")

	_ = f.LocalStorage(true)
	if got := h.warnings(); got != 1 {
		t.Fatalf("warnings = %d, want 1", got)
	}

	_ = f.SessionStorage(false)
	if got := h.warnings(); got != 2 {
		t.Fatalf("warnings after session storage = %d, want 2", got)
	}
}

func TestFactory_DisableWarnings(t *testing.T) {
	h := &recordingHandler{}
	f := storage.NewFactory(host.Environment{}, storage.WithLogger(slog.New(h)))
	f.DisableWarnings()

	_ = f.LocalStorage(false)
	_ = f.CookieStorage(storage.CookieOptions{})
	_ = f.IndexedDBStorage()
	_ = f.ChromeStorage(storage.ChromeSync, true)

	if got := h.warnings(); got != 0 {
		t.Fatalf("warnings = %d, want 0", got)
	}
}

func TestFactory_RoundTripAcrossAdapters(t *testing.T) {
	f := storage.NewFactory(host.NewMemoryHub().Context())

	cases := map[string]domain.Storage[string]{
		"local":          f.LocalStorage(false),
		"local-listen":   f.LocalStorage(true),
		"session":        f.SessionStorage(false),
		"cookie":         f.CookieStorage(storage.CookieOptions{}),
		"indexeddb":      f.IndexedDBStorage(),
		"chrome-local":   f.ChromeStorage(storage.ChromeLocal, false),
		"chrome-sync":    f.ChromeStorage(storage.ChromeSync, true),
		"chrome-session": f.ChromeStorage(storage.ChromeSession, true),
		"memory":         storage.NewMemoryStorage[string](),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := s.GetValue("k"); ok {
				t.Fatal("unexpected value before set")
			}
			s.SetValue("k", `{"a":1}`)
			got, ok := s.GetValue("k")
			if !ok || got != `{"a":1}` {
				t.Fatalf("GetValue = %q, %v", got, ok)
			}
			s.DeleteValue("k")
			if _, ok := s.GetValue("k"); ok {
				t.Fatal("value still present after delete")
			}
		})
	}
}

func TestFactory_LocalStorageNotifiesOtherContexts(t *testing.T) {
	hub := host.NewMemoryHub()
	writer := storage.NewFactory(hub.Context()).LocalStorage(false)
	reader, ok := storage.NewFactory(hub.Context()).LocalStorage(true).(domain.SelfUpdateStorage[string])
	if !ok {
		t.Fatal("listening local storage is not self-updating")
	}
	self := storage.NewFactory(hub.Context())
	selfStorage := self.LocalStorage(true).(domain.SelfUpdateStorage[string])

	var got []domain.Change[string]
	remove := reader.AddListener("theme", func(c domain.Change[string]) { got = append(got, c) })
	selfCalls := 0
	removeSelf := selfStorage.AddListener("theme", func(domain.Change[string]) { selfCalls++ })
	defer removeSelf()

	writer.SetValue("theme", "dark")
	writer.SetValue("other", "x")
	selfStorage.SetValue("theme", "light")
	writer.DeleteValue("theme")

	if len(got) != 3 {
		t.Fatalf("changes = %+v, want 3", got)
	}
	if got[0].Value != "dark" || got[1].Value != "light" || !got[2].Deleted {
		t.Fatalf("unexpected changes %+v", got)
	}
	if selfCalls != 2 {
		t.Fatalf("self listener calls = %d, want 2", selfCalls)
	}

	remove()
	remove()
	writer.SetValue("theme", "blue")
	if len(got) != 3 {
		t.Fatalf("listener called after removal")
	}
}

func TestFactory_SessionStorageIsPerContext(t *testing.T) {
	hub := host.NewMemoryHub()
	a := storage.NewFactory(hub.Context()).SessionStorage(false)
	b := storage.NewFactory(hub.Context()).SessionStorage(false)

	a.SetValue("k", "v")
	if _, ok := b.GetValue("k"); ok {
		t.Fatal("session storage leaked across contexts")
	}
}

func TestFactory_ChromeStorageWithoutListenIsSilent(t *testing.T) {
	hub := host.NewMemoryHub()
	writer := storage.NewFactory(hub.Context()).ChromeStorage(storage.ChromeLocal, false)
	reader := storage.NewFactory(hub.Context()).ChromeStorage(storage.ChromeLocal, false)

	calls := 0
	defer reader.AddListener("k", func(domain.Change[string]) { calls++ })()
	writer.SetValue("k", "v")

	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
	if v, ok := reader.GetValue("k"); !ok || v != "v" {
		t.Fatalf("reader GetValue = %q, %v", v, ok)
	}
}
