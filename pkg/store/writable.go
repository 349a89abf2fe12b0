package store

import (
	"reflect"
	"sync"

	"persistentstore/pkg/domain"
)

type subscription[T any] struct {
	run domain.Subscriber[T]
}

// Writable is a concurrency-safe reactive store.
type Writable[T any] struct {
	// lifecycle orders start and stop against subscribe and unsubscribe.
	lifecycle   sync.Mutex
	mu          sync.Mutex
	value       T
	start       domain.StartStopNotifier[T]
	stop        func()
	active      bool
	subscribers []*subscription[T]
}

// New returns a Writable holding initial. start may be nil.
func New[T any](initial T, start domain.StartStopNotifier[T]) *Writable[T] {
	return &Writable[T]{value: initial, start: start}
}

// Set replaces the value and notifies subscribers if it changed.
func (w *Writable[T]) Set(value T) {
	w.mu.Lock()
	if equal(w.value, value) {
		w.mu.Unlock()
		return
	}
	w.value = value
	var subs []*subscription[T]
	if w.active {
		subs = w.snapshot()
	}
	w.mu.Unlock()

	for _, s := range subs {
		s.run(value)
	}
}

// Update sets the value returned by fn applied to the current value.
func (w *Writable[T]) Update(fn domain.Updater[T]) {
	w.mu.Lock()
	current := w.value
	w.mu.Unlock()
	w.Set(fn(current))
}

// Subscribe registers run and calls it with the current value.
func (w *Writable[T]) Subscribe(run domain.Subscriber[T]) func() {
	sub := &subscription[T]{run: run}

	w.lifecycle.Lock()
	w.mu.Lock()
	w.subscribers = append(w.subscribers, sub)
	first := !w.active
	w.mu.Unlock()

	if first {
		// Values set by start are picked up by run below; subscribers are
		// only notified once start has returned.
		var stop func()
		if w.start != nil {
			stop = w.start(w.Set, w.Update)
		}
		w.mu.Lock()
		w.stop = stop
		w.active = true
		w.mu.Unlock()
	}
	w.lifecycle.Unlock()

	w.mu.Lock()
	current := w.value
	w.mu.Unlock()
	run(current)

	var once sync.Once
	return func() {
		once.Do(func() { w.unsubscribe(sub) })
	}
}

func (w *Writable[T]) unsubscribe(sub *subscription[T]) {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	for i, s := range w.subscribers {
		if s == sub {
			w.subscribers = append(w.subscribers[:i:i], w.subscribers[i+1:]...)
			break
		}
	}
	var stop func()
	if len(w.subscribers) == 0 && w.active {
		stop = w.stop
		w.stop = nil
		w.active = false
	}
	w.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// snapshot copies the subscriber list; callers hold w.mu.
func (w *Writable[T]) snapshot() []*subscription[T] {
	out := make([]*subscription[T], len(w.subscribers))
	copy(out, w.subscribers)
	return out
}

// Get returns the current value of any readable store.
func Get[T any](r domain.Readable[T]) T {
	var value T
	unsubscribe := r.Subscribe(func(v T) { value = v })
	unsubscribe()
	return value
}

// equal reports whether a and b are comparable and equal. Pointers and
// non-comparable values (maps, slices, structs holding them) are never equal,
// so setting them always notifies, even after an in-place mutation.
func equal[T any](a, b T) bool {
	va, vb := reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem()
	if isReference(va) || isReference(vb) {
		return false
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return va.Equal(vb)
}

func isReference(v reflect.Value) bool {
	if v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// Compile-time assertion that Writable implements domain.Writable.
var _ domain.Writable[int] = (*Writable[int])(nil)
