package storage

import (
	"sync"

	"persistentstore/pkg/domain"
)

// listenerSet keeps per-key listeners. onFirst runs when the set goes from
// empty to non-empty and returns the func run when it becomes empty again;
// adapters use it to attach to their host change feed only while needed.
type listenerSet[T any] struct {
	mu      sync.Mutex
	byKey   map[string]map[int]domain.Listener[T]
	nextID  int
	count   int
	onFirst func() (detach func())
	detach  func()
}

func newListenerSet[T any](onFirst func() func()) *listenerSet[T] {
	return &listenerSet[T]{byKey: map[string]map[int]domain.Listener[T]{}, onFirst: onFirst}
}

func (s *listenerSet[T]) add(key string, fn domain.Listener[T]) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.byKey[key] == nil {
		s.byKey[key] = map[int]domain.Listener[T]{}
	}
	s.byKey[key][id] = fn
	s.count++
	attach := s.count == 1 && s.onFirst != nil
	s.mu.Unlock()

	if attach {
		detach := s.onFirst()
		s.mu.Lock()
		s.detach = detach
		s.mu.Unlock()
	}

	var once sync.Once
	return func() { once.Do(func() { s.remove(key, id) }) }
}

func (s *listenerSet[T]) remove(key string, id int) {
	s.mu.Lock()
	if _, ok := s.byKey[key][id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.byKey[key], id)
	if len(s.byKey[key]) == 0 {
		delete(s.byKey, key)
	}
	s.count--
	var detach func()
	if s.count == 0 {
		detach, s.detach = s.detach, nil
	}
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// len returns the number of registered listeners.
func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// dispatch calls every listener registered for change.Key.
func (s *listenerSet[T]) dispatch(change domain.Change[T]) {
	s.mu.Lock()
	fns := make([]domain.Listener[T], 0, len(s.byKey[change.Key]))
	for _, fn := range s.byKey[change.Key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
