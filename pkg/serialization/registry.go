package serialization

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry maps type tags to concrete types.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]reflect.Type{},
		byType: map[reflect.Type]string{},
	}
}

// Register records the dynamic type of sample under name. Values of that
// type get tagged wherever they sit in a serialized value, including behind
// pointers, slices, maps and struct fields.
func (r *Registry) Register(name string, sample any) error {
	if name == "" {
		return fmt.Errorf("serialization: empty type name")
	}
	t := reflect.TypeOf(sample)
	if t == nil {
		return fmt.Errorf("serialization: cannot register nil as %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok && existing != t {
		return fmt.Errorf("serialization: %q already registered for %s", name, existing)
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

func (r *Registry) lookup(name string) (reflect.Type, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) nameOfType(t reflect.Type) (string, bool) {
	if r == nil || t == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byType[t]
	return name, ok
}

func (r *Registry) empty() bool {
	if r == nil {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName) == 0
}

// newValue returns a pointer to a fresh value of the type registered as name.
func (r *Registry) newValue(name string) (reflect.Value, error) {
	t, ok := r.lookup(name)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()), nil
	}
	return reflect.New(t), nil
}

// concrete converts the pointer produced by newValue back into the registered
// shape.
func (r *Registry) concrete(name string, ptr reflect.Value) reflect.Value {
	t, _ := r.lookup(name)
	if t.Kind() == reflect.Pointer {
		return ptr
	}
	return ptr.Elem()
}
