package serialization

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUnknownType is returned when a tagged value names an unregistered
	// type.
	ErrUnknownType = errors.New("serialization: unknown type tag")
	// ErrTypeMismatch is returned when a decoded value cannot be stored in the
	// destination.
	ErrTypeMismatch = errors.New("serialization: value does not fit destination")
	// ErrNotPointer is returned when Deserialize gets a non-pointer destination.
	ErrNotPointer = errors.New("serialization: destination must be a non-nil pointer")
	// ErrRegistrationUnsupported is returned by serializers that cannot
	// register types.
	ErrRegistrationUnsupported = errors.New("serialization: type registration not supported")
)

const (
	typeField  = "$type"
	valueField = "$value"
)

// Serializer turns values into strings and back.
type Serializer interface {
	Serialize(v any) (string, error)
	Deserialize(data string, out any) error
}

// TypeRegistrar is implemented by serializers that accept new types for
// round-trip-safe deserialization.
type TypeRegistrar interface {
	Register(name string, sample any) error
}

// destination validates out and returns the value it points to.
func destination(out any) (reflect.Value, error) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, ErrNotPointer
	}
	return v.Elem(), nil
}

// assign stores src into dst, following pointers when dst expects the
// element type.
func assign(dst, src reflect.Value) error {
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case src.Kind() == reflect.Pointer && src.Elem().Type().AssignableTo(dst.Type()):
		dst.Set(src.Elem())
	case dst.Kind() == reflect.Pointer && src.Type().AssignableTo(dst.Type().Elem()):
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(src)
		dst.Set(p)
	default:
		return fmt.Errorf("%w: %s into %s", ErrTypeMismatch, src.Type(), dst.Type())
	}
	return nil
}

// Funcs adapts a plain function pair into a Serializer.
type Funcs struct {
	SerializeFunc   func(v any) (string, error)
	DeserializeFunc func(data string) (any, error)
	// RegisterFunc is optional; without it Register fails.
	RegisterFunc func(name string, sample any) error
}

func (f Funcs) Serialize(v any) (string, error) {
	return f.SerializeFunc(v)
}

// Deserialize runs DeserializeFunc and stores its result into out.
func (f Funcs) Deserialize(data string, out any) error {
	dst, err := destination(out)
	if err != nil {
		return err
	}
	v, err := f.DeserializeFunc(data)
	if err != nil {
		return err
	}
	if v == nil {
		dst.SetZero()
		return nil
	}
	return assign(dst, reflect.ValueOf(v))
}

func (f Funcs) Register(name string, sample any) error {
	if f.RegisterFunc == nil {
		return ErrRegistrationUnsupported
	}
	return f.RegisterFunc(name, sample)
}

// Compile-time assertions.
var (
	_ Serializer    = Funcs{}
	_ TypeRegistrar = Funcs{}
)
