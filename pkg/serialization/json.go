package serialization

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

var (
	jsonMarshalerType   = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
)

var jsonCodec = &codec{
	tag:            "json",
	fieldName:      func(goName string) string { return goName },
	inlineEmbedded: true,
	foldNames:      true,
	leaf: func(t reflect.Type) bool {
		return implementsAny(t, jsonMarshalerType, jsonUnmarshalerType, textMarshalerType, textUnmarshalerType)
	},
	marshal:   json.Marshal,
	unmarshal: json.Unmarshal,
	parse: func(data string) (any, error) {
		dec := json.NewDecoder(strings.NewReader(data))
		dec.UseNumber()
		var tree any
		if err := dec.Decode(&tree); err != nil {
			return nil, err
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, errors.New("invalid character after top-level value")
		}
		return tree, nil
	},
}

// JSONSerializer encodes values with encoding/json. Registered types are
// written as {"$type": name, "$value": ...} wherever they appear.
type JSONSerializer struct {
	registry *Registry
}

// JSON returns a JSONSerializer using registry for type tags. A nil registry
// gets a fresh one.
func JSON(registry *Registry) *JSONSerializer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &JSONSerializer{registry: registry}
}

func (s *JSONSerializer) Serialize(v any) (string, error) {
	tree, err := newWalker(s.registry, jsonCodec).encode(reflect.ValueOf(v))
	if err != nil {
		return "", fmt.Errorf("serialization: encode: %w", err)
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("serialization: encode: %w", err)
	}
	return string(b), nil
}

func (s *JSONSerializer) Deserialize(data string, out any) error {
	dst, err := destination(out)
	if err != nil {
		return err
	}
	if err := newWalker(s.registry, jsonCodec).decode(data, dst); err != nil {
		if errors.Is(err, ErrUnknownType) || errors.Is(err, ErrTypeMismatch) {
			return err
		}
		return fmt.Errorf("serialization: decode: %w", err)
	}
	return nil
}

// Register adds a type to the serializer's registry.
func (s *JSONSerializer) Register(name string, sample any) error {
	return s.registry.Register(name, sample)
}

// Compile-time assertions.
var (
	_ Serializer    = (*JSONSerializer)(nil)
	_ TypeRegistrar = (*JSONSerializer)(nil)
)
