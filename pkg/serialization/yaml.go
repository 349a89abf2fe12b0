package serialization

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	yamlMarshalerType   = reflect.TypeOf((*yaml.Marshaler)(nil)).Elem()
	yamlUnmarshalerType = reflect.TypeOf((*yaml.Unmarshaler)(nil)).Elem()
	yamlNodeType        = reflect.TypeOf(yaml.Node{})
)

var yamlCodec = &codec{
	tag:       "yaml",
	fieldName: strings.ToLower,
	leaf: func(t reflect.Type) bool {
		return t == yamlNodeType ||
			implementsAny(t, yamlMarshalerType, yamlUnmarshalerType, textMarshalerType, textUnmarshalerType)
	},
	marshal: yaml.Marshal,
	unmarshal: func(data []byte, out any) error {
		return yaml.Unmarshal(data, out)
	},
	parse: func(data string) (any, error) {
		var tree any
		if err := yaml.Unmarshal([]byte(data), &tree); err != nil {
			return nil, err
		}
		return tree, nil
	},
}

// YAMLSerializer encodes values with gopkg.in/yaml.v3. Registered types are
// written as a {$type, $value} mapping wherever they appear.
type YAMLSerializer struct {
	registry *Registry
}

// YAML returns a YAMLSerializer using registry for type tags. A nil registry
// gets a fresh one.
func YAML(registry *Registry) *YAMLSerializer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &YAMLSerializer{registry: registry}
}

func (s *YAMLSerializer) Serialize(v any) (string, error) {
	tree, err := newWalker(s.registry, yamlCodec).encode(reflect.ValueOf(v))
	if err != nil {
		return "", fmt.Errorf("serialization: encode: %w", err)
	}
	b, err := yaml.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("serialization: encode: %w", err)
	}
	return string(b), nil
}

func (s *YAMLSerializer) Deserialize(data string, out any) error {
	dst, err := destination(out)
	if err != nil {
		return err
	}
	if err := newWalker(s.registry, yamlCodec).decode(data, dst); err != nil {
		if errors.Is(err, ErrUnknownType) || errors.Is(err, ErrTypeMismatch) {
			return err
		}
		return fmt.Errorf("serialization: decode: %w", err)
	}
	return nil
}

// Register adds a type to the serializer's registry.
func (s *YAMLSerializer) Register(name string, sample any) error {
	return s.registry.Register(name, sample)
}

// Compile-time assertions.
var (
	_ Serializer    = (*YAMLSerializer)(nil)
	_ TypeRegistrar = (*YAMLSerializer)(nil)
)
