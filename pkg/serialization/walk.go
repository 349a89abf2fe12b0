package serialization

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// codec describes how one wire format names struct fields and moves a
// generic tree (maps, slices, scalars) to and from text.
type codec struct {
	tag       string
	fieldName func(goName string) string
	// inlineEmbedded flattens untagged embedded structs, as encoding/json does.
	inlineEmbedded bool
	foldNames      bool
	leaf           func(t reflect.Type) bool
	marshal        func(v any) ([]byte, error)
	unmarshal      func(data []byte, out any) error
	parse          func(data string) (any, error)
}

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// implementsAny reports whether t or *t implements one of ifaces.
func implementsAny(t reflect.Type, ifaces ...reflect.Type) bool {
	for _, iface := range ifaces {
		if t.Implements(iface) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(iface)) {
			return true
		}
	}
	return false
}

// walker tags registered types wherever they sit in a value and restores
// them on the way back. Types that cannot hold a registered value are handed
// to the codec untouched.
type walker struct {
	reg      *Registry
	c        *codec
	memo     map[reflect.Type]bool
	visiting map[reflect.Type]bool
}

func newWalker(reg *Registry, c *codec) *walker {
	return &walker{
		reg:      reg,
		c:        c,
		memo:     map[reflect.Type]bool{},
		visiting: map[reflect.Type]bool{},
	}
}

// needsWalk reports whether a value of type t may contain a tagged value.
func (w *walker) needsWalk(t reflect.Type) bool {
	if r, ok := w.memo[t]; ok {
		return r
	}
	if w.visiting[t] {
		return false
	}
	w.visiting[t] = true
	r := w.inspect(t)
	delete(w.visiting, t)
	// A false answer reached inside a cycle may be incomplete.
	if r || len(w.visiting) == 0 {
		w.memo[t] = r
	}
	return r
}

func (w *walker) inspect(t reflect.Type) bool {
	if _, ok := w.reg.nameOfType(t); ok {
		return true
	}
	if w.reg.empty() || w.c.leaf(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Pointer, reflect.Array, reflect.Map:
		return w.needsWalk(t.Elem())
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8 && w.needsWalk(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() && w.needsWalk(f.Type) {
				return true
			}
		}
	}
	return false
}

type fieldInfo struct {
	name      string
	omitEmpty bool
	inline    bool
}

// field applies the codec's struct tag rules; ok is false for skipped fields.
func (w *walker) field(f reflect.StructField) (fieldInfo, bool) {
	if !f.IsExported() {
		return fieldInfo{}, false
	}
	tag := f.Tag.Get(w.c.tag)
	if tag == "-" {
		return fieldInfo{}, false
	}
	name, opts, _ := strings.Cut(tag, ",")
	info := fieldInfo{name: name}
	for _, opt := range strings.Split(opts, ",") {
		switch opt {
		case "omitempty":
			info.omitEmpty = true
		case "inline":
			info.inline = true
		}
	}
	isStruct := f.Type.Kind() == reflect.Struct ||
		(f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct)
	if name == "" && f.Anonymous && isStruct && w.c.inlineEmbedded {
		info.inline = true
	}
	if info.inline && !isStruct {
		info.inline = false
	}
	if info.name == "" {
		info.name = w.c.fieldName(f.Name)
	}
	return info, true
}

// ---------- encoding ----------

func (w *walker) encode(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		return w.encode(v.Elem())
	}
	if name, ok := w.reg.nameOfType(v.Type()); ok {
		inner, err := w.encodeValue(v)
		if err != nil {
			return nil, err
		}
		return map[string]any{typeField: name, valueField: inner}, nil
	}
	return w.encodeValue(v)
}

func (w *walker) encodeValue(v reflect.Value) (any, error) {
	t := v.Type()
	if w.c.leaf(t) || !w.needsWalk(t) {
		return v.Interface(), nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return w.encode(v.Elem())
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		out := make([]any, v.Len())
		for i := range out {
			item, err := w.encode(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, err := formatKey(iter.Key())
			if err != nil {
				return nil, err
			}
			item, err := w.encode(iter.Value())
			if err != nil {
				return nil, err
			}
			out[key] = item
		}
		return out, nil
	case reflect.Struct:
		out := map[string]any{}
		if err := w.encodeStruct(v, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return v.Interface(), nil
}

func (w *walker) encodeStruct(v reflect.Value, out map[string]any) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		info, ok := w.field(t.Field(i))
		if !ok {
			continue
		}
		fv := v.Field(i)
		if info.inline {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if err := w.encodeStruct(fv, out); err != nil {
				return err
			}
			continue
		}
		if info.omitEmpty && fv.IsZero() {
			continue
		}
		item, err := w.encode(fv)
		if err != nil {
			return err
		}
		out[info.name] = item
	}
	return nil
}

func formatKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "", fmt.Errorf("serialization: nil map key")
		}
		k = k.Elem()
	}
	if k.Type().Implements(textMarshalerType) {
		b, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("serialization: unsupported map key type %s", k.Type())
}

// ---------- decoding ----------

// decode reads data into dst, walking the destination type only where a
// tagged value can appear.
func (w *walker) decode(data string, dst reflect.Value) error {
	if !w.needsWalk(dst.Type()) && dst.Kind() != reflect.Interface {
		return w.c.unmarshal([]byte(data), dst.Addr().Interface())
	}
	tree, err := w.c.parse(data)
	if err != nil {
		return err
	}
	return w.bind(tree, dst)
}

// envelope reports whether node is a tagged value.
func envelope(node any) (name string, value any, ok bool) {
	m, isMap := node.(map[string]any)
	if !isMap || len(m) != 2 {
		return "", nil, false
	}
	name, isString := m[typeField].(string)
	value, hasValue := m[valueField]
	if !isString || !hasValue {
		return "", nil, false
	}
	return name, value, true
}

// restore builds the registered value a tagged node describes.
func (w *walker) restore(name string, value any) (reflect.Value, error) {
	ptr, err := w.reg.newValue(name)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := w.bind(value, ptr.Elem()); err != nil {
		return reflect.Value{}, fmt.Errorf("serialization: decode %s: %w", name, err)
	}
	return w.reg.concrete(name, ptr), nil
}

func (w *walker) bind(node any, dst reflect.Value) error {
	if name, value, ok := envelope(node); ok {
		v, err := w.restore(name, value)
		if err != nil {
			return err
		}
		return assign(dst, v)
	}

	t := dst.Type()
	if w.c.leaf(t) || (!w.needsWalk(t) && t.Kind() != reflect.Interface) {
		return w.leaf(node, dst)
	}
	if node == nil {
		dst.SetZero()
		return nil
	}

	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return fmt.Errorf("%w: untagged value for %s", ErrTypeMismatch, t)
		}
		v, err := w.generic(node)
		if err != nil {
			return err
		}
		if v == nil {
			dst.SetZero()
			return nil
		}
		dst.Set(reflect.ValueOf(v))
		return nil
	case reflect.Pointer:
		p := reflect.New(t.Elem())
		if err := w.bind(node, p.Elem()); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Slice, reflect.Array:
		items, ok := node.([]any)
		if !ok {
			return fmt.Errorf("%w: %T into %s", ErrTypeMismatch, node, t)
		}
		if t.Kind() == reflect.Slice {
			dst.Set(reflect.MakeSlice(t, len(items), len(items)))
		}
		for i := 0; i < len(items) && i < dst.Len(); i++ {
			if err := w.bind(items[i], dst.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		m, ok := node.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %T into %s", ErrTypeMismatch, node, t)
		}
		out := reflect.MakeMapWithSize(t, len(m))
		for k, v := range m {
			key, err := parseKey(k, t.Key())
			if err != nil {
				return err
			}
			item := reflect.New(t.Elem()).Elem()
			if err := w.bind(v, item); err != nil {
				return err
			}
			out.SetMapIndex(key, item)
		}
		dst.Set(out)
		return nil
	case reflect.Struct:
		m, ok := node.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %T into %s", ErrTypeMismatch, node, t)
		}
		return w.bindStruct(m, dst)
	}
	return w.leaf(node, dst)
}

func (w *walker) bindStruct(m map[string]any, dst reflect.Value) error {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		info, ok := w.field(t.Field(i))
		if !ok {
			continue
		}
		fv := dst.Field(i)
		if info.inline {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					fv.Set(reflect.New(fv.Type().Elem()))
				}
				fv = fv.Elem()
			}
			if err := w.bindStruct(m, fv); err != nil {
				return err
			}
			continue
		}
		node, found := w.lookup(m, info.name)
		if !found {
			continue
		}
		if err := w.bind(node, fv); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) lookup(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	if w.c.foldNames {
		for k, v := range m {
			if strings.EqualFold(k, name) {
				return v, true
			}
		}
	}
	return nil, false
}

// generic decodes node the way the codec fills an empty interface, restoring
// tagged values found at any depth.
func (w *walker) generic(node any) (any, error) {
	if name, value, ok := envelope(node); ok {
		v, err := w.restore(name, value)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
	switch n := node.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			item, err := w.generic(v)
			if err != nil {
				return nil, err
			}
			out[k] = item
		}
		return out, nil
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			item, err := w.generic(v)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	}
	var out any
	if err := w.leaf(node, reflect.ValueOf(&out).Elem()); err != nil {
		return nil, err
	}
	return out, nil
}

// leaf hands node back to the codec for a destination that holds no tags.
func (w *walker) leaf(node any, dst reflect.Value) error {
	b, err := w.c.marshal(node)
	if err != nil {
		return err
	}
	return w.c.unmarshal(b, dst.Addr().Interface())
}

func parseKey(s string, t reflect.Type) (reflect.Value, error) {
	key := reflect.New(t).Elem()
	if implementsAny(t, textUnmarshalerType) && t.Kind() != reflect.Pointer {
		if err := key.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return key, nil
	}
	switch t.Kind() {
	case reflect.String:
		key.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("serialization: map key %q: %w", s, err)
		}
		key.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("serialization: map key %q: %w", s, err)
		}
		key.SetUint(n)
	default:
		return reflect.Value{}, fmt.Errorf("serialization: unsupported map key type %s", t)
	}
	return key, nil
}
