package keypath

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ErrTypeMismatch indicates a write whose value cannot be stored in the typed
// container found along the path.
var ErrTypeMismatch = errors.New("keypath: type mismatch")

// ErrIndexOutOfRange indicates a write whose index would grow a list by more
// than MaxListGrowth elements.
var ErrIndexOutOfRange = errors.New("keypath: index out of range")

// MaxListGrowth bounds how far past the end of a list a single write may
// reach. Skipped positions are filled with zero values.
const MaxListGrowth = 1024

// Get reads the value stored at p. Root and the empty path address the whole
// tree. Missing segments yield (nil, false).
func Get(tree any, p Path) (any, bool) {
	if p.root || len(p.segments) == 0 {
		return tree, true
	}
	current := tree
	for _, segment := range p.segments {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Lookup is Get without the presence flag.
func Lookup(tree any, p Path) any {
	value, _ := Get(tree, p)
	return value
}

// Set writes value at p and returns the resulting tree. The input tree is
// never mutated: every container along the path is copied and the untouched
// branches are shared. Missing intermediate containers are created as []any
// when the following segment is an index and map[string]any otherwise.
func Set(tree any, p Path, value any) (any, error) {
	if p.root || len(p.segments) == 0 {
		return value, nil
	}
	out, err := setIn(tree, p.segments, value)
	if err != nil {
		return nil, fmt.Errorf("keypath: set %q: %w", p.String(), err)
	}
	return out, nil
}

func child(node any, segment string) (any, bool) {
	switch typed := node.(type) {
	case nil:
		return nil, false
	case map[string]any:
		value, ok := typed[segment]
		return value, ok
	case []any:
		idx, ok := IsIndex(segment)
		if !ok || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	}

	rv := indirect(reflect.ValueOf(node))
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, ok := IsIndex(segment)
		if !ok || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		idx, ok := fieldIndex(rv.Type(), segment)
		if !ok {
			return nil, false
		}
		return rv.Field(idx).Interface(), true
	default:
		return nil, false
	}
}

func setIn(node any, segments []string, value any) (any, error) {
	segment := segments[0]
	next := value
	if len(segments) > 1 {
		existing, _ := child(node, segment)
		updated, err := setIn(existing, segments[1:], value)
		if err != nil {
			return nil, err
		}
		next = updated
	}

	switch typed := node.(type) {
	case map[string]any:
		out := maps.Clone(typed)
		if out == nil {
			out = map[string]any{}
		}
		out[segment] = next
		return out, nil
	case []any:
		idx, ok := IsIndex(segment)
		if !ok {
			return nil, fmt.Errorf("%w: segment %q is not an index into []any", ErrTypeMismatch, segment)
		}
		size, err := grownLen(len(typed), idx)
		if err != nil {
			return nil, err
		}
		out := make([]any, size)
		copy(out, typed)
		out[idx] = next
		return out, nil
	}

	rv := reflect.ValueOf(node)
	if !isContainer(rv) {
		return freshContainer(segment, next)
	}
	updated, err := setReflect(rv, segment, next)
	if err != nil {
		return nil, err
	}
	return updated.Interface(), nil
}

func freshContainer(segment string, value any) (any, error) {
	if idx, ok := IsIndex(segment); ok {
		size, err := grownLen(0, idx)
		if err != nil {
			return nil, err
		}
		out := make([]any, size)
		out[idx] = value
		return out, nil
	}
	return map[string]any{segment: value}, nil
}

// grownLen returns the length of a list of length n after writing idx.
func grownLen(n, idx int) (int, error) {
	if idx < n {
		return n, nil
	}
	if idx-n >= MaxListGrowth {
		return 0, fmt.Errorf("%w: index %d is more than %d past length %d", ErrIndexOutOfRange, idx, MaxListGrowth, n)
	}
	return idx + 1, nil
}

func isContainer(rv reflect.Value) bool {
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Map:
		return !rv.IsNil() || rv.Type().Key().Kind() == reflect.String
	case reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Pointer:
		return !rv.IsNil() && isContainer(rv.Elem())
	default:
		return false
	}
}

func setReflect(rv reflect.Value, segment string, value any) (reflect.Value, error) {
	switch rv.Kind() {
	case reflect.Pointer:
		inner, err := setReflect(rv.Elem(), segment, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(inner)
		return out, nil
	case reflect.Map:
		keyType := rv.Type().Key()
		if keyType.Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("%w: map key %s is not a string", ErrTypeMismatch, keyType)
		}
		elem, err := assignable(rv.Type().Elem(), value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len()+1)
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		out.SetMapIndex(reflect.ValueOf(segment).Convert(keyType), elem)
		return out, nil
	case reflect.Slice:
		idx, ok := IsIndex(segment)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: segment %q is not an index into %s", ErrTypeMismatch, segment, rv.Type())
		}
		elem, err := assignable(rv.Type().Elem(), value)
		if err != nil {
			return reflect.Value{}, err
		}
		size, err := grownLen(rv.Len(), idx)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(rv.Type(), size, size)
		reflect.Copy(out, rv)
		out.Index(idx).Set(elem)
		return out, nil
	case reflect.Array:
		idx, ok := IsIndex(segment)
		if !ok || idx >= rv.Len() {
			return reflect.Value{}, fmt.Errorf("%w: segment %q is out of range for %s", ErrTypeMismatch, segment, rv.Type())
		}
		elem, err := assignable(rv.Type().Elem(), value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		out.Index(idx).Set(elem)
		return out, nil
	case reflect.Struct:
		idx, ok := fieldIndex(rv.Type(), segment)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: %s has no field %q", ErrTypeMismatch, rv.Type(), segment)
		}
		elem, err := assignable(rv.Type().Field(idx).Type, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		out.Field(idx).Set(elem)
		return out, nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: cannot address %q on %s", ErrTypeMismatch, segment, rv.Type())
	}
}

func assignable(target reflect.Type, value any) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(target.Kind()) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %s as %s", ErrTypeMismatch, rv.Type(), target)
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// fieldIndex resolves segment against exported field names and json tags.
func fieldIndex(rt reflect.Type, segment string) (int, bool) {
	fields := reflect.VisibleFields(rt)
	idx := slices.IndexFunc(fields, func(f reflect.StructField) bool {
		if !f.IsExported() || len(f.Index) != 1 {
			return false
		}
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name == segment
		}
		return f.Name == segment
	})
	if idx < 0 {
		return 0, false
	}
	return fields[idx].Index[0], true
}
