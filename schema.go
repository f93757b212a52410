package stocked

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

// FieldDescriptor describes a leaf path and the type stored there.
type FieldDescriptor struct {
	Path string
	Type string
}

// Describe lists the leaves of the subtree at path in key order. Paths are
// absolute; lists are described once by their element type.
func (s *Stock[T]) Describe(path keypath.Path) []FieldDescriptor {
	path = canonical(path)
	prefix := ""
	if !path.IsRoot() {
		prefix = path.String()
	}
	descriptors := deriveFieldDescriptors(reflect.ValueOf(s.GetValue(path)), prefix)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors
}

func deriveFieldDescriptors(value reflect.Value, prefix string) []FieldDescriptor {
	for value.IsValid() && (value.Kind() == reflect.Interface || value.Kind() == reflect.Pointer) {
		if value.IsNil() {
			return leaf(prefix, "nil")
		}
		value = value.Elem()
	}
	if !value.IsValid() {
		return leaf(prefix, "nil")
	}

	switch value.Kind() {
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return leaf(prefix, value.Type().String())
		}
		if value.Len() == 0 {
			return leaf(prefix, value.Type().String())
		}
		keys := make([]string, 0, value.Len())
		for _, key := range value.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			child := value.MapIndex(reflect.ValueOf(key).Convert(value.Type().Key()))
			fields = append(fields, deriveFieldDescriptors(child, joinPath(prefix, key))...)
		}
		return fields
	case reflect.Struct:
		var fields []FieldDescriptor
		for _, field := range reflect.VisibleFields(value.Type()) {
			if !field.IsExported() || len(field.Index) != 1 {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			fields = append(fields, deriveFieldDescriptors(value.Field(field.Index[0]), joinPath(prefix, name))...)
		}
		return fields
	case reflect.Slice, reflect.Array:
		return leaf(prefix, "[]"+elementTypeName(value))
	default:
		return leaf(prefix, value.Type().String())
	}
}

func leaf(prefix, typeName string) []FieldDescriptor {
	if prefix == "" {
		return nil
	}
	return []FieldDescriptor{{Path: prefix, Type: typeName}}
}

// elementTypeName names the dynamic type of the first element of []any and
// the static element type otherwise.
func elementTypeName(list reflect.Value) string {
	elem := list.Type().Elem()
	if elem.Kind() != reflect.Interface {
		return elem.String()
	}
	if list.Len() == 0 {
		return "any"
	}
	first := list.Index(0)
	if first.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%T", first.Interface())
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + keypath.Separator + segment
}

// Schema renders the subtree at path as an OpenAPI-compatible schema object.
// Lists are typed by their first element.
func (s *Stock[T]) Schema(path keypath.Path) (map[string]any, error) {
	schema, err := buildSchema(reflect.ValueOf(s.GetValue(path)))
	if err != nil {
		return nil, fmt.Errorf("stocked: schema %q: %w", canonical(path).String(), err)
	}
	return schema, nil
}

var timeType = reflect.TypeOf(time.Time{})

func buildSchema(rv reflect.Value) (map[string]any, error) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return map[string]any{"type": "null"}, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == timeType {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return schemaForStruct(rv)
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		return schemaForList(rv)
	default:
		return map[string]any{"type": "string", "format": "go:" + rv.Type().String()}, nil
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map key type %s unsupported", rv.Type().Key())
	}
	properties := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		child, err := buildSchema(iter.Value())
		if err != nil {
			return nil, err
		}
		properties[iter.Key().String()] = child
	}
	return map[string]any{"type": "object", "properties": properties}, nil
}

func schemaForStruct(rv reflect.Value) (map[string]any, error) {
	properties := map[string]any{}
	for _, field := range reflect.VisibleFields(rv.Type()) {
		if !field.IsExported() || len(field.Index) != 1 {
			continue
		}
		name := field.Name
		if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		child, err := buildSchema(rv.Field(field.Index[0]))
		if err != nil {
			return nil, err
		}
		properties[name] = child
	}
	return map[string]any{"type": "object", "properties": properties}, nil
}

func schemaForList(rv reflect.Value) (map[string]any, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{"type": "string", "format": "byte"}, nil
	}
	items := map[string]any{}
	if rv.Len() > 0 {
		var err error
		if items, err = buildSchema(rv.Index(0)); err != nil {
			return nil, err
		}
	}
	return map[string]any{"type": "array", "items": items}, nil
}
