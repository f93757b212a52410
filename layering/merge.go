// Package layering deep-copies value trees and composes them in layers.
// Merging is path driven: a stronger layer is walked branch by branch and each
// leaf it holds is written over the weaker result with keypath.Set.
package layering

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

// Clone returns a deep copy of value. Unexported struct fields are left at
// their zero value.
func Clone[T any](value T) T {
	return fromValue[T](cloneValue(reflect.ValueOf(&value).Elem()))
}

// MergeLayers composes layers ordered from strongest to weakest. Nil pointers,
// maps, slices and interfaces count as unset and leave the weaker value in
// place; maps and structs present on both sides are merged key by key.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := any(Clone(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = overlay(merged, keypath.Path{}, reflect.ValueOf(&layers[i]).Elem())
	}
	return fromValue[T](reflect.ValueOf(&merged).Elem())
}

// overlay writes strong over acc at the given path.
func overlay(acc any, at keypath.Path, strong reflect.Value) any {
	for strong.Kind() == reflect.Interface && !strong.IsNil() {
		strong = strong.Elem()
	}
	if unset(strong) {
		return acc
	}
	branch := strong
	if branch.Kind() == reflect.Pointer {
		branch = branch.Elem()
	}
	if fields := children(branch); fields != nil {
		if existing, ok := keypath.Get(acc, at); ok && sameShape(existing, branch.Type()) {
			for _, field := range fields {
				acc = overlay(acc, at.Append(field.name), field.value)
			}
			return acc
		}
	}
	out, err := keypath.Set(acc, at, Clone(strong.Interface()))
	if err != nil {
		return acc
	}
	return out
}

type namedValue struct {
	name  string
	value reflect.Value
}

// children lists the addressable branches of a string-keyed map or of a
// struct with exported fields. Anything else is a leaf and yields nil.
func children(v reflect.Value) []namedValue {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		out := make([]namedValue, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out = append(out, namedValue{name: iter.Key().String(), value: iter.Value()})
		}
		return out
	case reflect.Struct:
		var out []namedValue
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			out = append(out, namedValue{name: fieldName(field), value: v.Field(i)})
		}
		return out
	default:
		return nil
	}
}

// fieldName matches the segment keypath resolves for a struct field.
func fieldName(field reflect.StructField) string {
	if name, _, _ := strings.Cut(field.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return field.Name
}

func sameShape(existing any, want reflect.Type) bool {
	rv := reflect.ValueOf(existing)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.IsValid() && rv.Type() == want
}

func unset(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// fromValue converts v back to T. Interface-typed T (such as any) has no
// static reflect.Type of its own, so the target type is taken from a pointer.
func fromValue[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf(&zero).Elem()
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return zero
		}
		if target.Kind() != reflect.Interface {
			v = v.Elem()
		}
	}
	if !v.Type().AssignableTo(target) {
		if !v.Type().ConvertibleTo(target) {
			return zero
		}
		v = v.Convert(target)
	}
	out := reflect.New(target).Elem()
	out.Set(v)
	return out.Interface().(T)
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Interface:
		return cloneValue(v.Elem()).Convert(v.Type())
	case reflect.Map:
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice, reflect.Array:
		var out reflect.Value
		if v.Kind() == reflect.Slice {
			out = reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		} else {
			out = reflect.New(v.Type()).Elem()
		}
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(cloneValue(v.Field(i)))
			}
		}
		return out
	default:
		return reflect.ValueOf(v.Interface())
	}
}
