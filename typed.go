package stocked

import (
	"github.com/goliatone/go-stocked/internal/hydrate"
	"github.com/goliatone/go-stocked/pkg/keypath"
)

// GetAs reads path from src as V. Values already of type V are returned as
// is; anything else is decoded through its JSON form. A nil value yields the
// zero V.
func GetAs[V any](src Source, path keypath.Path) (V, error) {
	var zero V
	value, err := src.GetValue(path)
	if err != nil {
		return zero, err
	}
	return convertAs[V](path, value)
}

// WatchAs subscribes to path and hands observer each value converted to V.
// Conversion failures are passed to observer together with the zero V.
func WatchAs[V any](src Source, path keypath.Path, observer func(V, error)) (func(), error) {
	if observer == nil {
		return nil, ErrNilObserver
	}
	return src.Watch(path, func(value any) {
		observer(convertAs[V](path, value))
	})
}

func convertAs[V any](path keypath.Path, value any) (V, error) {
	var zero V
	if value == nil {
		return zero, nil
	}
	if typed, ok := value.(V); ok {
		return typed, nil
	}
	return hydrate.NewDecoder[V]().Decode(hydrate.Context{Path: pathLabelOf(path)}, value)
}
