package stocked

import "github.com/goliatone/go-stocked/pkg/keypath"

// Source is anything that reads, writes and watches values by path. Stock
// exposes one through Stock.Source and every View is itself a Source, so
// proxies stack.
type Source interface {
	GetValue(path keypath.Path) (any, error)
	SetValue(path keypath.Path, value any) error
	Watch(path keypath.Path, observer Observer) (func(), error)
}

// GetFunc is the unproxied read a Proxy delegates to.
type GetFunc func(path keypath.Path) (any, error)

// SetFunc is the unproxied write a Proxy delegates to.
type SetFunc func(path keypath.Path, value any) error

// WatchFunc is the unproxied subscription a Proxy delegates to.
type WatchFunc func(path keypath.Path, observer Observer) (func(), error)

// Proxy transforms paths and values between a virtual tree mounted at Mount
// and the source underneath. A proxy holds no source of its own: every call
// receives the operation it wraps.
type Proxy interface {
	Mount() keypath.Path
	GetValue(path keypath.Path, get GetFunc) (any, error)
	SetValue(path keypath.Path, value any, set SetFunc) error
	Watch(path keypath.Path, observer Observer, watch WatchFunc) (func(), error)
}

// IdentityProxy passes every call through unchanged.
type IdentityProxy struct{}

var _ Proxy = IdentityProxy{}

func (IdentityProxy) Mount() keypath.Path {
	return keypath.Root()
}

func (IdentityProxy) GetValue(path keypath.Path, get GetFunc) (any, error) {
	return get(path)
}

func (IdentityProxy) SetValue(path keypath.Path, value any, set SetFunc) error {
	return set(path, value)
}

func (IdentityProxy) Watch(path keypath.Path, observer Observer, watch WatchFunc) (func(), error) {
	return watch(path, observer)
}
