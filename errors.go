package stocked

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

var (
	// ErrUnregisteredObserver indicates a removal for a path or key that has
	// no registration.
	ErrUnregisteredObserver = errors.New("stocked: observer not registered")
	// ErrUnmappedPath indicates a proxy was asked for a virtual path its map
	// does not cover.
	ErrUnmappedPath = errors.New("stocked: path not defined in proxy map")
	// ErrInvalidRootValue indicates a root write whose value is not the tree type.
	ErrInvalidRootValue = errors.New("stocked: root value has wrong type")
	// ErrNilObserver indicates a subscription without a callback.
	ErrNilObserver = errors.New("stocked: observer is nil")
)

// UnregisteredObserverError reports an explicit removal that matched nothing.
type UnregisteredObserverError struct {
	Path keypath.Path
	Key  ObserverKey
}

func (e *UnregisteredObserverError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("stocked: cannot remove observer %s from %q, which is not observing", e.Key, e.Path.String())
}

func (e *UnregisteredObserverError) Unwrap() error {
	return ErrUnregisteredObserver
}

// UnmappedPathError reports a virtual path that is neither a mapped leaf nor
// an ancestor of one.
type UnmappedPathError struct {
	Path  keypath.Path
	Mount keypath.Path
	Keys  []string
}

func (e *UnmappedPathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("stocked: mapping proxy at %q cannot resolve %q; mapped paths: [%s]",
		e.Mount.String(), e.Path.String(), strings.Join(keys, ", "))
}

func (e *UnmappedPathError) Unwrap() error {
	return ErrUnmappedPath
}
