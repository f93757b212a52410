package stocked

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

type mapping struct {
	key    keypath.Path
	target keypath.Path
}

// MappingProxy presents scattered underlying values as one virtual subtree.
// Each map key is a path relative to the mount; each value is the underlying
// path that stores it. Ancestors of mapped keys are readable and writable as
// assembled objects.
type MappingProxy struct {
	mount   keypath.Path
	entries []mapping
}

var _ Proxy = (*MappingProxy)(nil)

// NewMappingProxy parses the map and mount. An empty mount mounts the proxy
// at the root of the consuming tree.
func NewMappingProxy(paths map[string]string, mount string) (*MappingProxy, error) {
	mountPath := keypath.Root()
	if mount != "" {
		parsed, err := keypath.Parse(mount)
		if err != nil {
			return nil, fmt.Errorf("stocked: mapping proxy mount: %w", err)
		}
		if !parsed.IsEmpty() {
			mountPath = parsed
		}
	}

	entries := make([]mapping, 0, len(paths))
	for key, target := range paths {
		keyPath, err := keypath.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("stocked: mapping proxy key %q: %w", key, err)
		}
		if keyPath.IsEmpty() {
			return nil, fmt.Errorf("stocked: mapping proxy key must not be empty")
		}
		targetPath, err := keypath.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("stocked: mapping proxy target %q: %w", target, err)
		}
		if targetPath.IsEmpty() {
			targetPath = keypath.Root()
		}
		entries = append(entries, mapping{key: keyPath, target: targetPath})
	}
	slices.SortFunc(entries, func(a, b mapping) int {
		return cmp.Or(cmp.Compare(a.key.Len(), b.key.Len()), cmp.Compare(a.key.String(), b.key.String()))
	})
	return &MappingProxy{mount: mountPath, entries: entries}, nil
}

// MustMappingProxy is like NewMappingProxy but panics on malformed paths.
func MustMappingProxy(paths map[string]string, mount string) *MappingProxy {
	proxy, err := NewMappingProxy(paths, mount)
	if err != nil {
		panic(err)
	}
	return proxy
}

func (p *MappingProxy) Mount() keypath.Path {
	return p.mount
}

// ResolvePath returns the underlying path backing virtual: the target of an
// exact key, Root for the mount itself, or the longest common path of the
// targets of every key below virtual.
func (p *MappingProxy) ResolvePath(virtual keypath.Path) (keypath.Path, error) {
	relative, err := p.relative(virtual)
	if err != nil {
		return keypath.Path{}, err
	}
	if relative.IsRoot() {
		return keypath.Root(), nil
	}
	for _, entry := range p.entries {
		if entry.key.Equal(relative) {
			return entry.target, nil
		}
	}
	var targets []keypath.Path
	for _, entry := range p.entries {
		if keypath.IsNested(relative, entry.key) {
			targets = append(targets, entry.target)
		}
	}
	if len(targets) == 0 {
		return keypath.Path{}, p.unmapped(virtual)
	}
	common := keypath.LongestCommonPath(targets...)
	if common.IsEmpty() {
		return keypath.Root(), nil
	}
	return common, nil
}

// GetValue reads the underlying value once and reshapes it into the virtual
// layout.
func (p *MappingProxy) GetValue(path keypath.Path, get GetFunc) (any, error) {
	relative, err := p.relative(path)
	if err != nil {
		return nil, err
	}
	resolved, err := p.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	raw, err := get(resolved)
	if err != nil {
		return nil, err
	}
	return p.reconstruct(relative, resolved, raw), nil
}

// SetValue writes one underlying value per mapped key at or below path, in
// key depth order. Each write carries the part of value at the key's position
// relative to path; missing parts are written as nil.
func (p *MappingProxy) SetValue(path keypath.Path, value any, set SetFunc) error {
	relative, err := p.relative(path)
	if err != nil {
		return err
	}
	covered := p.covered(relative)
	if len(covered) == 0 {
		return p.unmapped(path)
	}
	for _, entry := range covered {
		sub, err := keypath.Relative(relative, entry.key)
		if err != nil {
			return err
		}
		if err := set(entry.target, keypath.Lookup(value, sub)); err != nil {
			return err
		}
	}
	return nil
}

// Watch subscribes once at the resolved underlying path and reshapes every
// value before handing it to observer.
func (p *MappingProxy) Watch(path keypath.Path, observer Observer, watch WatchFunc) (func(), error) {
	if observer == nil {
		return nil, ErrNilObserver
	}
	relative, err := p.relative(path)
	if err != nil {
		return nil, err
	}
	resolved, err := p.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return watch(resolved, func(raw any) {
		observer(p.reconstruct(relative, resolved, raw))
	})
}

// relative converts an absolute virtual path to its mount-relative form.
// Root means the mount itself.
func (p *MappingProxy) relative(virtual keypath.Path) (keypath.Path, error) {
	if virtual.IsRoot() || virtual.IsEmpty() {
		if p.mount.IsRoot() {
			return keypath.Root(), nil
		}
		return keypath.Path{}, p.unmapped(virtual)
	}
	relative, err := keypath.Relative(p.mount, virtual)
	if err != nil {
		return keypath.Path{}, p.unmapped(virtual)
	}
	return relative, nil
}

// covered lists the entries whose key equals relative or lies below it.
func (p *MappingProxy) covered(relative keypath.Path) []mapping {
	var out []mapping
	for _, entry := range p.entries {
		if relative.IsRoot() || keypath.IsSameOrNested(relative, entry.key) {
			out = append(out, entry)
		}
	}
	return out
}

// reconstruct assembles the virtual value at relative from raw, the value
// read at resolved. The shape of the result follows the map only.
func (p *MappingProxy) reconstruct(relative, resolved keypath.Path, raw any) any {
	var result any = map[string]any{}
	for _, entry := range p.covered(relative) {
		virtualSub, err := keypath.Relative(relative, entry.key)
		if err != nil {
			continue
		}
		underlyingSub, err := keypath.Relative(resolved, entry.target)
		if err != nil {
			continue
		}
		value, ok := keypath.Get(raw, underlyingSub)
		if !ok {
			continue
		}
		// Fresh map[string]any and []any containers accept any value.
		result, _ = keypath.Set(result, virtualSub, value)
	}
	return result
}

func (p *MappingProxy) unmapped(path keypath.Path) error {
	keys := make([]string, len(p.entries))
	for i, entry := range p.entries {
		keys[i] = entry.key.String()
	}
	return &UnmappedPathError{Path: path, Mount: p.mount, Keys: keys}
}
