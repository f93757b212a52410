package stocked

import "github.com/goliatone/go-stocked/pkg/keypath"

// View routes the calls of a binding layer through a proxy. Paths at or below
// the proxy mount go through the proxy with the wrapped source's operations;
// every other path reaches the source untouched. A View is a Source, so views
// stack: Bind(Bind(stock.Source(), inner), outer).
type View struct {
	src   Source
	proxy Proxy
}

var _ Source = (*View)(nil)

// Bind layers proxy over src. A nil proxy behaves like IdentityProxy.
func Bind(src Source, proxy Proxy) *View {
	if proxy == nil {
		proxy = IdentityProxy{}
	}
	return &View{src: src, proxy: proxy}
}

// Proxy returns the proxy the view routes through.
func (v *View) Proxy() Proxy {
	return v.proxy
}

func (v *View) GetValue(path keypath.Path) (any, error) {
	if !v.handles(path) {
		return v.src.GetValue(path)
	}
	return v.proxy.GetValue(path, v.src.GetValue)
}

func (v *View) SetValue(path keypath.Path, value any) error {
	if !v.handles(path) {
		return v.src.SetValue(path, value)
	}
	return v.proxy.SetValue(path, value, v.src.SetValue)
}

func (v *View) Watch(path keypath.Path, observer Observer) (func(), error) {
	if observer == nil {
		return nil, ErrNilObserver
	}
	if !v.handles(path) {
		return v.src.Watch(path, observer)
	}
	return v.proxy.Watch(path, observer, v.src.Watch)
}

func (v *View) handles(path keypath.Path) bool {
	mount := v.proxy.Mount()
	if mount.IsRoot() || mount.IsEmpty() {
		return true
	}
	if path.IsRoot() || path.IsEmpty() {
		return false
	}
	return keypath.IsSameOrNested(mount, path)
}
