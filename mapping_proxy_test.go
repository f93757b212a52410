package stocked

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-stocked/pkg/keypath"
)

func nameProxy(t *testing.T, mount string) *MappingProxy {
	t.Helper()
	proxy, err := NewMappingProxy(map[string]string{
		"name.first": "user.givenName",
		"name.last":  "user.familyName",
	}, mount)
	if err != nil {
		t.Fatalf("new proxy: %v", err)
	}
	return proxy
}

type recordingGet struct {
	tree  any
	calls []string
}

func (r *recordingGet) get(path keypath.Path) (any, error) {
	r.calls = append(r.calls, path.String())
	return keypath.Lookup(r.tree, path), nil
}

var userTree = map[string]any{
	"user": map[string]any{
		"givenName":  "Ada",
		"familyName": "Lovelace",
	},
}

func TestMappingProxyLeaf(t *testing.T) {
	proxy := nameProxy(t, "")
	under := &recordingGet{tree: userTree}

	got, err := proxy.GetValue(keypath.MustParse("name.first"), under.get)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "Ada" {
		t.Fatalf("expected raw leaf value, got %v", got)
	}
	if !reflect.DeepEqual([]string{"user.givenName"}, under.calls) {
		t.Fatalf("expected single underlying read, got %v", under.calls)
	}
}

func TestMappingProxyAncestorAggregation(t *testing.T) {
	proxy := nameProxy(t, "")
	under := &recordingGet{tree: userTree}

	resolved, err := proxy.ResolvePath(keypath.MustParse("name"))
	if err != nil || resolved.String() != "user" {
		t.Fatalf("expected resolution to user, got %v (%v)", resolved, err)
	}

	got, err := proxy.GetValue(keypath.MustParse("name"), under.get)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := map[string]any{"first": "Ada", "last": "Lovelace"}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !reflect.DeepEqual([]string{"user"}, under.calls) {
		t.Fatalf("expected one read of user, got %v", under.calls)
	}
}

func TestMappingProxyUnmappedFailsEagerly(t *testing.T) {
	proxy := nameProxy(t, "")
	under := &recordingGet{tree: userTree}

	_, err := proxy.GetValue(keypath.MustParse("address"), under.get)
	var unmapped *UnmappedPathError
	if !errors.As(err, &unmapped) || !errors.Is(err, ErrUnmappedPath) {
		t.Fatalf("expected UnmappedPathError, got %v", err)
	}
	if len(under.calls) != 0 {
		t.Fatalf("underlying get must not run, got %v", under.calls)
	}
	if !strings.Contains(err.Error(), `"address"`) || !strings.Contains(err.Error(), "name.first, name.last") {
		t.Fatalf("expected path and keys in message, got %q", err.Error())
	}

	setCalls := 0
	err = proxy.SetValue(keypath.MustParse("address"), "x", func(keypath.Path, any) error {
		setCalls++
		return nil
	})
	if !errors.Is(err, ErrUnmappedPath) || setCalls != 0 {
		t.Fatalf("expected unmapped set without writes, got %v (%d)", err, setCalls)
	}

	watchCalls := 0
	_, err = proxy.Watch(keypath.MustParse("address"), func(any) {}, func(keypath.Path, Observer) (func(), error) {
		watchCalls++
		return func() {}, nil
	})
	if !errors.Is(err, ErrUnmappedPath) || watchCalls != 0 {
		t.Fatalf("expected unmapped watch without subscription, got %v (%d)", err, watchCalls)
	}
}

func TestMappingProxyMountRoot(t *testing.T) {
	proxy := nameProxy(t, "")
	resolved, err := proxy.ResolvePath(keypath.Root())
	if err != nil || !resolved.IsRoot() {
		t.Fatalf("expected Root for the mount itself, got %v (%v)", resolved, err)
	}

	under := &recordingGet{tree: userTree}
	got, err := proxy.GetValue(keypath.Root(), under.get)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := map[string]any{"name": map[string]any{"first": "Ada", "last": "Lovelace"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMappingProxySetFansOut(t *testing.T) {
	proxy := nameProxy(t, "")
	type write struct {
		path  string
		value any
	}
	var writes []write
	set := func(path keypath.Path, value any) error {
		writes = append(writes, write{path: path.String(), value: value})
		return nil
	}

	if err := proxy.SetValue(keypath.MustParse("name"), map[string]any{"first": "Grace", "last": "Hopper"}, set); err != nil {
		t.Fatalf("set: %v", err)
	}
	want := []write{{"user.givenName", "Grace"}, {"user.familyName", "Hopper"}}
	if !reflect.DeepEqual(want, writes) {
		t.Fatalf("expected %v, got %v", want, writes)
	}

	writes = nil
	if err := proxy.SetValue(keypath.MustParse("name.last"), "Hopper", set); err != nil {
		t.Fatalf("set leaf: %v", err)
	}
	if !reflect.DeepEqual([]write{{"user.familyName", "Hopper"}}, writes) {
		t.Fatalf("expected single leaf write, got %v", writes)
	}
}

func TestMappingProxySetStopsOnError(t *testing.T) {
	proxy := nameProxy(t, "")
	boom := errors.New("boom")
	calls := 0
	err := proxy.SetValue(keypath.MustParse("name"), map[string]any{}, func(keypath.Path, any) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected first failure to abort, got %v after %d calls", err, calls)
	}
}

func TestMappingProxyWithMount(t *testing.T) {
	proxy := nameProxy(t, "profile")
	under := &recordingGet{tree: userTree}

	got, err := proxy.GetValue(keypath.MustParse("profile.name.first"), under.get)
	if err != nil || got != "Ada" {
		t.Fatalf("expected Ada, got %v (%v)", got, err)
	}

	got, err = proxy.GetValue(keypath.MustParse("profile"), under.get)
	if err != nil {
		t.Fatalf("get mount: %v", err)
	}
	want := map[string]any{"name": map[string]any{"first": "Ada", "last": "Lovelace"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	var writes []string
	err = proxy.SetValue(keypath.MustParse("profile.name"), map[string]any{"first": "G", "last": "H"}, func(path keypath.Path, _ any) error {
		writes = append(writes, path.String())
		return nil
	})
	if err != nil || len(writes) != 2 {
		t.Fatalf("expected mount-relative fan out, got %v (%v)", writes, err)
	}

	if _, err := proxy.GetValue(keypath.MustParse("name.first"), under.get); !errors.Is(err, ErrUnmappedPath) {
		t.Fatalf("paths outside the mount are unmapped, got %v", err)
	}
}

func TestMappingProxyWatchReshapes(t *testing.T) {
	stock := New(map[string]any{
		"user": map[string]any{"givenName": "Ada", "familyName": "Lovelace", "age": 36},
	})
	proxy := nameProxy(t, "")

	var seen []any
	stop, err := proxy.Watch(keypath.MustParse("name"), func(v any) { seen = append(seen, v) }, stock.Source().Watch)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !stock.IsObserved(keypath.MustParse("user")) {
		t.Fatalf("expected subscription on the resolved path")
	}

	if err := stock.SetValue(keypath.MustParse("user.givenName"), "Grace"); err != nil {
		t.Fatalf("set: %v", err)
	}
	want := map[string]any{"first": "Grace", "last": "Lovelace"}
	if len(seen) != 1 || !reflect.DeepEqual(want, seen[0]) {
		t.Fatalf("expected reshaped value %v, got %v", want, seen)
	}

	stop()
	if stock.IsObserved(keypath.MustParse("user")) {
		t.Fatalf("cleanup should remove the underlying subscription")
	}
}

func TestMappingProxyScatteredTargets(t *testing.T) {
	proxy, err := NewMappingProxy(map[string]string{
		"contact.email": "accounts[0].email",
		"contact.phone": "phones.primary",
	}, "")
	if err != nil {
		t.Fatalf("new proxy: %v", err)
	}
	tree := map[string]any{
		"accounts": []any{map[string]any{"email": "ada@example.com"}},
		"phones":   map[string]any{"primary": "555"},
	}
	under := &recordingGet{tree: tree}

	got, err := proxy.GetValue(keypath.MustParse("contact"), under.get)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := map[string]any{"email": "ada@example.com", "phone": "555"}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !reflect.DeepEqual([]string{"<root>"}, under.calls) {
		t.Fatalf("targets without a common prefix resolve to the root, got %v", under.calls)
	}
}

func TestNewMappingProxyRejectsMalformed(t *testing.T) {
	if _, err := NewMappingProxy(map[string]string{"a[": "b"}, ""); !errors.Is(err, keypath.ErrMalformedPath) {
		t.Fatalf("expected malformed key error, got %v", err)
	}
	if _, err := NewMappingProxy(map[string]string{"a": "b"}, "x['"); !errors.Is(err, keypath.ErrMalformedPath) {
		t.Fatalf("expected malformed mount error, got %v", err)
	}
}
