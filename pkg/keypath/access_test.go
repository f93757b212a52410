package keypath

import (
	"errors"
	"reflect"
	"testing"
)

type profile struct {
	Name  string            `json:"name"`
	Age   int               `json:"age"`
	Tags  []string          `json:"tags"`
	Attrs map[string]string `json:"attrs"`
	Inner *profile          `json:"inner,omitempty"`
}

func TestGetReadsNestedContainers(t *testing.T) {
	tree := map[string]any{
		"list": []any{
			map[string]any{"value": 1},
			map[string]any{"value": 2},
		},
		"user": profile{Name: "ada", Tags: []string{"x", "y"}, Attrs: map[string]string{"k": "v"}},
	}

	if got := Lookup(tree, MustParse("list[1].value")); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	if got := Lookup(tree, MustParse("user.name")); got != "ada" {
		t.Fatalf("expected struct field through json tag, got %v", got)
	}
	if got := Lookup(tree, MustParse("user.tags.1")); got != "y" {
		t.Fatalf("expected typed slice element, got %v", got)
	}
	if got := Lookup(tree, MustParse("user.attrs.k")); got != "v" {
		t.Fatalf("expected typed map value, got %v", got)
	}
	if _, ok := Get(tree, MustParse("list.5.value")); ok {
		t.Fatalf("expected missing index to report absent")
	}
	if _, ok := Get(tree, MustParse("missing.deep")); ok {
		t.Fatalf("expected missing key to report absent")
	}
	if got, ok := Get(tree, Root()); !ok || !reflect.DeepEqual(got, tree) {
		t.Fatalf("expected root to return whole tree")
	}
}

func TestSetCopiesOnWrite(t *testing.T) {
	shared := map[string]any{"keep": true}
	tree := map[string]any{
		"a":      map[string]any{"b": 1},
		"shared": shared,
	}

	out, err := Set(tree, MustParse("a.b"), 2)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if Lookup(tree, MustParse("a.b")) != 1 {
		t.Fatalf("input tree must not be mutated")
	}
	if Lookup(out, MustParse("a.b")) != 2 {
		t.Fatalf("expected updated value in result")
	}
	if got := out.(map[string]any)["shared"].(map[string]any); reflect.ValueOf(got).Pointer() != reflect.ValueOf(shared).Pointer() {
		t.Fatalf("expected untouched branch to be shared")
	}
}

func TestSetCreatesIntermediateContainers(t *testing.T) {
	out, err := Set(nil, MustParse("a.list[2].name"), "x")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	want := map[string]any{
		"a": map[string]any{
			"list": []any{nil, nil, map[string]any{"name": "x"}},
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("unexpected tree:\nwant: %#v\n got: %#v", want, out)
	}

	out, err = Set(map[string]any{"a": "scalar"}, MustParse("a.b"), 1)
	if err != nil {
		t.Fatalf("set over scalar: %v", err)
	}
	if Lookup(out, MustParse("a.b")) != 1 {
		t.Fatalf("expected scalar to be replaced with a container")
	}
}

func TestSetRootReplacesTree(t *testing.T) {
	out, err := Set(map[string]any{"a": 1}, Root(), "whole")
	if err != nil || out != "whole" {
		t.Fatalf("expected root write to replace tree, got %v (%v)", out, err)
	}
}

func TestSetTypedContainers(t *testing.T) {
	original := &profile{Name: "ada", Age: 36, Tags: []string{"a"}, Attrs: map[string]string{}}

	out, err := Set(original, MustParse("age"), 37)
	if err != nil {
		t.Fatalf("set struct field: %v", err)
	}
	updated := out.(*profile)
	if updated == original || updated.Age != 37 || original.Age != 36 {
		t.Fatalf("expected copied pointer with new age, got %+v (original %+v)", updated, original)
	}

	out, err = Set(original, MustParse("tags.2"), "c")
	if err != nil {
		t.Fatalf("grow typed slice: %v", err)
	}
	if got := out.(*profile).Tags; !reflect.DeepEqual(got, []string{"a", "", "c"}) {
		t.Fatalf("unexpected tags %v", got)
	}
	if len(original.Tags) != 1 {
		t.Fatalf("original slice must stay untouched")
	}

	out, err = Set(original, MustParse("attrs.k"), "v")
	if err != nil {
		t.Fatalf("set typed map: %v", err)
	}
	if out.(*profile).Attrs["k"] != "v" || len(original.Attrs) != 0 {
		t.Fatalf("expected copied map with new key")
	}

	if _, err := Set(original, MustParse("age"), "old"); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := Set(original, MustParse("unknown"), 1); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for unknown field, got %v", err)
	}
}

func TestSetRejectsKeyOnUntypedList(t *testing.T) {
	_, err := Set([]any{1, 2}, MustParse("name"), "x")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestSetBoundsListGrowth(t *testing.T) {
	cases := []struct {
		name string
		tree any
		path string
	}{
		{name: "untyped list", tree: map[string]any{"list": []any{}}, path: "list[4611686018427387904]"},
		{name: "max int", tree: map[string]any{"list": []any{1}}, path: "list[9223372036854775807]"},
		{name: "fresh list", tree: map[string]any{}, path: "list[5000]"},
		{name: "typed slice", tree: profile{Tags: []string{"a"}}, path: "tags[1025]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Set(tc.tree, MustParse(tc.path), "x")
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
			}
			if out != nil {
				t.Fatalf("expected no tree on failure, got %v", out)
			}
		})
	}

	out, err := Set([]any{1}, MustParse("[1024]"), "last")
	if err != nil {
		t.Fatalf("growth up to the limit should succeed: %v", err)
	}
	list := out.([]any)
	if len(list) != 1025 || list[1024] != "last" || list[0] != 1 {
		t.Fatalf("unexpected list of length %d", len(list))
	}
}
