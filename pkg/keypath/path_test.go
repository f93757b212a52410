package keypath

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestParseNormalizesBracketNotation(t *testing.T) {
	cases := map[string]string{
		"array[0].value.1.child":        "array.0.value.1.child",
		`path["to"][0].variable["yes"]`: "path.to.0.variable.yes",
		"a['c'].d":                      "a.c.d",
		"  spaced.path  ":               "spaced.path",
		"a[0][1]":                       "a.0.1",
		"[0].x":                         "0.x",
		"":                              "",
	}
	for input, want := range cases {
		got, err := NormalizeString(input)
		assert.Equal(t, err, nil)
		assert.Equal(t, got, want)
	}
}

func TestParseKeepsQuotedSeparators(t *testing.T) {
	p := MustParse(`a["b.c"]`)
	assert.Equal(t, p.Len(), 2)
	assert.Equal(t, p.Segments()[1], "b.c")
}

func TestStringRoundTripsQuotedSegments(t *testing.T) {
	quoted := MustParse(`a["x.y"]`)
	dotted := MustParse("a.x.y")
	assert.Equal(t, quoted.String(), `a["x.y"]`)
	assert.NotEqual(t, quoted.Key(), dotted.Key())
	assert.Equal(t, quoted.Equal(dotted), false)

	for _, p := range []Path{
		quoted,
		FromSegments("list", "[0]", "v"),
		FromSegments(`say "hi"\now.`, "x"),
		FromSegments(" padded ", "y"),
		FromSegments("a", "", "b"),
	} {
		back, err := Parse(p.String())
		assert.Equal(t, err, nil)
		assert.Equal(t, back.Segments(), p.Segments())
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"a[0", `a["b]`, `a["b"x]`, "a["} {
		_, err := Parse(input)
		if !errors.Is(err, ErrMalformedPath) {
			t.Fatalf("expected ErrMalformedPath for %q, got %v", input, err)
		}
	}
}

func TestRootIsDistinctFromEmptyPath(t *testing.T) {
	assert.Equal(t, Root().IsRoot(), true)
	assert.Equal(t, Path{}.IsRoot(), false)
	assert.Equal(t, Root().Equal(Path{}), false)
	assert.Equal(t, MustParse("").IsEmpty(), true)

	// Rendering Root and parsing it back never yields the sentinel.
	parsed := MustParse(Root().String())
	assert.Equal(t, parsed.IsRoot(), false)
}

func TestPathKeyEquality(t *testing.T) {
	assert.Equal(t, MustParse("a[0].b").Key(), MustParse("a.0.b").Key())
	assert.NotEqual(t, Root().Key(), MustParse("").Key())
}

func TestIsNested(t *testing.T) {
	assert.Equal(t, IsNested(MustParse("parent"), MustParse("parent.child")), true)
	assert.Equal(t, IsNested(MustParse("notParent"), MustParse("parent.child")), false)
	assert.Equal(t, IsNested(MustParse("parent"), MustParse("parent")), false)
	assert.Equal(t, IsNested(MustParse("parent.child"), MustParse("parent")), false)
	assert.Equal(t, IsNested(MustParse("ab"), MustParse("abc.d")), false)
	assert.Equal(t, IsNested(Root(), MustParse("x")), true)
	assert.Equal(t, IsNested(MustParse("x"), Root()), true)
}

func TestRelative(t *testing.T) {
	rel, err := Relative(MustParse("hello.world"), MustParse("hello.world.asdf"))
	assert.Equal(t, err, nil)
	assert.Equal(t, rel.String(), "asdf")

	rel, err = Relative(MustParse("a.b.c"), MustParse("a.b.c.d.e"))
	assert.Equal(t, err, nil)
	assert.Equal(t, rel.String(), "d.e")

	rel, err = Relative(MustParse("a.b"), MustParse("a[b]"))
	assert.Equal(t, err, nil)
	assert.Equal(t, rel.IsRoot(), true)

	rel, err = Relative(Path{}, MustParse("x.y"))
	assert.Equal(t, err, nil)
	assert.Equal(t, rel.String(), "x.y")

	rel, err = Relative(Root(), MustParse("x.y"))
	assert.Equal(t, err, nil)
	assert.Equal(t, rel.String(), "x.y")

	_, err = Relative(MustParse("a"), MustParse("b"))
	var subErr *NotASubPathError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected NotASubPathError, got %v", err)
	}
	assert.Equal(t, errors.Is(err, ErrNotASubPath), true)
	assert.Equal(t, subErr.Error(), `keypath: "b" is not sub path of "a"`)

	_, err = Relative(MustParse("ab"), MustParse("abc"))
	assert.Equal(t, errors.Is(err, ErrNotASubPath), true)
}

func TestLongestCommonPath(t *testing.T) {
	assert.Equal(t, LongestCommonPath().String(), "")
	assert.Equal(t, LongestCommonPath(MustParse("a"), MustParse("b")).String(), "")
	assert.Equal(t, LongestCommonPath(
		MustParse("hello.world"),
		MustParse("hello.world.yes"),
		MustParse("hello.world.bye.x"),
	).String(), "hello.world")
	assert.Equal(t, LongestCommonPath(MustParse("user.givenName"), MustParse("user.familyName")).String(), "user")
	assert.Equal(t, LongestCommonPath(MustParse("only.one")).String(), "only.one")
	assert.Equal(t, LongestCommonPath(Root(), Root()).IsRoot(), true)
}

func TestLongestCommonPathAvoidsStringPrefixes(t *testing.T) {
	got := LongestCommonPath(MustParse("ab.c"), MustParse("ab10.c"), MustParse("ab.d"))
	assert.Equal(t, got.String(), "")

	got = LongestCommonPath(MustParse("list.9.x"), MustParse("list.10.x"), MustParse("list.2"))
	assert.Equal(t, got.String(), "list")
}

func TestIsIndex(t *testing.T) {
	n, ok := IsIndex("12")
	assert.Equal(t, ok, true)
	assert.Equal(t, n, 12)

	_, ok = IsIndex("01")
	assert.Equal(t, ok, false)
	_, ok = IsIndex("a1")
	assert.Equal(t, ok, false)
	_, ok = IsIndex("")
	assert.Equal(t, ok, false)
}
