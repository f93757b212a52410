package keypath

import (
	"slices"
	"strings"
)

// IsNested reports whether candidate lies strictly under base. Root on either
// side always nests. Callers wanting "ancestor or descendant" must test both
// directions.
//
//	IsNested(parent, parent.child) -> true
//	IsNested(notParent, parent.child) -> false
func IsNested(base, candidate Path) bool {
	if base.root || candidate.root {
		return true
	}
	if len(candidate.segments) <= len(base.segments) {
		return false
	}
	return hasPrefix(candidate.segments, base.segments)
}

// IsSameOrNested reports whether candidate equals base or lies under it.
func IsSameOrNested(base, candidate Path) bool {
	return base.Equal(candidate) || IsNested(base, candidate)
}

// Related reports whether a and b are equal or one is nested under the other.
func Related(a, b Path) bool {
	return a.Equal(b) || IsNested(a, b) || IsNested(b, a)
}

// Relative strips base from full. Equal paths yield Root; an empty or Root
// base yields full unchanged.
//
//	Relative(hello.world, hello.world.asdf) -> asdf
//	Relative(a.b.c, a.b.c.d.e)              -> d.e
//	Relative(a, b)                          -> *NotASubPathError
func Relative(base, full Path) (Path, error) {
	if base.root {
		return full, nil
	}
	if len(base.segments) == 0 {
		return full, nil
	}
	if full.root {
		return Path{}, &NotASubPathError{Base: base, Full: full}
	}
	if base.Equal(full) {
		return Root(), nil
	}
	if !IsNested(base, full) {
		return Path{}, &NotASubPathError{Base: base, Full: full}
	}
	return FromSegments(full.segments[len(base.segments):]...), nil
}

// LongestCommonPath returns the longest leading segment prefix shared by all
// paths. Empty input or paths without a shared prefix yield the empty path.
//
//	[hello.world, hello.world.yes, hello.world.bye.x] -> hello.world
//	[a, b]                                            -> ""
func LongestCommonPath(paths ...Path) Path {
	switch len(paths) {
	case 0:
		return Path{}
	case 1:
		return paths[0]
	}

	allRoot := true
	for _, p := range paths {
		if !p.root {
			allRoot = false
			break
		}
	}
	if allRoot {
		return Root()
	}

	// Sorting by segment sequence keeps the common prefix of the whole set
	// equal to the common prefix of the first and last elements.
	sorted := slices.Clone(paths)
	slices.SortFunc(sorted, func(a, b Path) int {
		return compareSegments(a.segments, b.segments)
	})
	first := sorted[0].segments
	last := sorted[len(sorted)-1].segments
	n := 0
	for n < len(first) && n < len(last) && first[n] == last[n] {
		n++
	}
	if n == 0 {
		return Path{}
	}
	return FromSegments(first[:n]...)
}

func compareSegments(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func hasPrefix(segments, prefix []string) bool {
	if len(prefix) > len(segments) {
		return false
	}
	for i := range prefix {
		if segments[i] != prefix[i] {
			return false
		}
	}
	return true
}
