// Package keypath implements the path model used to address values inside a
// stock tree: parsing of dot and bracket notation, ancestry tests, relative
// path extraction and longest common prefixes.
package keypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins segments in the canonical string form.
const Separator = "."

const rootLabel = "<root>"

var (
	// ErrMalformedPath indicates input that cannot be parsed into segments.
	ErrMalformedPath = errors.New("keypath: malformed path")
	// ErrNotASubPath indicates Relative was called with unrelated paths.
	ErrNotASubPath = errors.New("keypath: not a sub path")
)

// NotASubPathError reports a Relative call where Full is neither Base nor a
// descendant of Base.
type NotASubPathError struct {
	Base Path
	Full Path
}

func (e *NotASubPathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("keypath: %q is not sub path of %q", e.Full.String(), e.Base.String())
}

// Unwrap lets errors.Is match ErrNotASubPath.
func (e *NotASubPathError) Unwrap() error {
	return ErrNotASubPath
}

// Path is either the Root sentinel or an ordered sequence of segments. The
// zero value is the empty segment path, which is not Root.
type Path struct {
	root     bool
	segments []string
}

// Key is the comparable form of a Path, usable as a map key.
type Key struct {
	Root      bool
	Canonical string
}

// Root returns the sentinel addressing the whole tree.
func Root() Path {
	return Path{root: true}
}

// FromSegments builds a path from already split segments.
func FromSegments(segments ...string) Path {
	if len(segments) == 0 {
		return Path{}
	}
	return Path{segments: append([]string(nil), segments...)}
}

// Parse converts dot or bracket notation into a Path. It never returns Root.
//
//	array[0].value.1.child        -> array.0.value.1.child
//	path["to"][0].variable['yes'] -> path.to.0.variable.yes
func Parse(input string) (Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Path{}, nil
	}

	var (
		segments []string
		current  strings.Builder
		// pending tracks whether current holds a segment that must be flushed
		// even when empty (e.g. "a..b").
		pending = true
	)
	flush := func() {
		if pending {
			segments = append(segments, current.String())
		}
		current.Reset()
		pending = false
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch ch {
		case '.':
			if pending || current.Len() > 0 {
				flush()
			}
			pending = true
		case '[':
			if current.Len() > 0 {
				flush()
			}
			pending = false
			segment, next, err := readBracket(input, i)
			if err != nil {
				return Path{}, err
			}
			segments = append(segments, segment)
			i = next
		default:
			current.WriteByte(ch)
			pending = true
		}
	}
	if pending || current.Len() > 0 {
		flush()
	}
	return Path{segments: segments}, nil
}

// readBracket reads the segment starting at input[start] == '[' and returns it
// along with the index of the closing bracket.
func readBracket(input string, start int) (string, int, error) {
	i := start + 1
	if i >= len(input) {
		return "", 0, fmt.Errorf("%w: unterminated bracket in %q", ErrMalformedPath, input)
	}
	if quote := input[i]; quote == '"' || quote == '\'' {
		var b strings.Builder
		for i++; i < len(input); i++ {
			ch := input[i]
			if ch == '\\' && i+1 < len(input) {
				i++
				b.WriteByte(input[i])
				continue
			}
			if ch == quote {
				if i+1 >= len(input) || input[i+1] != ']' {
					return "", 0, fmt.Errorf("%w: expected ']' after quoted segment in %q", ErrMalformedPath, input)
				}
				return b.String(), i + 1, nil
			}
			b.WriteByte(ch)
		}
		return "", 0, fmt.Errorf("%w: unterminated quote in %q", ErrMalformedPath, input)
	}
	end := strings.IndexByte(input[i:], ']')
	if end < 0 {
		return "", 0, fmt.Errorf("%w: unterminated bracket in %q", ErrMalformedPath, input)
	}
	return strings.TrimSpace(input[i : i+end]), i + end, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(input string) Path {
	p, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return p
}

// NormalizeString parses input and returns its canonical dot form.
func NormalizeString(input string) (string, error) {
	p, err := Parse(input)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// Normalize returns the canonical form of p.
func Normalize(p Path) string {
	return p.String()
}

// String renders the canonical dot form. Segments that dot notation cannot
// carry (a separator, an opening bracket, surrounding spaces) are written in
// double-quoted bracket notation, so Parse(p.String()) yields p again. Root
// renders as "<root>", which Parse reads back as an ordinary segment, never
// as Root.
func (p Path) String() string {
	if p.root {
		return rootLabel
	}
	var b strings.Builder
	for i, segment := range p.segments {
		if needsQuoting(segment) {
			b.WriteString(`["`)
			for j := 0; j < len(segment); j++ {
				if segment[j] == '"' || segment[j] == '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(segment[j])
			}
			b.WriteString(`"]`)
			continue
		}
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(segment)
	}
	return b.String()
}

func needsQuoting(segment string) bool {
	return strings.ContainsAny(segment, Separator+"[") || segment != strings.TrimSpace(segment)
}

// IsRoot reports whether p is the Root sentinel.
func (p Path) IsRoot() bool {
	return p.root
}

// IsEmpty reports whether p is the empty segment path.
func (p Path) IsEmpty() bool {
	return !p.root && len(p.segments) == 0
}

// Len returns the number of segments. Root has none.
func (p Path) Len() int {
	return len(p.segments)
}

// Segments returns a copy of the segments.
func (p Path) Segments() []string {
	if len(p.segments) == 0 {
		return nil
	}
	return append([]string(nil), p.segments...)
}

// Append returns a new path with segments added. Appending to Root starts a
// fresh segment path.
func (p Path) Append(segments ...string) Path {
	out := make([]string, 0, len(p.segments)+len(segments))
	out = append(out, p.segments...)
	out = append(out, segments...)
	return Path{segments: out}
}

// Key returns the registry key of p.
func (p Path) Key() Key {
	return Key{Root: p.root, Canonical: p.String()}
}

// Equal compares paths by canonical form; Root only equals Root.
func (p Path) Equal(other Path) bool {
	return p.Key() == other.Key()
}

// IsIndex reports whether segment addresses an array element.
func IsIndex(segment string) (int, bool) {
	if segment == "" || len(segment) > 1 && segment[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return n, true
}
