// Package path parses and renders property paths.
//
// A path is a dot separated list of segments. Each segment names a property
// and may subscript it with an index ("items[2]") or a key
// ("attributes(color)"). The parser is purely syntactic: it never checks
// that the named properties exist.
package path

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind discriminates the Segment variants
type SegmentKind int

const (
	// NameSegment is a plain property access: "city"
	NameSegment SegmentKind = iota
	// IndexSegment indexes a sequence property: "items[2]"
	IndexSegment
	// KeySegment looks up a key in a map property: "attributes(color)"
	KeySegment
)

// String returns the kind name
func (k SegmentKind) String() string {
	switch k {
	case NameSegment:
		return "name"
	case IndexSegment:
		return "index"
	case KeySegment:
		return "key"
	default:
		return "unknown"
	}
}

// Segment is one step of a path. Index is meaningful only for IndexSegment
// and Key only for KeySegment.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
	Key   string
}

// Name returns a plain property segment
func Name(name string) Segment {
	return Segment{Kind: NameSegment, Name: name}
}

// Indexed returns an indexed segment
func Indexed(name string, index int) Segment {
	return Segment{Kind: IndexSegment, Name: name, Index: index}
}

// Keyed returns a keyed segment
func Keyed(name, key string) Segment {
	return Segment{Kind: KeySegment, Name: name, Key: key}
}

// String renders the segment in path syntax
func (s Segment) String() string {
	switch s.Kind {
	case IndexSegment:
		return s.Name + "[" + strconv.Itoa(s.Index) + "]"
	case KeySegment:
		return s.Name + "(" + s.Key + ")"
	default:
		return s.Name
	}
}

func (s Segment) validate() error {
	if !ValidName(s.Name) {
		return fmt.Errorf("invalid property name %q", s.Name)
	}
	switch s.Kind {
	case NameSegment:
	case IndexSegment:
		if s.Index < 0 {
			return fmt.Errorf("negative index %d on %q", s.Index, s.Name)
		}
	case KeySegment:
		if s.Key == "" || strings.ContainsRune(s.Key, ')') {
			return fmt.Errorf("invalid key %q on %q", s.Key, s.Name)
		}
	default:
		return fmt.Errorf("unknown segment kind %d", s.Kind)
	}
	return nil
}

// ValidName reports whether name can appear as a segment identifier.
// Names containing grammar characters or whitespace cannot be addressed.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, ".[]() \t\r\n")
}

// Path is an ordered, non-empty list of segments
type Path struct {
	Segments []Segment
}

// New builds a path from segments, validating each one
func New(segments ...Segment) (Path, error) {
	if len(segments) == 0 {
		return Path{}, syntaxError("", fmt.Errorf("empty path"))
	}
	for _, seg := range segments {
		if err := seg.validate(); err != nil {
			return Path{}, syntaxError("", err)
		}
	}
	cp := make([]Segment, len(segments))
	copy(cp, segments)
	return Path{Segments: cp}, nil
}

// String renders the path in canonical form
func (p Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Len returns the number of segments
func (p Path) Len() int {
	return len(p.Segments)
}

// IsEmpty reports whether the path has no segments
func (p Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// Last returns the final segment
func (p Path) Last() Segment {
	return p.Segments[len(p.Segments)-1]
}

// Parent returns the path without its final segment and whether one remains
func (p Path) Parent() (Path, bool) {
	if len(p.Segments) < 2 {
		return Path{}, false
	}
	return Path{Segments: p.Segments[:len(p.Segments)-1]}, true
}

// Child returns a new path with seg appended
func (p Path) Child(seg Segment) Path {
	segments := make([]Segment, len(p.Segments)+1)
	copy(segments, p.Segments)
	segments[len(p.Segments)] = seg
	return Path{Segments: segments}
}

// Equal reports whether two paths have the same segment structure
func (p Path) Equal(other Path) bool {
	if len(p.Segments) != len(other.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}
