package path

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/effectus/beanpath"
)

// pathAST is the parsed form of a path
type pathAST struct {
	Segments []*segmentAST `parser:"@@ ( '.' @@ )*"`
}

// segmentAST is a property name with an optional subscript
type segmentAST struct {
	Name      string        `parser:"@Ident"`
	Subscript *subscriptAST `parser:"@@?"`
}

// subscriptAST is either an index or a key
type subscriptAST struct {
	Index *int    `parser:"  '[' @Int ']'"`
	Key   *string `parser:"| '(' @Key ')'"`
}

// Keys may contain anything but ')', so they get their own lexer state.
var pathDefinition = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Ident", Pattern: `[^.\[\]()\s]+`, Action: nil},
		{Name: "Dot", Pattern: `\.`, Action: nil},
		{Name: "OpenIndex", Pattern: `\[`, Action: lexer.Push("Index")},
		{Name: "OpenKey", Pattern: `\(`, Action: lexer.Push("Key")},
	},
	"Index": {
		{Name: "whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Int", Pattern: `[0-9]+`, Action: nil},
		{Name: "CloseIndex", Pattern: `\]`, Action: lexer.Pop()},
	},
	"Key": {
		{Name: "Key", Pattern: `[^)]+`, Action: nil},
		{Name: "CloseKey", Pattern: `\)`, Action: lexer.Pop()},
	},
})

var parser = participle.MustBuild[pathAST](
	participle.Lexer(pathDefinition),
	participle.Elide("whitespace"),
)

// Parse parses a path string
func Parse(pathStr string) (Path, error) {
	if pathStr == "" {
		return Path{}, syntaxError(pathStr, fmt.Errorf("empty path"))
	}

	ast, err := parser.ParseString("", pathStr)
	if err != nil {
		return Path{}, syntaxError(pathStr, err)
	}

	segments := make([]Segment, len(ast.Segments))
	for i, elem := range ast.Segments {
		seg := Name(elem.Name)
		if elem.Subscript != nil {
			switch {
			case elem.Subscript.Index != nil:
				seg = Indexed(elem.Name, *elem.Subscript.Index)
			case elem.Subscript.Key != nil:
				seg = Keyed(elem.Name, *elem.Subscript.Key)
			}
		}
		if err := seg.validate(); err != nil {
			return Path{}, syntaxError(pathStr, err)
		}
		segments[i] = seg
	}

	return Path{Segments: segments}, nil
}

// MustParse is like Parse but panics on error. Use it for static paths.
func MustParse(pathStr string) Path {
	p, err := Parse(pathStr)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate reports whether pathStr is a well-formed path
func Validate(pathStr string) bool {
	_, err := Parse(pathStr)
	return err == nil
}

func syntaxError(pathStr string, cause error) error {
	return &beanpath.Error{
		Kind:    beanpath.PathSyntax,
		Path:    pathStr,
		Message: "malformed path",
		Err:     cause,
	}
}
