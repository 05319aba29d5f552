package beanpath

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error. A Kind is itself an error so callers can write
// errors.Is(err, beanpath.NotWritable).
type Kind int

const (
	// PathSyntax reports malformed path text
	PathSyntax Kind = iota + 1
	// NoSuchProperty reports a segment name absent from the type or bean
	NoSuchProperty
	// NotReadable reports a property without a read accessor
	NotReadable
	// NotWritable reports a property without a write accessor
	NotWritable
	// NullIntermediate reports nil before the final segment under the Fail policy
	NullIntermediate
	// IndexOutOfRange reports an index outside a sequence
	IndexOutOfRange
	// TypeConversion reports an assigned value incompatible with the declared type
	TypeConversion
	// AccessFailure wraps an underlying accessor or row source failure
	AccessFailure
	// NoMoreElements reports a cursor consumed past exhaustion
	NoMoreElements
	// NotSupported reports an access form the value does not provide
	NotSupported
)

var kindNames = map[Kind]string{
	PathSyntax:       "path syntax error",
	NoSuchProperty:   "no such property",
	NotReadable:      "property not readable",
	NotWritable:      "property not writable",
	NullIntermediate: "null intermediate value",
	IndexOutOfRange:  "index out of range",
	TypeConversion:   "type conversion error",
	AccessFailure:    "access failure",
	NoMoreElements:   "no more elements",
	NotSupported:     "not supported",
}

// String returns a readable name for the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error implements error
func (k Kind) Error() string {
	return k.String()
}

// Error is the single error type returned across the module.
type Error struct {
	Kind     Kind
	Path     string // full path being resolved, if known
	Property string // segment or property name, if known
	Message  string
	Err      error // underlying cause
}

// Error implements error
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Property != "" {
		fmt.Fprintf(&b, " %q", e.Property)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " in path %q", e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a Kind target
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Errorf builds an Error of the given kind
func Errorf(kind Kind, property string, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Property: property,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap builds an Error of the given kind around cause
func Wrap(kind Kind, property string, cause error, message string) *Error {
	return &Error{
		Kind:     kind,
		Property: property,
		Message:  message,
		Err:      cause,
	}
}

// WithPath returns err with its path set when err is an *Error without one.
// Other errors are returned unchanged.
func WithPath(err error, path string) error {
	e, ok := err.(*Error)
	if !ok || e.Path != "" {
		return err
	}
	cp := *e
	cp.Path = path
	return &cp
}

// WithProperty returns err with its property set when err is an *Error
// without one. Other errors are returned unchanged.
func WithProperty(err error, property string) error {
	e, ok := err.(*Error)
	if !ok || e.Property != "" {
		return err
	}
	cp := *e
	cp.Property = property
	return &cp
}

// KindOf returns the kind of err, or 0 when err carries no Kind
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}
