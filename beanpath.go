// Package beanpath provides uniform read/write access to object graphs through
// textual property paths such as "address.city", "items[2]" or
// "attributes(color)".
//
// The engine lives in the navigator package; this package holds the pieces
// every other package shares: the Bean capability, the null-intermediate
// policy and the uniform Error type.
package beanpath

import (
	"reflect"
)

// Property describes one named property of a Bean
type Property struct {
	Name string
	Type reflect.Type
}

// Bean is a value exposing named properties without reflective introspection.
// The navigator checks for this capability before falling back to reflection,
// so a Bean is never resolved reflectively.
type Bean interface {
	// Get returns the value of the named property
	Get(name string) (any, error)

	// Set assigns the named property
	Set(name string, value any) error

	// Has reports whether the bean exposes the named property
	Has(name string) bool

	// Describe returns the bean's properties in declaration order
	Describe() []Property
}

// IndexedBean is implemented by beans that handle "name[i]" segments themselves.
type IndexedBean interface {
	Bean
	GetIndexed(name string, index int) (any, error)
	SetIndexed(name string, index int, value any) error
}

// MappedBean is implemented by beans that handle "name(key)" segments themselves.
type MappedBean interface {
	Bean
	GetMapped(name, key string) (any, error)
	SetMapped(name, key string, value any) error
}

// NullPolicy selects what happens when a path meets nil before its last segment
type NullPolicy int

const (
	// Fail returns a NullIntermediate error
	Fail NullPolicy = iota
	// Ignore logs a warning and yields an absent value (or a no-op for writes)
	Ignore
)

// String returns the policy name
func (p NullPolicy) String() string {
	switch p {
	case Fail:
		return "fail"
	case Ignore:
		return "ignore"
	default:
		return "unknown"
	}
}

// PolicyFor maps the boolean "ignore null" flag used by the callback
// constructors onto a NullPolicy.
func PolicyFor(ignoreNull bool) NullPolicy {
	if ignoreNull {
		return Ignore
	}
	return Fail
}

// DeclaredType returns the declared type of name in b's property list.
func DeclaredType(b Bean, name string) (reflect.Type, bool) {
	for _, p := range b.Describe() {
		if p.Name == name {
			return p.Type, true
		}
	}
	return nil, false
}
