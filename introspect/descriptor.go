// Package introspect discovers the accessible properties of Go types and
// caches the result per type.
package introspect

import (
	"reflect"

	"github.com/effectus/beanpath"
)

// Descriptor records how one property of a type is read and written.
// Descriptors are built once by the cache and never modified afterwards.
type Descriptor struct {
	Name     string
	Type     reflect.Type
	Readable bool
	Writable bool
	Indexed  bool // Type is a slice or array
	Mapped   bool // Type is a map

	// FieldIndex is the struct field index path, nil for method-only properties
	FieldIndex []int

	// Getter and Setter are method names; empty when absent
	Getter    string
	GetterErr bool // getter returns (T, error)
	Setter    string
	SetterErr bool // setter returns error
}

// FieldBacked reports whether the property is stored in a struct field
func (d Descriptor) FieldBacked() bool {
	return d.FieldIndex != nil
}

func (d Descriptor) withCapabilities() Descriptor {
	if d.Type == nil {
		return d
	}
	switch d.Type.Kind() {
	case reflect.Slice, reflect.Array:
		d.Indexed = true
	case reflect.Map:
		d.Mapped = true
	}
	return d
}

// TypeInfo is the cached metadata of one type
type TypeInfo struct {
	Type        reflect.Type
	descriptors []Descriptor
	byName      map[string]int
}

func newTypeInfo(t reflect.Type, descriptors []Descriptor) *TypeInfo {
	info := &TypeInfo{
		Type:        t,
		descriptors: descriptors,
		byName:      make(map[string]int, len(descriptors)),
	}
	for i, d := range descriptors {
		info.byName[d.Name] = i
	}
	return info
}

// Lookup returns the descriptor for name
func (ti *TypeInfo) Lookup(name string) (Descriptor, bool) {
	i, ok := ti.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return ti.descriptors[i], true
}

// Descriptors returns a copy of the descriptors in contribution order
func (ti *TypeInfo) Descriptors() []Descriptor {
	out := make([]Descriptor, len(ti.descriptors))
	copy(out, ti.descriptors)
	return out
}

// Names returns the property names in order
func (ti *TypeInfo) Names() []string {
	names := make([]string, len(ti.descriptors))
	for i, d := range ti.descriptors {
		names[i] = d.Name
	}
	return names
}

// Properties returns the name/type pairs in order
func (ti *TypeInfo) Properties() []beanpath.Property {
	props := make([]beanpath.Property, len(ti.descriptors))
	for i, d := range ti.descriptors {
		props[i] = beanpath.Property{Name: d.Name, Type: d.Type}
	}
	return props
}

// Len returns the number of properties
func (ti *TypeInfo) Len() int {
	return len(ti.descriptors)
}
