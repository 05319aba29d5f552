package dynabean

import (
	"reflect"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/convert"
	"github.com/effectus/beanpath/path"
)

// LazyBean is a bean whose properties are declared by their first Set.
// Reading a property that was never set yields nil. Indexed and mapped
// writes create the backing []any or map[string]any on demand, and indexed
// writes past the end grow the slice.
type LazyBean struct {
	names     []string
	types     map[string]reflect.Type
	values    map[string]any
	converter *convert.Registry
}

var (
	_ beanpath.IndexedBean = (*LazyBean)(nil)
	_ beanpath.MappedBean  = (*LazyBean)(nil)
)

// NewLazyBean creates an empty lazy bean
func NewLazyBean() *LazyBean {
	return &LazyBean{
		types:     make(map[string]reflect.Type),
		values:    make(map[string]any),
		converter: convert.Default(),
	}
}

// Get returns the value of name, nil when it was never set
func (b *LazyBean) Get(name string) (any, error) {
	return b.values[name], nil
}

// Set stores value. The first Set of a name declares its type from value;
// later sets convert to that type.
func (b *LazyBean) Set(name string, value any) error {
	typ, known := b.types[name]
	if !known {
		if !path.ValidName(name) {
			return beanpath.Errorf(beanpath.PathSyntax, name, "invalid property name")
		}
		b.declare(name, value)
		b.values[name] = value
		return nil
	}
	conv, err := b.converter.ConvertValue(value, typ)
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	b.values[name] = conv
	return nil
}

func (b *LazyBean) declare(name string, value any) {
	typ := anyType
	if value != nil {
		typ = reflect.TypeOf(value)
	}
	b.types[name] = typ
	b.names = append(b.names, name)
}

// Has reports whether name has been set
func (b *LazyBean) Has(name string) bool {
	_, ok := b.types[name]
	return ok
}

// Describe lists the properties in the order they were first set
func (b *LazyBean) Describe() []beanpath.Property {
	props := make([]beanpath.Property, 0, len(b.names))
	for _, n := range b.names {
		props = append(props, beanpath.Property{Name: n, Type: b.types[n]})
	}
	return props
}

// GetIndexed reads element index of a sequence property
func (b *LazyBean) GetIndexed(name string, index int) (any, error) {
	v, ok := b.values[name]
	if !ok || v == nil {
		return nil, beanpath.Errorf(beanpath.NullIntermediate, name, "value is nil")
	}
	seq := reflect.ValueOf(v)
	if seq.Kind() != reflect.Slice && seq.Kind() != reflect.Array {
		return nil, beanpath.Errorf(beanpath.NotSupported, name, "%T is not an indexed property", v)
	}
	if index < 0 || index >= seq.Len() {
		return nil, beanpath.Errorf(beanpath.IndexOutOfRange, name, "index %d, length %d", index, seq.Len())
	}
	return seq.Index(index).Interface(), nil
}

// SetIndexed writes element index, creating or growing a slice as needed
func (b *LazyBean) SetIndexed(name string, index int, value any) error {
	if index < 0 {
		return beanpath.Errorf(beanpath.IndexOutOfRange, name, "negative index %d", index)
	}
	v, ok := b.values[name]
	if !ok || v == nil {
		if !ok {
			b.declare(name, []any(nil))
		}
		v = []any(nil)
	}
	seq := reflect.ValueOf(v)
	if seq.Kind() != reflect.Slice {
		return beanpath.Errorf(beanpath.NotSupported, name, "%T is not a growable indexed property", v)
	}
	if index >= seq.Len() {
		grown := reflect.MakeSlice(seq.Type(), index+1, index+1)
		reflect.Copy(grown, seq)
		seq = grown
	}
	elem, err := b.converter.Convert(value, seq.Type().Elem())
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	seq.Index(index).Set(elem)
	b.values[name] = seq.Interface()
	return nil
}

// GetMapped reads key of a map property. Absent keys and unset maps yield nil.
func (b *LazyBean) GetMapped(name, key string) (any, error) {
	v := b.values[name]
	switch m := v.(type) {
	case nil:
		return nil, nil
	case beanpath.Bean:
		if !m.Has(key) {
			return nil, nil
		}
		return m.Get(key)
	}
	m := reflect.ValueOf(v)
	if m.Kind() != reflect.Map {
		return nil, beanpath.Errorf(beanpath.NotSupported, name, "%T is not a mapped property", v)
	}
	k, err := b.converter.Convert(key, m.Type().Key())
	if err != nil {
		return nil, beanpath.WithProperty(err, name)
	}
	out := m.MapIndex(k)
	if !out.IsValid() {
		return nil, nil
	}
	return out.Interface(), nil
}

// SetMapped writes key of a map property, creating a map[string]any when unset
func (b *LazyBean) SetMapped(name, key string, value any) error {
	v, ok := b.values[name]
	if nested, isBean := v.(beanpath.Bean); isBean {
		return nested.Set(key, value)
	}
	if !ok || v == nil {
		if !ok {
			b.declare(name, map[string]any(nil))
		}
		v = make(map[string]any)
		b.values[name] = v
	}
	m := reflect.ValueOf(v)
	if m.Kind() != reflect.Map {
		return beanpath.Errorf(beanpath.NotSupported, name, "%T is not a mapped property", v)
	}
	if m.IsNil() {
		m = reflect.MakeMap(m.Type())
		b.values[name] = m.Interface()
	}
	k, err := b.converter.Convert(key, m.Type().Key())
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	val, err := b.converter.Convert(value, m.Type().Elem())
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	m.SetMapIndex(k, val)
	return nil
}
