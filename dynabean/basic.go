// Package dynabean provides beanpath.Bean implementations that are not
// backed by a Go struct: class-described property bags, lazily grown bags,
// read-only JSON documents, protobuf messages and adapters between beans,
// Go values and maps.
package dynabean

import (
	"reflect"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/convert"
	"github.com/effectus/beanpath/path"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Class is the shared property description of a family of BasicBeans.
// It is immutable once created.
type Class struct {
	name      string
	props     []beanpath.Property
	index     map[string]int
	converter *convert.Registry
}

// NewClass creates a class with the given ordered properties. A property
// with a nil Type accepts any value.
func NewClass(name string, props ...beanpath.Property) (*Class, error) {
	c := &Class{
		name:      name,
		props:     make([]beanpath.Property, 0, len(props)),
		index:     make(map[string]int, len(props)),
		converter: convert.Default(),
	}
	for _, p := range props {
		if !path.ValidName(p.Name) {
			return nil, beanpath.Errorf(beanpath.PathSyntax, p.Name, "invalid property name in class %s", name)
		}
		if _, dup := c.index[p.Name]; dup {
			return nil, beanpath.Errorf(beanpath.PathSyntax, p.Name, "duplicate property in class %s", name)
		}
		if p.Type == nil {
			p.Type = anyType
		}
		c.index[p.Name] = len(c.props)
		c.props = append(c.props, p)
	}
	return c, nil
}

// MustClass is NewClass panicking on error, for static class definitions
func MustClass(name string, props ...beanpath.Property) *Class {
	c, err := NewClass(name, props...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the class name
func (c *Class) Name() string {
	return c.name
}

// Properties returns a copy of the ordered property list
func (c *Class) Properties() []beanpath.Property {
	return append([]beanpath.Property(nil), c.props...)
}

// Property looks up a property by name
func (c *Class) Property(name string) (beanpath.Property, bool) {
	i, ok := c.index[name]
	if !ok {
		return beanpath.Property{}, false
	}
	return c.props[i], true
}

// NewInstance creates an empty bean of this class
func (c *Class) NewInstance() *BasicBean {
	return &BasicBean{class: c, values: make(map[string]any, len(c.props))}
}

// BasicBean is an in-memory bean whose properties are fixed by its Class.
// Values are converted to the declared type on Set. Not safe for
// concurrent mutation.
type BasicBean struct {
	class  *Class
	values map[string]any
}

var (
	_ beanpath.IndexedBean = (*BasicBean)(nil)
	_ beanpath.MappedBean  = (*BasicBean)(nil)
)

// Class returns the bean's class
func (b *BasicBean) Class() *Class {
	return b.class
}

// Get returns the property value, or the zero value of its type when unset
func (b *BasicBean) Get(name string) (any, error) {
	p, ok := b.class.Property(name)
	if !ok {
		return nil, beanpath.Errorf(beanpath.NoSuchProperty, name, "class %s has no such property", b.class.name)
	}
	if v, ok := b.values[name]; ok {
		return v, nil
	}
	if p.Type == anyType {
		return nil, nil
	}
	return reflect.Zero(p.Type).Interface(), nil
}

// Set converts value to the declared type and stores it
func (b *BasicBean) Set(name string, value any) error {
	p, ok := b.class.Property(name)
	if !ok {
		return beanpath.Errorf(beanpath.NoSuchProperty, name, "class %s has no such property", b.class.name)
	}
	conv, err := b.class.converter.ConvertValue(value, p.Type)
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	b.values[name] = conv
	return nil
}

// Has reports whether the class declares name
func (b *BasicBean) Has(name string) bool {
	_, ok := b.class.Property(name)
	return ok
}

// Describe returns the class properties
func (b *BasicBean) Describe() []beanpath.Property {
	return b.class.Properties()
}

// GetIndexed reads element index of a slice or array property
func (b *BasicBean) GetIndexed(name string, index int) (any, error) {
	seq, err := b.sequence(name, index)
	if err != nil {
		return nil, err
	}
	return seq.Index(index).Interface(), nil
}

// SetIndexed writes element index of a slice or array property. Array
// values are copied, modified and stored back.
func (b *BasicBean) SetIndexed(name string, index int, value any) error {
	seq, err := b.sequence(name, index)
	if err != nil {
		return err
	}
	if seq.Kind() == reflect.Array {
		cp := reflect.New(seq.Type()).Elem()
		cp.Set(seq)
		seq = cp
	}
	elem, err := b.class.converter.Convert(value, seq.Type().Elem())
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	seq.Index(index).Set(elem)
	if seq.Kind() == reflect.Array {
		b.values[name] = seq.Interface()
	}
	return nil
}

func (b *BasicBean) sequence(name string, index int) (reflect.Value, error) {
	v, err := b.Get(name)
	if err != nil {
		return reflect.Value{}, err
	}
	if v == nil {
		return reflect.Value{}, beanpath.Errorf(beanpath.NullIntermediate, name, "value is nil")
	}
	seq := reflect.ValueOf(v)
	if seq.Kind() != reflect.Slice && seq.Kind() != reflect.Array {
		return reflect.Value{}, beanpath.Errorf(beanpath.NotSupported, name, "%T is not an indexed property", v)
	}
	if seq.Kind() == reflect.Slice && seq.IsNil() {
		return reflect.Value{}, beanpath.Errorf(beanpath.NullIntermediate, name, "value is nil")
	}
	if index < 0 || index >= seq.Len() {
		return reflect.Value{}, beanpath.Errorf(beanpath.IndexOutOfRange, name, "index %d, length %d", index, seq.Len())
	}
	return seq, nil
}

// GetMapped reads key of a map property. An absent key yields nil.
func (b *BasicBean) GetMapped(name, key string) (any, error) {
	if nested, ok := b.values[name].(beanpath.Bean); ok {
		if !nested.Has(key) {
			return nil, nil
		}
		return nested.Get(key)
	}
	m, err := b.mapValue(name, false)
	if err != nil {
		return nil, err
	}
	if !m.IsValid() {
		return nil, beanpath.Errorf(beanpath.NullIntermediate, name, "value is nil")
	}
	k, err := b.class.converter.Convert(key, m.Type().Key())
	if err != nil {
		return nil, beanpath.WithProperty(err, name)
	}
	v := m.MapIndex(k)
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

// SetMapped writes key of a map property, creating the map when unset
func (b *BasicBean) SetMapped(name, key string, value any) error {
	if nested, ok := b.values[name].(beanpath.Bean); ok {
		return nested.Set(key, value)
	}
	m, err := b.mapValue(name, true)
	if err != nil {
		return err
	}
	k, err := b.class.converter.Convert(key, m.Type().Key())
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	v, err := b.class.converter.Convert(value, m.Type().Elem())
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	m.SetMapIndex(k, v)
	return nil
}

func (b *BasicBean) mapValue(name string, create bool) (reflect.Value, error) {
	p, ok := b.class.Property(name)
	if !ok {
		return reflect.Value{}, beanpath.Errorf(beanpath.NoSuchProperty, name, "class %s has no such property", b.class.name)
	}
	m := reflect.ValueOf(b.values[name])
	if !m.IsValid() && p.Type.Kind() == reflect.Map {
		m = reflect.Zero(p.Type)
	}
	if !m.IsValid() || m.Kind() != reflect.Map {
		return reflect.Value{}, beanpath.Errorf(beanpath.NotSupported, name, "%s is not a mapped property", p.Type)
	}
	if m.IsNil() {
		if !create {
			return reflect.Value{}, nil
		}
		m = reflect.MakeMap(m.Type())
		b.values[name] = m.Interface()
	}
	return m, nil
}
