package navigator

import (
	"fmt"
	"reflect"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/introspect"
)

// accessorKind is the closed set of ways a named property is reached.
// The kind is chosen from the runtime value at every segment.
type accessorKind int

const (
	// dynamicAccess goes through the beanpath.Bean capability
	dynamicAccess accessorKind = iota
	// reflectiveAccess goes through the introspection cache
	reflectiveAccess
	// mapAccess treats a Go map holder as a name/value bag
	mapAccess
)

// accessor is the resolved target of one named-property access
type accessor struct {
	kind  accessorKind
	bean  beanpath.Bean
	value reflect.Value // dereferenced holder for reflective and map access
	info  *introspect.TypeInfo
}

var beanType = reflect.TypeOf((*beanpath.Bean)(nil)).Elem()

// asBean reports whether v satisfies the Bean capability, either directly
// or through its address.
func asBean(v reflect.Value) (beanpath.Bean, bool) {
	v = unwrapInterface(v)
	if !v.IsValid() || v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, false
	}
	if v.Type().Implements(beanType) && v.CanInterface() {
		return v.Interface().(beanpath.Bean), true
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(beanType) && v.Addr().CanInterface() {
		return v.Addr().Interface().(beanpath.Bean), true
	}
	return nil, false
}

// selectAccessor picks the access variant for holder. holder must not be nil.
func (n *Navigator) selectAccessor(holder reflect.Value) (accessor, error) {
	if bean, ok := asBean(holder); ok {
		return accessor{kind: dynamicAccess, bean: bean}, nil
	}

	v := indirect(holder)
	if v.Kind() == reflect.Map {
		return accessor{kind: mapAccess, value: v}, nil
	}

	info, err := n.cache.Describe(v.Type())
	if err != nil {
		return accessor{}, err
	}
	return accessor{kind: reflectiveAccess, value: v, info: info}, nil
}

// getProperty reads a named property of holder
func (n *Navigator) getProperty(holder reflect.Value, name string) (reflect.Value, error) {
	acc, err := n.selectAccessor(holder)
	if err != nil {
		return reflect.Value{}, err
	}

	switch acc.kind {
	case dynamicAccess:
		v, err := acc.bean.Get(name)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil

	case mapAccess:
		return n.mapLookup(acc.value, name)

	default:
		desc, ok := acc.info.Lookup(name)
		if !ok {
			return reflect.Value{}, beanpath.Errorf(beanpath.NoSuchProperty, name, "type %s has no such property", acc.value.Type())
		}
		if !desc.Readable {
			return reflect.Value{}, beanpath.Errorf(beanpath.NotReadable, name, "no getter on %s", acc.value.Type())
		}
		if desc.Getter != "" {
			return callGetter(acc.value, desc)
		}
		f, err := acc.value.FieldByIndexErr(desc.FieldIndex)
		if err != nil {
			return reflect.Value{}, beanpath.Wrap(beanpath.AccessFailure, name, err, "reading field")
		}
		return f, nil
	}
}

// setProperty writes a named property of holder, converting value to the
// declared type.
func (n *Navigator) setProperty(holder reflect.Value, name string, value any) error {
	acc, err := n.selectAccessor(holder)
	if err != nil {
		return err
	}

	switch acc.kind {
	case dynamicAccess:
		if typ, ok := beanpath.DeclaredType(acc.bean, name); ok && typ != nil {
			conv, err := n.converter.ConvertValue(value, typ)
			if err != nil {
				return beanpath.WithProperty(err, name)
			}
			value = conv
		}
		return acc.bean.Set(name, value)

	case mapAccess:
		return n.mapStore(acc.value, name, value)

	default:
		desc, ok := acc.info.Lookup(name)
		if !ok {
			return beanpath.Errorf(beanpath.NoSuchProperty, name, "type %s has no such property", acc.value.Type())
		}
		if !desc.Writable {
			return beanpath.Errorf(beanpath.NotWritable, name, "no setter on %s", acc.value.Type())
		}
		conv, err := n.converter.Convert(value, desc.Type)
		if err != nil {
			return beanpath.WithProperty(err, name)
		}
		if desc.Setter != "" {
			return callSetter(acc.value, desc, conv)
		}
		f, err := acc.value.FieldByIndexErr(desc.FieldIndex)
		if err != nil {
			return beanpath.Wrap(beanpath.AccessFailure, name, err, "reading field")
		}
		if !f.CanSet() {
			return beanpath.Errorf(beanpath.NotWritable, name, "%s is not addressable; pass a pointer", acc.value.Type())
		}
		f.Set(conv)
		return nil
	}
}

// propertyCapability reports whether name can be read or written on holder
// without touching the value.
func (n *Navigator) propertyCapability(holder reflect.Value, name string) (readable, writable bool) {
	acc, err := n.selectAccessor(holder)
	if err != nil {
		return false, false
	}
	switch acc.kind {
	case dynamicAccess:
		has := acc.bean.Has(name)
		return has, has
	case mapAccess:
		return true, true
	default:
		desc, ok := acc.info.Lookup(name)
		if !ok {
			return false, false
		}
		writable = desc.Writable
		if desc.Setter == "" && desc.FieldBacked() && !acc.value.CanAddr() {
			writable = false
		}
		return desc.Readable, writable
	}
}

// indexGet applies the indexed variant to a sequence value
func indexGet(seq reflect.Value, name string, index int) (reflect.Value, error) {
	if isNil(seq) {
		return reflect.Value{}, nullSequence(name)
	}
	seq = indirect(seq)
	switch seq.Kind() {
	case reflect.Slice, reflect.Array:
		if index < 0 || index >= seq.Len() {
			return reflect.Value{}, beanpath.Errorf(beanpath.IndexOutOfRange, name, "index %d, length %d", index, seq.Len())
		}
		return seq.Index(index), nil
	default:
		return reflect.Value{}, beanpath.Errorf(beanpath.NotSupported, name, "%s is not an indexed property", seq.Type())
	}
}

// indexSet applies the indexed variant for writes
func (n *Navigator) indexSet(seq reflect.Value, name string, index int, value any) error {
	if isNil(seq) {
		return nullSequence(name)
	}
	seq = indirect(seq)
	switch seq.Kind() {
	case reflect.Slice, reflect.Array:
		if index < 0 || index >= seq.Len() {
			return beanpath.Errorf(beanpath.IndexOutOfRange, name, "index %d, length %d", index, seq.Len())
		}
		elem := seq.Index(index)
		if !elem.CanSet() {
			return beanpath.Errorf(beanpath.NotWritable, name, "element %d is not addressable", index)
		}
		conv, err := n.converter.Convert(value, elem.Type())
		if err != nil {
			return beanpath.WithProperty(err, name)
		}
		elem.Set(conv)
		return nil
	default:
		return beanpath.Errorf(beanpath.NotSupported, name, "%s is not an indexed property", seq.Type())
	}
}

// keyGet applies the mapped variant. A missing key is an absent value, not
// an error.
func (n *Navigator) keyGet(m reflect.Value, name, key string) (reflect.Value, error) {
	if isNil(m) {
		return reflect.Value{}, nullSequence(name)
	}
	if bean, ok := asBean(m); ok {
		if !bean.Has(key) {
			return reflect.Value{}, nil
		}
		v, err := bean.Get(key)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}
	m = indirect(m)
	if m.Kind() != reflect.Map {
		return reflect.Value{}, beanpath.Errorf(beanpath.NotSupported, name, "%s is not a mapped property", m.Type())
	}
	return n.mapLookup(m, key)
}

// keySet applies the mapped variant for writes, inserting or overwriting
func (n *Navigator) keySet(m reflect.Value, name, key string, value any) error {
	if bean, ok := asBean(m); ok && !isNil(m) {
		return n.setProperty(reflect.ValueOf(bean), key, value)
	}
	target := m
	for target.Kind() == reflect.Interface && !target.IsNil() {
		target = target.Elem()
	}
	if target.Kind() == reflect.Pointer && !target.IsNil() {
		target = target.Elem()
	}
	if target.Kind() != reflect.Map {
		if isNil(m) {
			return nullSequence(name)
		}
		return beanpath.Errorf(beanpath.NotSupported, name, "%s is not a mapped property", target.Type())
	}
	if target.IsNil() {
		if !target.CanSet() {
			return nullSequence(name)
		}
		target.Set(reflect.MakeMap(target.Type()))
	}
	return n.mapStore(target, key, value)
}

func (n *Navigator) mapLookup(m reflect.Value, key string) (reflect.Value, error) {
	k, err := n.converter.Convert(key, m.Type().Key())
	if err != nil {
		return reflect.Value{}, beanpath.WithProperty(err, key)
	}
	return m.MapIndex(k), nil
}

func (n *Navigator) mapStore(m reflect.Value, key string, value any) error {
	if m.IsNil() {
		return beanpath.Errorf(beanpath.NullIntermediate, key, "map is nil")
	}
	k, err := n.converter.Convert(key, m.Type().Key())
	if err != nil {
		return beanpath.WithProperty(err, key)
	}
	v, err := n.converter.Convert(value, m.Type().Elem())
	if err != nil {
		return beanpath.WithProperty(err, key)
	}
	m.SetMapIndex(k, v)
	return nil
}

func callGetter(holder reflect.Value, desc introspect.Descriptor) (reflect.Value, error) {
	if !holder.CanAddr() {
		// pointer-receiver getters read from an addressable copy
		cp := reflect.New(holder.Type()).Elem()
		cp.Set(holder)
		holder = cp
	}
	method := methodByName(holder, desc.Getter)
	if !method.IsValid() {
		return reflect.Value{}, beanpath.Errorf(beanpath.NotReadable, desc.Name,
			"getter %s needs a pointer receiver; pass a pointer", desc.Getter)
	}
	out, err := call(method, desc.Name)
	if err != nil {
		return reflect.Value{}, err
	}
	if desc.GetterErr && !out[1].IsNil() {
		return reflect.Value{}, beanpath.Wrap(beanpath.AccessFailure, desc.Name, out[1].Interface().(error), desc.Getter)
	}
	return out[0], nil
}

func callSetter(holder reflect.Value, desc introspect.Descriptor, value reflect.Value) error {
	method := methodByName(holder, desc.Setter)
	if !method.IsValid() {
		return beanpath.Errorf(beanpath.NotWritable, desc.Name,
			"setter %s needs a pointer receiver; pass a pointer", desc.Setter)
	}
	out, err := call(method, desc.Name, value)
	if err != nil {
		return err
	}
	if desc.SetterErr && !out[0].IsNil() {
		return beanpath.Wrap(beanpath.AccessFailure, desc.Name, out[0].Interface().(error), desc.Setter)
	}
	return nil
}

func methodByName(holder reflect.Value, name string) reflect.Value {
	if holder.CanAddr() {
		if m := holder.Addr().MethodByName(name); m.IsValid() {
			return m
		}
	}
	return holder.MethodByName(name)
}

// call invokes method, reporting a panic inside it as an AccessFailure
func call(method reflect.Value, property string, args ...reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = beanpath.Wrap(beanpath.AccessFailure, property, fmt.Errorf("panic: %v", r), "accessor panicked")
		}
	}()
	return method.Call(args), nil
}

func nullSequence(name string) error {
	return beanpath.Errorf(beanpath.NullIntermediate, name, "value is nil")
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// indirect follows interfaces and pointers down to the holder value
func indirect(v reflect.Value) reflect.Value {
	for {
		v = unwrapInterface(v)
		if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
			return v
		}
		v = v.Elem()
	}
}

// isNil reports whether v holds no value, looking through interfaces and
// pointer chains so a nil pointer stored in an any field counts as nil.
func isNil(v reflect.Value) bool {
	v = unwrapInterface(v)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return true
		}
		if e := v.Elem(); e.Kind() == reflect.Pointer || e.Kind() == reflect.Interface {
			return isNil(e)
		}
		return false
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
