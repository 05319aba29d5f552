package dynabean

import (
	"iter"
	"reflect"

	"github.com/effectus/beanpath"
)

// Entry is one key/value pair of a MapView snapshot
type Entry[K comparable] struct {
	Key   K
	Value any
}

// MapView presents a Bean as a map keyed by K. The key type only changes
// how properties are named to the caller: NameView keys by property name,
// PropertyView by the full Property. Keys, Values and Entries return
// snapshots. Removal is not supported.
type MapView[K comparable] struct {
	bean     beanpath.Bean
	name     func(K) string
	key      func(beanpath.Property) K
	readOnly bool
}

// ViewOption configures a MapView
type ViewOption func(*viewOptions)

type viewOptions struct {
	readOnly bool
}

// ReadOnly rejects Put with NotSupported
func ReadOnly() ViewOption {
	return func(o *viewOptions) {
		o.readOnly = true
	}
}

// NewMapView creates a view keyed by K. name maps a key to the property it
// addresses; key maps a property to its key.
func NewMapView[K comparable](bean beanpath.Bean, name func(K) string, key func(beanpath.Property) K, opts ...ViewOption) *MapView[K] {
	var o viewOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &MapView[K]{bean: bean, name: name, key: key, readOnly: o.readOnly}
}

// NameView keys a bean by property name
func NameView(bean beanpath.Bean, opts ...ViewOption) *MapView[string] {
	return NewMapView(bean,
		func(k string) string { return k },
		func(p beanpath.Property) string { return p.Name },
		opts...)
}

// PropertyView keys a bean by its Property descriptors
func PropertyView(bean beanpath.Bean, opts ...ViewOption) *MapView[beanpath.Property] {
	return NewMapView(bean,
		func(p beanpath.Property) string { return p.Name },
		func(p beanpath.Property) beanpath.Property { return p },
		opts...)
}

// Bean returns the underlying bean
func (v *MapView[K]) Bean() beanpath.Bean {
	return v.bean
}

// ReadOnly reports whether Put is rejected
func (v *MapView[K]) ReadOnly() bool {
	return v.readOnly
}

// Len returns the number of properties
func (v *MapView[K]) Len() int {
	return len(v.bean.Describe())
}

// IsEmpty reports whether the bean has no properties
func (v *MapView[K]) IsEmpty() bool {
	return v.Len() == 0
}

// Keys returns a snapshot of the keys in property order
func (v *MapView[K]) Keys() []K {
	props := v.bean.Describe()
	keys := make([]K, len(props))
	for i, p := range props {
		keys[i] = v.key(p)
	}
	return keys
}

// Values returns a snapshot of the values in property order
func (v *MapView[K]) Values() ([]any, error) {
	entries, err := v.Entries()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// Entries returns a snapshot of the key/value pairs in property order
func (v *MapView[K]) Entries() ([]Entry[K], error) {
	props := v.bean.Describe()
	entries := make([]Entry[K], 0, len(props))
	for _, p := range props {
		val, err := v.bean.Get(p.Name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry[K]{Key: v.key(p), Value: val})
	}
	return entries, nil
}

// All iterates the current entries in property order. A failed read is
// yielded with its error and ends the iteration.
func (v *MapView[K]) All() iter.Seq2[Entry[K], error] {
	return func(yield func(Entry[K], error) bool) {
		for _, p := range v.bean.Describe() {
			val, err := v.bean.Get(p.Name)
			if err != nil {
				yield(Entry[K]{Key: v.key(p)}, err)
				return
			}
			if !yield(Entry[K]{Key: v.key(p), Value: val}, nil) {
				return
			}
		}
	}
}

// ContainsKey reports whether the bean has the property k names
func (v *MapView[K]) ContainsKey(k K) bool {
	return v.bean.Has(v.name(k))
}

// ContainsValue reports whether any property currently holds value
func (v *MapView[K]) ContainsValue(value any) (bool, error) {
	values, err := v.Values()
	if err != nil {
		return false, err
	}
	for _, candidate := range values {
		if reflect.DeepEqual(candidate, value) {
			return true, nil
		}
	}
	return false, nil
}

// Get returns the value of the property k names. The bool is false when
// the bean has no such property.
func (v *MapView[K]) Get(k K) (any, bool, error) {
	name := v.name(k)
	if !v.bean.Has(name) {
		return nil, false, nil
	}
	val, err := v.bean.Get(name)
	if err != nil {
		return nil, true, err
	}
	return val, true, nil
}

// Put sets the property k names and returns its previous value
func (v *MapView[K]) Put(k K, value any) (any, error) {
	name := v.name(k)
	if v.readOnly {
		return nil, beanpath.Errorf(beanpath.NotSupported, name, "map view is read-only")
	}
	var previous any
	if v.bean.Has(name) {
		prev, err := v.bean.Get(name)
		if err != nil {
			return nil, err
		}
		previous = prev
	}
	if err := v.bean.Set(name, value); err != nil {
		return nil, err
	}
	return previous, nil
}

// PutAll sets every entry of values
func (v *MapView[K]) PutAll(values map[K]any) error {
	for k, val := range values {
		if _, err := v.Put(k, val); err != nil {
			return err
		}
	}
	return nil
}

// Delete is not supported; bean properties cannot be removed
func (v *MapView[K]) Delete(k K) error {
	return beanpath.Errorf(beanpath.NotSupported, v.name(k), "map view does not support removal")
}

// Clear is not supported; bean properties cannot be removed
func (v *MapView[K]) Clear() error {
	return beanpath.Errorf(beanpath.NotSupported, "", "map view does not support clear")
}
