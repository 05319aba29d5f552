package dynabean

import (
	"reflect"

	"github.com/tidwall/gjson"

	"github.com/effectus/beanpath"
)

// JSONBean is a read-only bean over a JSON object. Nested objects are
// returned as JSONBeans, arrays as []any, integral numbers as int64 and
// other numbers as float64.
type JSONBean struct {
	result gjson.Result
}

var _ beanpath.MappedBean = (*JSONBean)(nil)

// ParseJSON returns a bean over the JSON object in data
func ParseJSON(data []byte) (*JSONBean, error) {
	if !gjson.ValidBytes(data) {
		return nil, beanpath.Errorf(beanpath.TypeConversion, "", "invalid JSON document")
	}
	return FromResult(gjson.ParseBytes(data))
}

// FromResult returns a bean over an already parsed gjson object
func FromResult(result gjson.Result) (*JSONBean, error) {
	if !result.IsObject() {
		return nil, beanpath.Errorf(beanpath.TypeConversion, "", "JSON value is %s, not an object", result.Type)
	}
	return &JSONBean{result: result}, nil
}

// Raw returns the JSON text of the object
func (b *JSONBean) Raw() string {
	return b.result.Raw
}

// MarshalJSON returns the original JSON text
func (b *JSONBean) MarshalJSON() ([]byte, error) {
	return []byte(b.result.Raw), nil
}

// Query evaluates a gjson path against the object
func (b *JSONBean) Query(gjsonPath string) any {
	return fromJSON(b.result.Get(gjsonPath))
}

// Get returns the member name. Member names are matched literally, so
// names containing gjson path characters are found as written.
func (b *JSONBean) Get(name string) (any, error) {
	member, ok := b.member(name)
	if !ok {
		return nil, beanpath.Errorf(beanpath.NoSuchProperty, name, "no such JSON member")
	}
	return fromJSON(member), nil
}

// Set always fails; the document is read-only
func (b *JSONBean) Set(name string, _ any) error {
	return beanpath.Errorf(beanpath.NotWritable, name, "JSON bean is read-only")
}

// Has reports whether the object has the member name
func (b *JSONBean) Has(name string) bool {
	_, ok := b.member(name)
	return ok
}

// Describe lists the members in document order with the Go type Get returns
func (b *JSONBean) Describe() []beanpath.Property {
	var props []beanpath.Property
	b.result.ForEach(func(key, value gjson.Result) bool {
		props = append(props, beanpath.Property{Name: key.String(), Type: jsonType(value)})
		return true
	})
	return props
}

// GetMapped reads key of an object member, nil when the key is absent
func (b *JSONBean) GetMapped(name, key string) (any, error) {
	member, ok := b.member(name)
	if !ok {
		return nil, beanpath.Errorf(beanpath.NoSuchProperty, name, "no such JSON member")
	}
	if member.Type == gjson.Null {
		return nil, beanpath.Errorf(beanpath.NullIntermediate, name, "value is null")
	}
	if !member.IsObject() {
		return nil, beanpath.Errorf(beanpath.NotSupported, name, "JSON %s is not a mapped property", member.Type)
	}
	nested := &JSONBean{result: member}
	value, ok := nested.member(key)
	if !ok {
		return nil, nil
	}
	return fromJSON(value), nil
}

// SetMapped always fails; the document is read-only
func (b *JSONBean) SetMapped(name, _ string, _ any) error {
	return beanpath.Errorf(beanpath.NotWritable, name, "JSON bean is read-only")
}

func (b *JSONBean) member(name string) (gjson.Result, bool) {
	var found gjson.Result
	ok := false
	b.result.ForEach(func(key, value gjson.Result) bool {
		if key.String() == name {
			found, ok = value, true
			return false
		}
		return true
	})
	return found, ok
}

func fromJSON(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		if r.Float() == float64(r.Int()) {
			return r.Int()
		}
		return r.Float()
	case gjson.String:
		return r.String()
	case gjson.JSON:
		if r.IsObject() {
			return &JSONBean{result: r}
		}
		arr := r.Array()
		out := make([]any, len(arr))
		for i, v := range arr {
			out[i] = fromJSON(v)
		}
		return out
	default:
		return nil
	}
}

var (
	jsonBeanType = reflect.TypeOf(&JSONBean{})
	sliceType    = reflect.TypeOf([]any(nil))
)

func jsonType(r gjson.Result) reflect.Type {
	v := fromJSON(r)
	switch v.(type) {
	case nil:
		return anyType
	case *JSONBean:
		return jsonBeanType
	case []any:
		return sliceType
	default:
		return reflect.TypeOf(v)
	}
}
