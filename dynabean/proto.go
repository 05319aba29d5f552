package dynabean

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/convert"
)

const timestampName protoreflect.FullName = "google.protobuf.Timestamp"

// ProtoBean exposes the fields of a protobuf message as bean properties.
// Properties are named by the proto field name; lookups also accept the
// JSON name and camelCase spellings. Nested messages are returned as
// ProtoBeans and declared as proto.Message. google.protobuf.Timestamp maps
// to time.Time and enums to their value name. Repeated fields read as []any
// and map fields as map[string]any.
type ProtoBean struct {
	msg       protoreflect.Message
	converter *convert.Registry
}

var (
	_ beanpath.IndexedBean = (*ProtoBean)(nil)
	_ beanpath.MappedBean  = (*ProtoBean)(nil)
	_ proto.Message        = (*ProtoBean)(nil)
)

// NewProtoBean wraps a message
func NewProtoBean(m proto.Message) *ProtoBean {
	return FromMessage(m.ProtoReflect())
}

// FromMessage wraps a reflective message
func FromMessage(m protoreflect.Message) *ProtoBean {
	return &ProtoBean{msg: m, converter: convert.Default()}
}

// Message returns the wrapped message
func (b *ProtoBean) Message() proto.Message {
	return b.msg.Interface()
}

// ProtoReflect makes a ProtoBean usable wherever a proto.Message is
func (b *ProtoBean) ProtoReflect() protoreflect.Message {
	return b.msg
}

func (b *ProtoBean) field(name string) (protoreflect.FieldDescriptor, error) {
	fields := b.msg.Descriptor().Fields()
	fd := fields.ByName(protoreflect.Name(name))
	if fd == nil {
		fd = fields.ByJSONName(name)
	}
	if fd == nil {
		fd = fields.ByName(protoreflect.Name(camelToSnake(name)))
	}
	if fd == nil {
		return nil, beanpath.Errorf(beanpath.NoSuchProperty, name, "message %s has no such field", b.msg.Descriptor().FullName())
	}
	return fd, nil
}

// Get returns the field value. An unset singular message field is nil.
func (b *ProtoBean) Get(name string) (any, error) {
	fd, err := b.field(name)
	if err != nil {
		return nil, err
	}
	switch {
	case fd.IsList():
		list := b.msg.Get(fd).List()
		out := make([]any, list.Len())
		for i := range out {
			out[i] = fromProto(fd, list.Get(i))
		}
		return out, nil
	case fd.IsMap():
		out := make(map[string]any)
		b.msg.Get(fd).Map().Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
			out[k.String()] = fromProto(fd.MapValue(), v)
			return true
		})
		return out, nil
	case fd.Message() != nil && !b.msg.Has(fd):
		return nil, nil
	default:
		return fromProto(fd, b.msg.Get(fd)), nil
	}
}

// Set assigns a field. nil clears it; repeated fields take any slice.
func (b *ProtoBean) Set(name string, value any) error {
	fd, err := b.field(name)
	if err != nil {
		return err
	}
	if value == nil {
		b.msg.Clear(fd)
		return nil
	}
	switch {
	case fd.IsMap():
		return beanpath.Errorf(beanpath.NotSupported, name, "assign map entries with a keyed path")
	case fd.IsList():
		src := reflect.ValueOf(value)
		if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
			return beanpath.Errorf(beanpath.TypeConversion, name, "cannot assign %T to repeated field", value)
		}
		list := b.msg.NewField(fd).List()
		for i := 0; i < src.Len(); i++ {
			v, err := b.toProto(fd, src.Index(i).Interface())
			if err != nil {
				return beanpath.WithProperty(err, name)
			}
			list.Append(v)
		}
		b.msg.Set(fd, protoreflect.ValueOfList(list))
		return nil
	default:
		v, err := b.toProto(fd, value)
		if err != nil {
			return beanpath.WithProperty(err, name)
		}
		b.msg.Set(fd, v)
		return nil
	}
}

// Has reports whether the message declares the field
func (b *ProtoBean) Has(name string) bool {
	_, err := b.field(name)
	return err == nil
}

// Describe lists the fields in declaration order
func (b *ProtoBean) Describe() []beanpath.Property {
	fields := b.msg.Descriptor().Fields()
	props := make([]beanpath.Property, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		var typ reflect.Type
		switch {
		case fd.IsList():
			typ = sliceType
		case fd.IsMap():
			typ = reflect.TypeOf(map[string]any(nil))
		default:
			typ = protoType(fd)
		}
		props = append(props, beanpath.Property{Name: string(fd.Name()), Type: typ})
	}
	return props
}

// GetIndexed reads element index of a repeated field
func (b *ProtoBean) GetIndexed(name string, index int) (any, error) {
	fd, list, err := b.list(name, index)
	if err != nil {
		return nil, err
	}
	return fromProto(fd, list.Get(index)), nil
}

// SetIndexed replaces element index of a repeated field
func (b *ProtoBean) SetIndexed(name string, index int, value any) error {
	fd, list, err := b.list(name, index)
	if err != nil {
		return err
	}
	v, err := b.toProto(fd, value)
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	list.Set(index, v)
	return nil
}

func (b *ProtoBean) list(name string, index int) (protoreflect.FieldDescriptor, protoreflect.List, error) {
	fd, err := b.field(name)
	if err != nil {
		return nil, nil, err
	}
	if !fd.IsList() {
		return nil, nil, beanpath.Errorf(beanpath.NotSupported, name, "field is not repeated")
	}
	list := b.msg.Get(fd).List()
	if index < 0 || index >= list.Len() {
		return nil, nil, beanpath.Errorf(beanpath.IndexOutOfRange, name, "index %d, length %d", index, list.Len())
	}
	if b.msg.Has(fd) {
		list = b.msg.Mutable(fd).List()
	}
	return fd, list, nil
}

// GetMapped reads key of a map field, or the field key of a nested message.
// Absent keys yield nil.
func (b *ProtoBean) GetMapped(name, key string) (any, error) {
	fd, err := b.field(name)
	if err != nil {
		return nil, err
	}
	if !fd.IsMap() {
		nested, err := b.Get(name)
		if err != nil {
			return nil, err
		}
		bean, ok := nested.(*ProtoBean)
		if !ok {
			if nested == nil {
				return nil, beanpath.Errorf(beanpath.NullIntermediate, name, "message is unset")
			}
			return nil, beanpath.Errorf(beanpath.NotSupported, name, "field is not a map")
		}
		if !bean.Has(key) {
			return nil, nil
		}
		return bean.Get(key)
	}
	mk, err := b.mapKey(fd, key)
	if err != nil {
		return nil, beanpath.WithProperty(err, name)
	}
	v := b.msg.Get(fd).Map().Get(mk)
	if !v.IsValid() {
		return nil, nil
	}
	return fromProto(fd.MapValue(), v), nil
}

// SetMapped inserts or replaces key of a map field
func (b *ProtoBean) SetMapped(name, key string, value any) error {
	fd, err := b.field(name)
	if err != nil {
		return err
	}
	if !fd.IsMap() {
		if fd.Message() == nil || fd.IsList() {
			return beanpath.Errorf(beanpath.NotSupported, name, "field is not a map")
		}
		return FromMessage(b.msg.Mutable(fd).Message()).Set(key, value)
	}
	mk, err := b.mapKey(fd, key)
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	v, err := b.toProto(fd.MapValue(), value)
	if err != nil {
		return beanpath.WithProperty(err, name)
	}
	b.msg.Mutable(fd).Map().Set(mk, v)
	return nil
}

func (b *ProtoBean) mapKey(fd protoreflect.FieldDescriptor, key string) (protoreflect.MapKey, error) {
	v, err := b.toProto(fd.MapKey(), key)
	if err != nil {
		return protoreflect.MapKey{}, err
	}
	return v.MapKey(), nil
}

// toProto converts a Go value for storage in a field of fd's kind
func (b *ProtoBean) toProto(fd protoreflect.FieldDescriptor, value any) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		if s, ok := value.(string); ok {
			if ev := fd.Enum().Values().ByName(protoreflect.Name(s)); ev != nil {
				return protoreflect.ValueOfEnum(ev.Number()), nil
			}
			// enums declare string, so numbers assigned through a path
			// arrive in decimal form
			n, err := convert.To[int32](b.converter, s)
			if err != nil {
				return protoreflect.Value{}, beanpath.Errorf(beanpath.TypeConversion, "", "unknown %s value %q", fd.Enum().FullName(), s)
			}
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil
		}
		n, err := convert.To[int32](b.converter, value)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil

	case protoreflect.MessageKind, protoreflect.GroupKind:
		var m protoreflect.Message
		switch v := value.(type) {
		case proto.Message:
			m = v.ProtoReflect()
		case time.Time:
			if fd.Message().FullName() != timestampName {
				return protoreflect.Value{}, beanpath.Errorf(beanpath.TypeConversion, "", "cannot assign time.Time to %s", fd.Message().FullName())
			}
			m = newTimestamp(b.msg.NewField(fd).Message(), v)
		default:
			return protoreflect.Value{}, beanpath.Errorf(beanpath.TypeConversion, "", "cannot assign %T to %s", value, fd.Message().FullName())
		}
		if m.Descriptor().FullName() != fd.Message().FullName() {
			return protoreflect.Value{}, beanpath.Errorf(beanpath.TypeConversion, "", "cannot assign %s to %s", m.Descriptor().FullName(), fd.Message().FullName())
		}
		return protoreflect.ValueOfMessage(m), nil

	default:
		conv, err := b.converter.ConvertValue(value, protoType(fd))
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOf(conv), nil
	}
}

// fromProto converts a singular field value to its Go form
func fromProto(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int32(v.Enum())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		m := v.Message()
		if m.Descriptor().FullName() == timestampName {
			return timestampTime(m)
		}
		return FromMessage(m)
	case protoreflect.BytesKind:
		return v.Bytes()
	default:
		return v.Interface()
	}
}

var (
	messageType = reflect.TypeOf((*proto.Message)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

func protoType(fd protoreflect.FieldDescriptor) reflect.Type {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return reflect.TypeOf(false)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return reflect.TypeOf(int32(0))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return reflect.TypeOf(int64(0))
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return reflect.TypeOf(uint32(0))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return reflect.TypeOf(uint64(0))
	case protoreflect.FloatKind:
		return reflect.TypeOf(float32(0))
	case protoreflect.DoubleKind:
		return reflect.TypeOf(float64(0))
	case protoreflect.StringKind, protoreflect.EnumKind:
		return reflect.TypeOf("")
	case protoreflect.BytesKind:
		return reflect.TypeOf([]byte(nil))
	case protoreflect.MessageKind, protoreflect.GroupKind:
		if fd.Message().FullName() == timestampName {
			return timeType
		}
		return messageType
	default:
		panic(fmt.Sprintf("unhandled proto kind %v", fd.Kind()))
	}
}

func timestampTime(m protoreflect.Message) time.Time {
	fields := m.Descriptor().Fields()
	secs := m.Get(fields.ByName("seconds")).Int()
	nanos := m.Get(fields.ByName("nanos")).Int()
	return time.Unix(secs, nanos).UTC()
}

func newTimestamp(m protoreflect.Message, t time.Time) protoreflect.Message {
	fields := m.Descriptor().Fields()
	m.Set(fields.ByName("seconds"), protoreflect.ValueOfInt64(t.Unix()))
	m.Set(fields.ByName("nanos"), protoreflect.ValueOfInt32(int32(t.Nanosecond())))
	return m
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && 'A' <= r && r <= 'Z' {
			b.WriteRune('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
