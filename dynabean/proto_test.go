package dynabean

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/navigator"
)

func protoField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string, repeated bool) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

// eventDescriptor builds a message type at runtime so the tests need no
// generated code.
func eventDescriptor(t *testing.T) protoreflect.MessageDescriptor {
	t.Helper()

	const (
		str = descriptorpb.FieldDescriptorProto_TYPE_STRING
		msg = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	)
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("beanpath/test/event.proto"),
		Package:    proto.String("beanpath.test"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Status"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("STATUS_UNKNOWN"), Number: proto.Int32(0)},
				{Name: proto.String("STATUS_ACTIVE"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Event"),
			Field: []*descriptorpb.FieldDescriptorProto{
				protoField("event_id", 1, str, "", false),
				protoField("count", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32, "", false),
				protoField("tags", 3, str, "", true),
				protoField("labels", 4, msg, ".beanpath.test.Event.LabelsEntry", true),
				protoField("created_at", 5, msg, ".google.protobuf.Timestamp", false),
				protoField("status", 6, descriptorpb.FieldDescriptorProto_TYPE_ENUM, ".beanpath.test.Status", false),
				protoField("parent", 7, msg, ".beanpath.test.Event", false),
			},
			NestedType: []*descriptorpb.DescriptorProto{{
				Name: proto.String("LabelsEntry"),
				Field: []*descriptorpb.FieldDescriptorProto{
					protoField("key", 1, str, "", false),
					protoField("value", 2, str, "", false),
				},
				Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
			}},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	require.NoError(t, err)
	md := fd.Messages().ByName("Event")
	require.NotNil(t, md)
	return md
}

func newEvent(t *testing.T) *ProtoBean {
	return FromMessage(dynamicpb.NewMessage(eventDescriptor(t)))
}

func TestProtoBeanScalars(t *testing.T) {
	b := newEvent(t)

	require.NoError(t, b.Set("event_id", "e1"))
	got, err := b.Get("eventId")
	require.NoError(t, err)
	assert.Equal(t, "e1", got, "JSON names resolve to the proto field")

	require.NoError(t, b.Set("count", "7"))
	got, err = b.Get("count")
	require.NoError(t, err)
	assert.Equal(t, int32(7), got)

	require.NoError(t, b.Set("status", "STATUS_ACTIVE"))
	got, err = b.Get("status")
	require.NoError(t, err)
	assert.Equal(t, "STATUS_ACTIVE", got)

	require.NoError(t, b.Set("status", 0))
	got, err = b.Get("status")
	require.NoError(t, err)
	assert.Equal(t, "STATUS_UNKNOWN", got)

	assert.ErrorIs(t, b.Set("status", "STATUS_GONE"), beanpath.TypeConversion)
	assert.ErrorIs(t, b.Set("count", "many"), beanpath.TypeConversion)

	_, err = b.Get("nope")
	assert.ErrorIs(t, err, beanpath.NoSuchProperty)
	assert.False(t, b.Has("nope"))
}

func TestProtoBeanRepeatedAndMap(t *testing.T) {
	b := newEvent(t)

	require.NoError(t, b.Set("tags", []string{"a", "b"}))
	got, err := b.GetIndexed("tags", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	require.NoError(t, b.SetIndexed("tags", 0, "z"))
	got, err = b.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"z", "b"}, got)

	_, err = b.GetIndexed("tags", 2)
	assert.ErrorIs(t, err, beanpath.IndexOutOfRange)

	require.NoError(t, b.SetMapped("labels", "env", "prod"))
	got, err = b.GetMapped("labels", "env")
	require.NoError(t, err)
	assert.Equal(t, "prod", got)

	got, err = b.GetMapped("labels", "team")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = b.Get("labels")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"env": "prod"}, got)
}

func TestProtoBeanMessages(t *testing.T) {
	b := newEvent(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, b.Set("created_at", timestamppb.New(ts)))
	got, err := b.Get("created_at")
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	got, err = b.Get("parent")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, b.SetMapped("parent", "event_id", "p1"))
	parent, err := b.Get("parent")
	require.NoError(t, err)
	require.IsType(t, &ProtoBean{}, parent)
	got, err = parent.(*ProtoBean).Get("event_id")
	require.NoError(t, err)
	assert.Equal(t, "p1", got)

	assert.ErrorIs(t, b.Set("parent", timestamppb.Now()), beanpath.TypeConversion)
}

func TestProtoBeanDescribe(t *testing.T) {
	b := newEvent(t)

	var names []string
	types := make(map[string]reflect.Type)
	for _, p := range b.Describe() {
		names = append(names, p.Name)
		types[p.Name] = p.Type
	}
	assert.Equal(t, []string{"event_id", "count", "tags", "labels", "created_at", "status", "parent"}, names)
	assert.Equal(t, reflect.TypeOf(int32(0)), types["count"])
	assert.Equal(t, reflect.TypeOf(time.Time{}), types["created_at"])
	assert.Equal(t, reflect.TypeOf(""), types["status"])
	assert.Equal(t, messageType, types["parent"])
}

func TestProtoBeanNavigation(t *testing.T) {
	nav := navigator.New(nil)
	b := newEvent(t)

	require.NoError(t, nav.Assign(b, "tags", []string{"x", "y"}, beanpath.Fail))
	require.NoError(t, nav.Assign(b, "labels(env)", "dev", beanpath.Fail))
	require.NoError(t, nav.Assign(b, "created_at", "2024-05-01T00:00:00Z", beanpath.Fail))
	require.NoError(t, nav.Assign(b, "status", 1, beanpath.Fail))
	got, err := nav.Resolve(b, "status", beanpath.Fail)
	require.NoError(t, err)
	assert.Equal(t, "STATUS_ACTIVE", got, "enum numbers assign through a path like a direct Set")
	require.NoError(t, b.Set("status", "0"))
	got, err = b.Get("status")
	require.NoError(t, err)
	assert.Equal(t, "STATUS_UNKNOWN", got)
	assert.ErrorIs(t, nav.Assign(b, "status", "STATUS_GONE", beanpath.Fail), beanpath.TypeConversion)

	got, err = nav.Resolve(b, "tags[1]", beanpath.Fail)
	require.NoError(t, err)
	assert.Equal(t, "y", got)

	got, err = nav.Resolve(b, "labels(env)", beanpath.Fail)
	require.NoError(t, err)
	assert.Equal(t, "dev", got)

	got, err = nav.Resolve(b, "created_at", beanpath.Fail)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = nav.Resolve(b, "parent.event_id", beanpath.Fail)
	assert.ErrorIs(t, err, beanpath.NullIntermediate)

	// generated messages work the same way
	stamp := NewProtoBean(timestamppb.New(time.Unix(10, 5)))
	got, err = nav.Resolve(stamp, "seconds", beanpath.Fail)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)
	got, err = nav.Resolve(stamp, "nanos", beanpath.Fail)
	require.NoError(t, err)
	assert.Equal(t, int32(5), got)
}
