package dynabean

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/navigator"
)

const personJSON = `{
	"name": "Ada",
	"age": 36,
	"score": 9.5,
	"tags": ["a", "b"],
	"address": {"city": "Paris"},
	"meta": {"color": "red"},
	"none": null,
	"a.b": 1
}`

func TestJSONBean(t *testing.T) {
	b, err := ParseJSON([]byte(personJSON))
	require.NoError(t, err)

	tests := []struct {
		name string
		want any
	}{
		{"name", "Ada"},
		{"age", int64(36)},
		{"score", 9.5},
		{"tags", []any{"a", "b"}},
		{"none", nil},
		{"a.b", int64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Get(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = b.Get("missing")
	assert.ErrorIs(t, err, beanpath.NoSuchProperty)
	assert.ErrorIs(t, b.Set("name", "Bob"), beanpath.NotWritable)
	assert.True(t, b.Has("meta"))
	assert.Equal(t, "Paris", b.Query("address.city"))

	props := b.Describe()
	require.Len(t, props, 8)
	assert.Equal(t, beanpath.Property{Name: "age", Type: reflect.TypeOf(int64(0))}, props[1])
	assert.Equal(t, beanpath.Property{Name: "address", Type: jsonBeanType}, props[4])
	assert.Equal(t, beanpath.Property{Name: "none", Type: anyType}, props[6])
}

func TestJSONBeanNavigation(t *testing.T) {
	nav := navigator.New(nil)
	b, err := ParseJSON([]byte(personJSON))
	require.NoError(t, err)

	tests := []struct {
		path string
		want any
	}{
		{"address.city", "Paris"},
		{"tags[1]", "b"},
		{"meta(color)", "red"},
		{"meta(size)", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := nav.Resolve(b, tt.path, beanpath.Fail)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = nav.Resolve(b, "none.x", beanpath.Fail)
	assert.ErrorIs(t, err, beanpath.NullIntermediate)

	err = nav.Assign(b, "address.city", "Rome", beanpath.Fail)
	assert.ErrorIs(t, err, beanpath.NotWritable)
}

func TestParseJSONRejects(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, beanpath.TypeConversion)
}

func TestJSONBeanMarshal(t *testing.T) {
	b, err := ParseJSON([]byte(`{"a": {"b": [1, 2]}}`))
	require.NoError(t, err)

	inner, err := b.Get("a")
	require.NoError(t, err)
	out, err := json.Marshal(map[string]any{"inner": inner})
	require.NoError(t, err)
	assert.JSONEq(t, `{"inner": {"b": [1, 2]}}`, string(out))
}
