package introspect

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string
	Zip  string `bean:"postcode"`
}

type person struct {
	Name       string
	Address    *address
	Items      []string
	Attributes map[string]string
	Secret     string `bean:"-"`
	Weird      string `bean:"a.b"`
	age        int
	nickname   string
}

func (p *person) GetAge() int             { return p.age }
func (p *person) SetAge(age int)          { p.age = age }
func (p person) IsAdult() bool            { return p.age >= 18 }
func (p *person) Nickname() string        { return p.nickname }
func (p *person) SetNickname(n string)    { p.nickname = n }
func (p *person) Label() string           { return "label" }
func (p *person) GetName() string         { return "Dr. " + p.Name }
func (p *person) Validate() (bool, error) { return true, nil }

var typeComparer = cmp.Comparer(func(a, b reflect.Type) bool { return a == b })

func TestDescribeConventions(t *testing.T) {
	c := NewCache()

	info, err := c.Describe(reflect.TypeOf(person{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "address", "items", "attributes", "age", "adult", "nickname"}, info.Names())

	want := []Descriptor{
		{Name: "name", Type: reflect.TypeOf(""), Readable: true, Writable: true, FieldIndex: []int{0}, Getter: "GetName"},
		{Name: "address", Type: reflect.TypeOf(&address{}), Readable: true, Writable: true, FieldIndex: []int{1}},
		{Name: "items", Type: reflect.TypeOf([]string{}), Readable: true, Writable: true, Indexed: true, FieldIndex: []int{2}},
		{Name: "attributes", Type: reflect.TypeOf(map[string]string{}), Readable: true, Writable: true, Mapped: true, FieldIndex: []int{3}},
		{Name: "age", Type: reflect.TypeOf(0), Readable: true, Writable: true, Getter: "GetAge", Setter: "SetAge"},
		{Name: "adult", Type: reflect.TypeOf(true), Readable: true, Getter: "IsAdult"},
		{Name: "nickname", Type: reflect.TypeOf(""), Readable: true, Writable: true, Getter: "Nickname", Setter: "SetNickname"},
	}
	if diff := cmp.Diff(want, info.Descriptors(), typeComparer, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("descriptors mismatch (-want +got):\n%s", diff)
	}

	_, ok := info.Lookup("label")
	assert.False(t, ok, "bare getter without setter is not a property")
	_, ok = info.Lookup("secret")
	assert.False(t, ok)
}

func TestDescribeNormalisesPointers(t *testing.T) {
	c := NewCache()

	byValue, err := c.Describe(reflect.TypeOf(address{}))
	require.NoError(t, err)
	byPointer, err := c.Describe(reflect.TypeOf(&address{}))
	require.NoError(t, err)

	assert.Same(t, byValue, byPointer)
	assert.Equal(t, []string{"city", "postcode"}, byValue.Names())
	assert.Equal(t, 1, c.Len())
}

func TestDescribeRejectsInterfaces(t *testing.T) {
	c := NewCache()
	_, err := c.Describe(reflect.TypeOf((*error)(nil)).Elem())
	assert.Error(t, err)

	_, err = c.Describe(nil)
	assert.Error(t, err)
}

func TestSuppression(t *testing.T) {
	c := NewCache(WithSuppressed("address", "age"))

	info, err := c.Describe(reflect.TypeOf(person{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "items", "attributes", "adult", "nickname"}, info.Names())

	// Suppressing nothing changes nothing
	full, err := NewCache().Describe(reflect.TypeOf(person{}))
	require.NoError(t, err)
	unchanged, err := NewCache(WithSuppressed("missing")).Describe(reflect.TypeOf(person{}))
	require.NoError(t, err)
	assert.Equal(t, full.Names(), unchanged.Names())
}

func TestPipelineOrder(t *testing.T) {
	extra := ContributorFunc(func(t reflect.Type, in []Descriptor) ([]Descriptor, error) {
		return append(in, Descriptor{Name: "computed", Type: reflect.TypeOf(0), Readable: true}), nil
	})

	c := NewCache(
		WithContributors(Conventions{}, extra, Suppress("items")),
		WithSuppressed("computed"),
	)

	info, err := c.Describe(reflect.TypeOf(address{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "postcode"}, info.Names())

	c2 := NewCache(WithContributors(Conventions{}, extra))
	info, err = c2.Describe(reflect.TypeOf(address{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "postcode", "computed"}, info.Names())
}

func TestContributorError(t *testing.T) {
	boom := ContributorFunc(func(reflect.Type, []Descriptor) ([]Descriptor, error) {
		return nil, errors.New("boom")
	})
	c := NewCache(WithContributors(boom))

	_, err := c.Describe(reflect.TypeOf(address{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentDescribe(t *testing.T) {
	c := NewCache()
	typ := reflect.TypeOf(person{})

	const workers = 32
	results := make([][]string, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			info, err := c.Describe(typ)
			if assert.NoError(t, err) {
				results[i] = info.Names()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.ElementsMatch(t, results[0], results[i])
	}
}

func TestReset(t *testing.T) {
	c := NewCache()
	_, err := c.Describe(reflect.TypeOf(person{}))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCache(WithRegisterer(reg))
	require.NotNil(t, c.metrics)

	for i := 0; i < 3; i++ {
		_, err := c.Describe(reflect.TypeOf(address{}))
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.builds))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.misses))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.hits))

	// A second cache on the same registry shares the counters
	c2 := NewCache(WithRegisterer(reg))
	require.NotNil(t, c2.metrics)
	_, err := c2.Describe(reflect.TypeOf(address{}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.builds))
}

func TestPropertyName(t *testing.T) {
	tests := map[string]string{
		"City":  "city",
		"URL":   "URL",
		"ID":    "ID",
		"X":     "x",
		"Name2": "name2",
		"":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, PropertyName(in), in)
	}
}
