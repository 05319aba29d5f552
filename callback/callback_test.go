package callback

import (
	"cmp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/navigator"
)

type employee struct {
	Name    string
	Salary  int
	Manager *employee
	Tags    map[string]string
}

func observed() (*navigator.Navigator, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return navigator.New(nil, navigator.WithLogger(zap.New(core))), logs
}

func TestEqualsPredicate(t *testing.T) {
	p, err := EqualsPredicate("personId", "456-12-1234")
	require.NoError(t, err)

	tests := []struct {
		name   string
		target map[string]any
		want   bool
	}{
		{"same id", map[string]any{"personId": "456-12-1234"}, true},
		{"other id", map[string]any{"personId": "111-22-3333"}, false},
		{"no id", map[string]any{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Evaluate(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	num, err := EqualsPredicate("salary", int64(100))
	require.NoError(t, err)
	got, err := num.Evaluate(&employee{Salary: 100})
	require.NoError(t, err)
	assert.True(t, got, "numbers compare by value across types")
}

func TestValuePredicateFilter(t *testing.T) {
	staff := []*employee{
		{Name: "ana", Salary: 90},
		{Name: "bo", Salary: 120},
		{Name: "cy", Salary: 150},
	}
	p, err := ValuePredicate("salary", func(v any) bool { return v.(int) > 100 })
	require.NoError(t, err)

	got, err := Filter(staff, p)
	require.NoError(t, err)
	assert.Equal(t, []*employee{staff[1], staff[2]}, got)

	bad, err := EqualsPredicate("wage", 1)
	require.NoError(t, err)
	_, err = Filter(staff, bad)
	assert.ErrorIs(t, err, beanpath.NoSuchProperty)
}

func TestPredicateNullPolicy(t *testing.T) {
	nav, logs := observed()
	target := &employee{Name: "ana"}

	strict, err := EqualsPredicate("manager.name", nil, WithNavigator(nav))
	require.NoError(t, err)
	_, err = strict.Evaluate(target)
	assert.ErrorIs(t, err, beanpath.NullIntermediate)
	assert.Equal(t, 0, logs.Len())

	lenient, err := EqualsPredicate("manager.name", nil, WithNavigator(nav), WithPolicy(beanpath.Ignore))
	require.NoError(t, err)
	got, err := lenient.Evaluate(target)
	require.NoError(t, err)
	assert.False(t, got, "an ignored null never matches, even a nil expectation")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "null intermediate value ignored", entry.Message)
	assert.Equal(t, "manager.name", entry.ContextMap()["path"])
	assert.Equal(t, "evaluate", entry.ContextMap()["op"])
}

func TestProjector(t *testing.T) {
	nav, logs := observed()
	boss := &employee{Name: "dee"}
	staff := []*employee{{Name: "ana", Manager: boss}, {Name: "bo"}}

	strict, err := NewProjector("manager.name", WithNavigator(nav))
	require.NoError(t, err)
	got, err := strict.Project(staff[0])
	require.NoError(t, err)
	assert.Equal(t, "dee", got)
	_, err = strict.Project(staff[1])
	assert.ErrorIs(t, err, beanpath.NullIntermediate)

	lenient, err := NewProjector("manager.name", WithNavigator(nav), WithPolicy(beanpath.Ignore))
	require.NoError(t, err)
	got, err = lenient.Project(staff[1])
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, logs.Len())

	all, err := Collect(staff, lenient)
	require.NoError(t, err)
	assert.Equal(t, []any{"dee", nil}, all)
}

func TestMutator(t *testing.T) {
	nav, logs := observed()
	staff := []*employee{{Name: "ana"}, {Name: "bo", Manager: &employee{}}}

	raise, err := NewMutator("salary", "200", WithNavigator(nav))
	require.NoError(t, err)
	require.NoError(t, ForEach(staff, raise))
	require.NoError(t, raise.Apply(staff[0]))
	assert.Equal(t, 200, staff[0].Salary)
	assert.Equal(t, 200, staff[1].Salary)

	tag, err := NewMutator("tags(level)", "senior")
	require.NoError(t, err)
	require.NoError(t, tag.Apply(staff[0]))
	assert.Equal(t, map[string]string{"level": "senior"}, staff[0].Tags)

	rename, err := NewMutator("manager.name", "dee", WithNavigator(nav))
	require.NoError(t, err)
	assert.ErrorIs(t, ForEach(staff, rename), beanpath.NullIntermediate)

	rename, err = NewMutator("manager.name", "dee", WithNavigator(nav), WithPolicy(beanpath.Ignore))
	require.NoError(t, err)
	require.NoError(t, ForEach(staff, rename))
	assert.Nil(t, staff[0].Manager)
	assert.Equal(t, "dee", staff[1].Manager.Name)
	assert.Equal(t, 1, logs.Len())

	bad, err := NewMutator("salary", "lots")
	require.NoError(t, err)
	assert.ErrorIs(t, bad.Apply(staff[0]), beanpath.TypeConversion)
}

func TestConstructionErrors(t *testing.T) {
	_, err := EqualsPredicate("", 1)
	assert.ErrorIs(t, err, beanpath.PathSyntax)
	_, err = ValuePredicate("a[", func(any) bool { return true })
	assert.ErrorIs(t, err, beanpath.PathSyntax)
	_, err = NewMutator("a..b", 1)
	assert.ErrorIs(t, err, beanpath.PathSyntax)
	_, err = NewProjector("(key)")
	assert.ErrorIs(t, err, beanpath.PathSyntax)
	_, err = NewComparator("a]")
	assert.ErrorIs(t, err, beanpath.PathSyntax)

	c, err := NewComparator("")
	require.NoError(t, err)
	assert.True(t, c.Path().IsEmpty())
}

func names(staff []*employee) []string {
	out := make([]string, len(staff))
	for i, e := range staff {
		out[i] = e.Name
	}
	return out
}

func TestSort(t *testing.T) {
	staff := []*employee{
		{Name: "cy", Salary: 150},
		{Name: "ana", Salary: 90},
		{Name: "bo", Salary: 150},
	}

	bySalary := MustComparator("salary")
	require.NoError(t, Sort(staff, bySalary))
	assert.Equal(t, []string{"ana", "cy", "bo"}, names(staff), "equal salaries keep their order")

	require.NoError(t, Sort(staff, bySalary.Reverse()))
	assert.Equal(t, []string{"cy", "bo", "ana"}, names(staff))

	byLen := MustComparator("name", WithOrdering(func(a, b any) (int, error) {
		return cmp.Compare(len(a.(string)), len(b.(string))), nil
	}))
	require.NoError(t, Sort(staff, byLen))
	assert.Equal(t, []string{"cy", "bo", "ana"}, names(staff))

	values := []any{3, 1.5, uint8(2)}
	require.NoError(t, Sort(values, MustComparator("")))
	assert.Equal(t, []any{1.5, uint8(2), 3}, values)
}

func TestSortNullPolicy(t *testing.T) {
	boss := &employee{Salary: 10}
	staff := []*employee{{Name: "ana", Manager: boss}, {Name: "bo"}}

	err := Sort(staff, MustComparator("manager.salary"))
	assert.ErrorIs(t, err, beanpath.NullIntermediate)

	require.NoError(t, Sort(staff, MustComparator("manager.salary", WithPolicy(beanpath.Ignore))))
	assert.Equal(t, []string{"bo", "ana"}, names(staff), "absent values sort first")
}

func TestSortMixedTypes(t *testing.T) {
	values := []any{"a", 1}
	err := Sort(values, MustComparator(""))
	assert.ErrorIs(t, err, beanpath.NotSupported)
}

func TestComparatorEqual(t *testing.T) {
	byLen := func(a, b any) (int, error) { return 0, nil }

	a := MustComparator("salary")
	assert.True(t, a.Equal(MustComparator("salary")))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(nil))
	assert.False(t, a.Equal(MustComparator("name")))
	assert.False(t, a.Equal(a.Reverse()))
	assert.True(t, a.Reverse().Reverse().Equal(a))
	assert.False(t, a.Equal(MustComparator("salary", WithPolicy(beanpath.Ignore))))
	assert.False(t, a.Equal(MustComparator("salary", WithOrdering(byLen))))
	assert.True(t, MustComparator("salary", WithOrdering(byLen)).Equal(MustComparator("salary", WithOrdering(byLen))))
}

type version struct{ major, minor int }

func (v version) Compare(o version) int {
	if c := cmp.Compare(v.major, o.major); c != 0 {
		return c
	}
	return cmp.Compare(v.minor, o.minor)
}

func TestNatural(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"nils", nil, nil, 0},
		{"nil first", nil, 1, -1},
		{"nil last", "a", nil, 1},
		{"ints", 1, 2, -1},
		{"int and int64", 2, int64(2), 0},
		{"negative and unsigned", -1, uint(0), -1},
		{"unsigned and negative", uint(0), -1, 1},
		{"int and float", 2, 1.5, 1},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"times", day, day.Add(time.Hour), -1},
		{"decimals", decimal.RequireFromString("1.10"), decimal.RequireFromString("1.1"), 0},
		{"compare method", version{1, 2}, version{1, 10}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Natural(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Natural(struct{}{}, struct{}{})
	assert.ErrorIs(t, err, beanpath.NotSupported)
}
