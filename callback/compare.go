package callback

import (
	"cmp"
	"reflect"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/path"
)

// Ordering is a three-way comparison of two resolved values
type Ordering func(a, b any) (int, error)

// Comparator orders targets by the value at a path, or by the targets
// themselves when no path is configured.
type Comparator struct {
	path path.Path
	cfg  config
}

// NewComparator builds a comparator over pathStr, which may be empty.
// Without WithOrdering values are compared by Natural.
func NewComparator(pathStr string, opts ...Option) (*Comparator, error) {
	p, err := parse(pathStr, true)
	if err != nil {
		return nil, err
	}
	return &Comparator{path: p, cfg: newConfig(opts)}, nil
}

// MustComparator is NewComparator panicking on error
func MustComparator(pathStr string, opts ...Option) *Comparator {
	c, err := NewComparator(pathStr, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Path returns the configured path
func (c *Comparator) Path() path.Path {
	return c.path
}

// Reverse returns a comparator with the opposite order
func (c *Comparator) Reverse() *Comparator {
	out := *c
	out.cfg.reverse = !c.cfg.reverse
	return &out
}

// Compare resolves both targets and compares the results
func (c *Comparator) Compare(a, b any) (int, error) {
	va, err := c.value(a)
	if err != nil {
		return 0, err
	}
	vb, err := c.value(b)
	if err != nil {
		return 0, err
	}

	order := c.cfg.ordering
	if order == nil {
		order = Natural
	}
	n, err := order(va, vb)
	if err != nil {
		return 0, err
	}
	if c.cfg.reverse {
		n = -n
	}
	return n, nil
}

func (c *Comparator) value(target any) (any, error) {
	if c.path.IsEmpty() {
		return target, nil
	}
	v, err := c.cfg.nav.ResolvePath(target, c.path, beanpath.Fail)
	if err != nil {
		if c.cfg.ignored(err, c.path, "compare") {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Equal reports whether both comparators order the same way: same path,
// same policy, same direction and the same ordering function.
func (c *Comparator) Equal(other *Comparator) bool {
	if c == other {
		return true
	}
	if other == nil {
		return false
	}
	return c.path.Equal(other.path) &&
		c.cfg.policy == other.cfg.policy &&
		c.cfg.reverse == other.cfg.reverse &&
		sameFunc(c.cfg.ordering, other.cfg.ordering)
}

func sameFunc(a, b Ordering) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// Sort stably sorts items with c. The first comparison error stops
// further comparisons and is returned; items are then in an unspecified
// order.
func Sort[T any](items []T, c *Comparator) error {
	var firstErr error
	sort.SliceStable(items, func(i, j int) bool {
		if firstErr != nil {
			return false
		}
		n, err := c.Compare(items[i], items[j])
		if err != nil {
			firstErr = err
			return false
		}
		return n < 0
	})
	return firstErr
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	intType     = reflect.TypeOf(0)
)

// Natural is the default ordering. nil sorts before everything. Numbers
// of any kind compare by value, strings lexically and false before true.
// time.Time and decimal.Decimal compare by value, as does any type with a
// Compare(T) int method. Other combinations are NotSupported.
func Natural(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if n, ok := compareNumbers(va, vb); ok {
		return n, nil
	}
	if va.Type() == vb.Type() {
		switch {
		case va.Type() == timeType:
			return a.(time.Time).Compare(b.(time.Time)), nil
		case va.Type() == decimalType:
			return a.(decimal.Decimal).Cmp(b.(decimal.Decimal)), nil
		case va.Kind() == reflect.String:
			return cmp.Compare(va.String(), vb.String()), nil
		case va.Kind() == reflect.Bool:
			return compareBools(va.Bool(), vb.Bool()), nil
		}
		if n, ok := compareMethod(va, vb); ok {
			return n, nil
		}
	}
	return 0, beanpath.Errorf(beanpath.NotSupported, "", "cannot order %T against %T", a, b)
}

func compareNumbers(a, b reflect.Value) (int, bool) {
	ka, kb := numberKind(a.Kind()), numberKind(b.Kind())
	if ka == 0 || kb == 0 {
		return 0, false
	}
	switch {
	case ka == signed && kb == signed:
		return cmp.Compare(a.Int(), b.Int()), true
	case ka == unsigned && kb == unsigned:
		return cmp.Compare(a.Uint(), b.Uint()), true
	case ka == signed && kb == unsigned:
		if a.Int() < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(a.Int()), b.Uint()), true
	case ka == unsigned && kb == signed:
		if b.Int() < 0 {
			return 1, true
		}
		return cmp.Compare(a.Uint(), uint64(b.Int())), true
	default:
		return cmp.Compare(asFloat(a), asFloat(b)), true
	}
}

const (
	signed = iota + 1
	unsigned
	float
)

func numberKind(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signed
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsigned
	case reflect.Float32, reflect.Float64:
		return float
	}
	return 0
}

func asFloat(v reflect.Value) float64 {
	switch numberKind(v.Kind()) {
	case signed:
		return float64(v.Int())
	case unsigned:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareMethod calls a.Compare(b) when the type has such a method
func compareMethod(a, b reflect.Value) (int, bool) {
	m := a.MethodByName("Compare")
	if !m.IsValid() {
		return 0, false
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.NumOut() != 1 || !b.Type().AssignableTo(mt.In(0)) || mt.Out(0) != intType {
		return 0, false
	}
	return int(m.Call([]reflect.Value{b})[0].Int()), true
}
