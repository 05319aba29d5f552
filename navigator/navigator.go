// Package navigator resolves and assigns property paths over heterogeneous
// object graphs: reflective Go values, Go maps and beanpath.Bean
// implementations, mixed freely along one path.
package navigator

import (
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/convert"
	"github.com/effectus/beanpath/introspect"
	"github.com/effectus/beanpath/path"
)

// Navigator walks property paths. It holds no per-call state and is safe
// for concurrent use; the introspection and path caches it shares are.
type Navigator struct {
	cache     *introspect.Cache
	paths     *path.Cache
	converter *convert.Registry
	logger    *zap.Logger
}

// Option configures a Navigator
type Option func(*Navigator)

// WithLogger sets the logger used for ignored null intermediates
func WithLogger(logger *zap.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithConverter sets the converter registry used on assignment
func WithConverter(r *convert.Registry) Option {
	return func(n *Navigator) {
		n.converter = r
	}
}

// DefaultPathCacheSize bounds the parsed-path cache a Navigator creates
// for itself
const DefaultPathCacheSize = 4096

// WithPathCache shares a parsed-path cache between navigators
func WithPathCache(c *path.Cache) Option {
	return func(n *Navigator) {
		n.paths = c
	}
}

// New creates a Navigator over cache. A nil cache gets a private one.
func New(cache *introspect.Cache, opts ...Option) *Navigator {
	if cache == nil {
		cache = introspect.NewCache()
	}
	n := &Navigator{
		cache:     cache,
		paths:     path.NewBoundedCache(DefaultPathCacheSize),
		converter: convert.Default(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNavigator = New(introspect.NewCache())

// Default returns a shared navigator with default settings
func Default() *Navigator {
	return defaultNavigator
}

// Logger returns the logger warnings are written to
func (n *Navigator) Logger() *zap.Logger {
	return n.logger
}

// Cache returns the introspection cache
func (n *Navigator) Cache() *introspect.Cache {
	return n.cache
}

// Resolve parses pathStr and reads the value it names on root
func (n *Navigator) Resolve(root any, pathStr string, policy beanpath.NullPolicy) (any, error) {
	p, err := n.paths.Get(pathStr)
	if err != nil {
		return nil, err
	}
	return n.ResolvePath(root, p, policy)
}

// ResolvePath reads the value p names on root. An absent map key yields
// nil without error. A nil value before the last segment is handled per
// policy.
func (n *Navigator) ResolvePath(root any, p path.Path, policy beanpath.NullPolicy) (any, error) {
	if p.IsEmpty() {
		return nil, beanpath.Errorf(beanpath.PathSyntax, "", "empty path")
	}

	cur := reflect.ValueOf(root)
	for i, seg := range p.Segments {
		if isNil(cur) {
			return nil, n.nullIntermediate(p, i, policy, "resolve")
		}
		next, err := n.segmentGet(cur, seg)
		if err != nil {
			if beanpath.KindOf(err) == beanpath.NullIntermediate && policy == beanpath.Ignore {
				n.warnNull(p, i, "resolve")
				return nil, nil
			}
			return nil, beanpath.WithPath(err, p.String())
		}
		cur = next
	}
	return interfaceOf(cur), nil
}

// Assign parses pathStr and writes value to the property it names on root.
// root must be a pointer (or a reference-like value such as a map or Bean)
// for field writes to be visible to the caller.
func (n *Navigator) Assign(root any, pathStr string, value any, policy beanpath.NullPolicy) error {
	p, err := n.paths.Get(pathStr)
	if err != nil {
		return err
	}
	return n.AssignPath(root, p, value, policy)
}

// AssignPath writes value to the property p names on root, converting it to
// the declared type.
func (n *Navigator) AssignPath(root any, p path.Path, value any, policy beanpath.NullPolicy) error {
	if p.IsEmpty() {
		return beanpath.Errorf(beanpath.PathSyntax, "", "empty path")
	}

	last := p.Len() - 1
	cur := reflect.ValueOf(root)
	for i := 0; i < last; i++ {
		if isNil(cur) {
			return n.nullIntermediate(p, i, policy, "assign")
		}
		next, err := n.segmentGet(cur, p.Segments[i])
		if err != nil {
			if beanpath.KindOf(err) == beanpath.NullIntermediate && policy == beanpath.Ignore {
				n.warnNull(p, i, "assign")
				return nil
			}
			return beanpath.WithPath(err, p.String())
		}
		cur = next
	}
	if isNil(cur) {
		return n.nullIntermediate(p, last, policy, "assign")
	}

	if err := n.segmentSet(cur, p.Segments[last], value); err != nil {
		if beanpath.KindOf(err) == beanpath.NullIntermediate && policy == beanpath.Ignore {
			n.warnNull(p, last, "assign")
			return nil
		}
		return beanpath.WithPath(err, p.String())
	}
	return nil
}

// IsReadable reports whether the property pathStr names can be read on
// root. Intermediate segments are resolved; the last one is only checked.
func (n *Navigator) IsReadable(root any, pathStr string) bool {
	readable, _ := n.capability(root, pathStr)
	return readable
}

// IsWritable reports whether the property pathStr names can be assigned on root
func (n *Navigator) IsWritable(root any, pathStr string) bool {
	_, writable := n.capability(root, pathStr)
	return writable
}

func (n *Navigator) capability(root any, pathStr string) (readable, writable bool) {
	p, err := n.paths.Get(pathStr)
	if err != nil {
		return false, false
	}
	holder := reflect.ValueOf(root)
	if parent, ok := p.Parent(); ok {
		rv, err := n.resolveValue(root, parent)
		if err != nil {
			return false, false
		}
		holder = rv
	}
	if isNil(holder) {
		return false, false
	}

	last := p.Last()
	readable, writable = n.propertyCapability(holder, last.Name)
	if last.Kind == path.NameSegment || !readable {
		return readable, writable
	}
	if _, err := n.segmentGet(holder, last); err != nil {
		return false, false
	}
	return true, writable
}

// resolveValue walks p keeping the reflect.Value, so struct values reached
// through pointers stay addressable.
func (n *Navigator) resolveValue(root any, p path.Path) (reflect.Value, error) {
	cur := reflect.ValueOf(root)
	for _, seg := range p.Segments {
		if isNil(cur) {
			return reflect.Value{}, beanpath.Errorf(beanpath.NullIntermediate, seg.Name, "value is nil")
		}
		next, err := n.segmentGet(cur, seg)
		if err != nil {
			return reflect.Value{}, err
		}
		cur = next
	}
	return cur, nil
}

// Describe lists the properties of value: a Bean's own description, the
// sorted keys of a string-keyed map, or the introspected properties of any
// other type.
func (n *Navigator) Describe(value any) ([]beanpath.Property, error) {
	rv := reflect.ValueOf(value)
	if isNil(rv) {
		return nil, beanpath.Errorf(beanpath.NullIntermediate, "", "cannot describe nil")
	}
	acc, err := n.selectAccessor(rv)
	if err != nil {
		return nil, err
	}
	switch acc.kind {
	case dynamicAccess:
		return acc.bean.Describe(), nil
	case mapAccess:
		props := make([]beanpath.Property, 0, acc.value.Len())
		iter := acc.value.MapRange()
		for iter.Next() {
			k, err := n.converter.ConvertValue(iter.Key().Interface(), reflect.TypeOf(""))
			if err != nil {
				return nil, err
			}
			var typ reflect.Type
			if v := unwrapInterface(iter.Value()); v.IsValid() {
				typ = v.Type()
			}
			props = append(props, beanpath.Property{Name: k.(string), Type: typ})
		}
		sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
		return props, nil
	default:
		return acc.info.Properties(), nil
	}
}

// segmentGet applies one segment to holder
func (n *Navigator) segmentGet(holder reflect.Value, seg path.Segment) (reflect.Value, error) {
	if bean, ok := asBean(holder); ok {
		switch seg.Kind {
		case path.IndexSegment:
			if ib, ok := bean.(beanpath.IndexedBean); ok {
				v, err := ib.GetIndexed(seg.Name, seg.Index)
				return reflect.ValueOf(v), err
			}
		case path.KeySegment:
			if mb, ok := bean.(beanpath.MappedBean); ok {
				v, err := mb.GetMapped(seg.Name, seg.Key)
				return reflect.ValueOf(v), err
			}
		}
	}

	prop, err := n.getProperty(holder, seg.Name)
	if err != nil {
		return reflect.Value{}, err
	}
	switch seg.Kind {
	case path.IndexSegment:
		return indexGet(prop, seg.Name, seg.Index)
	case path.KeySegment:
		return n.keyGet(prop, seg.Name, seg.Key)
	default:
		return prop, nil
	}
}

// segmentSet applies the last segment of an assignment to holder
func (n *Navigator) segmentSet(holder reflect.Value, seg path.Segment, value any) error {
	if bean, ok := asBean(holder); ok {
		switch seg.Kind {
		case path.IndexSegment:
			if ib, ok := bean.(beanpath.IndexedBean); ok {
				return ib.SetIndexed(seg.Name, seg.Index, value)
			}
		case path.KeySegment:
			if mb, ok := bean.(beanpath.MappedBean); ok {
				return mb.SetMapped(seg.Name, seg.Key, value)
			}
		}
	}

	switch seg.Kind {
	case path.IndexSegment:
		prop, err := n.getProperty(holder, seg.Name)
		if err != nil {
			return err
		}
		return n.indexSet(prop, seg.Name, seg.Index, value)
	case path.KeySegment:
		prop, err := n.getProperty(holder, seg.Name)
		if err != nil {
			return err
		}
		return n.keySet(prop, seg.Name, seg.Key, value)
	default:
		return n.setProperty(holder, seg.Name, value)
	}
}

// nullIntermediate handles a nil value met before segment i
func (n *Navigator) nullIntermediate(p path.Path, i int, policy beanpath.NullPolicy, op string) error {
	if policy == beanpath.Ignore {
		n.warnNull(p, i, op)
		return nil
	}
	after := "root"
	if i > 0 {
		after = p.Segments[i-1].String()
	}
	return &beanpath.Error{
		Kind:     beanpath.NullIntermediate,
		Path:     p.String(),
		Property: p.Segments[i].Name,
		Message:  "value of " + after + " is nil",
	}
}

func (n *Navigator) warnNull(p path.Path, i int, op string) {
	n.logger.Warn("null intermediate value ignored",
		zap.String("path", p.String()),
		zap.String("segment", p.Segments[i].String()),
		zap.String("op", op))
}

func interfaceOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
