package introspect

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/effectus/beanpath"
)

// Cache holds per-type property metadata. Entries are built lazily on the
// first Describe of a type and published atomically; concurrent first
// lookups may build the same entry more than once and the last store wins.
// Reads of a published entry take no lock.
type Cache struct {
	entries      sync.Map // map[reflect.Type]*TypeInfo
	contributors []Contributor
	logger       *zap.Logger
	metrics      *metrics
}

// Option configures a Cache
type Option func(*cacheOptions)

type cacheOptions struct {
	contributors []Contributor
	suppressed   []string
	logger       *zap.Logger
	registerer   prometheus.Registerer
}

// WithContributors replaces the default pipeline
func WithContributors(contributors ...Contributor) Option {
	return func(o *cacheOptions) {
		o.contributors = contributors
	}
}

// WithSuppressed removes the named properties after the other contributors ran
func WithSuppressed(names ...string) Option {
	return func(o *cacheOptions) {
		o.suppressed = append(o.suppressed, names...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *cacheOptions) {
		o.logger = logger
	}
}

// WithRegisterer registers cache metrics with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *cacheOptions) {
		o.registerer = reg
	}
}

// NewCache creates an empty cache
func NewCache(opts ...Option) *Cache {
	o := cacheOptions{
		contributors: []Contributor{Conventions{}},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	contributors := append([]Contributor(nil), o.contributors...)
	if len(o.suppressed) > 0 {
		contributors = append(contributors, Suppress(o.suppressed...))
	}

	c := &Cache{
		contributors: contributors,
		logger:       o.logger,
	}
	if o.registerer != nil {
		m, err := newMetrics(o.registerer)
		if err != nil {
			c.logger.Warn("introspection metrics disabled", zap.Error(err))
		} else {
			c.metrics = m
		}
	}
	return c
}

// Describe returns the property metadata of t. Pointer types describe their
// element type.
func (c *Cache) Describe(t reflect.Type) (*TypeInfo, error) {
	if t == nil {
		return nil, beanpath.Errorf(beanpath.AccessFailure, "", "cannot introspect nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if cached, ok := c.entries.Load(t); ok {
		c.metrics.hit()
		return cached.(*TypeInfo), nil
	}
	c.metrics.miss()

	info, err := c.build(t)
	if err != nil {
		return nil, err
	}
	c.entries.Store(t, info)
	return info, nil
}

// DescribeValue is Describe for the dynamic type of v
func (c *Cache) DescribeValue(v any) (*TypeInfo, error) {
	return c.Describe(reflect.TypeOf(v))
}

func (c *Cache) build(t reflect.Type) (*TypeInfo, error) {
	if t.Kind() == reflect.Interface {
		return nil, beanpath.Errorf(beanpath.AccessFailure, "", "cannot introspect interface type %s", t)
	}

	var descriptors []Descriptor
	for _, contributor := range c.contributors {
		next, err := contributor.Contribute(t, descriptors)
		if err != nil {
			return nil, beanpath.Wrap(beanpath.AccessFailure, "", err, fmt.Sprintf("introspecting %s", t))
		}
		descriptors = next
	}

	descriptors, dropped := addressable(descriptors)
	if len(dropped) > 0 {
		c.logger.Debug("dropping properties not addressable by path",
			zap.Stringer("type", t),
			zap.Strings("properties", dropped))
	}

	c.metrics.build()
	return newTypeInfo(t, descriptors), nil
}

// Reset drops every entry. Intended for test isolation.
func (c *Cache) Reset() {
	c.entries.Clear()
}

// Len returns the number of cached types
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
