// Package callback exposes property paths through small callback values
// used by generic collection helpers: comparators for sorting, predicates
// for filtering, mutators for bulk updates and projectors for mapping.
//
// Every callback is built around one parsed path and carries a null
// intermediate policy. Under beanpath.Ignore a nil met partway down the path
// is logged as a warning and produces the callback's absent result: a
// predicate evaluates to false, a projector yields nil, a mutator does
// nothing.
package callback

import (
	"errors"

	"go.uber.org/zap"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/navigator"
	"github.com/effectus/beanpath/path"
)

// Option configures a callback
type Option func(*config)

type config struct {
	policy   beanpath.NullPolicy
	nav      *navigator.Navigator
	ordering Ordering
	reverse  bool
}

// WithPolicy sets the null intermediate policy. The default is Fail.
func WithPolicy(policy beanpath.NullPolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithNavigator sets the navigator paths are resolved with. The default is
// navigator.Default().
func WithNavigator(nav *navigator.Navigator) Option {
	return func(c *config) {
		c.nav = nav
	}
}

// WithOrdering sets the comparison a Comparator applies to resolved values
func WithOrdering(fn Ordering) Option {
	return func(c *config) {
		c.ordering = fn
	}
}

// Reversed inverts a Comparator's order
func Reversed() Option {
	return func(c *config) {
		c.reverse = true
	}
}

func newConfig(opts []Option) config {
	c := config{policy: beanpath.Fail}
	for _, opt := range opts {
		opt(&c)
	}
	if c.nav == nil {
		c.nav = navigator.Default()
	}
	return c
}

// parse parses a callback path. An empty string is allowed only when
// optional is set and yields the empty path.
func parse(pathStr string, optional bool) (path.Path, error) {
	if pathStr == "" && optional {
		return path.Path{}, nil
	}
	return path.Parse(pathStr)
}

// ignored reports whether err is a null intermediate the policy swallows,
// logging it when so
func (c config) ignored(err error, p path.Path, op string) bool {
	if c.policy != beanpath.Ignore || !errors.Is(err, beanpath.NullIntermediate) {
		return false
	}
	c.nav.Logger().Warn("null intermediate value ignored",
		zap.String("path", p.String()),
		zap.String("op", op),
		zap.Error(err))
	return true
}
