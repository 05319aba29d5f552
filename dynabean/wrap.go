package dynabean

import (
	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/navigator"
	"github.com/effectus/beanpath/path"
)

// WrapBean presents an ordinary Go value as a Bean. Reads and writes go
// through the navigator, so getters, setters and conversion behave as
// they do for paths. Wrap a pointer for writes to reach the value.
type WrapBean struct {
	nav    *navigator.Navigator
	target any
	props  []beanpath.Property
}

// Wrap introspects target once and returns a bean over it
func Wrap(nav *navigator.Navigator, target any) (*WrapBean, error) {
	if nav == nil {
		nav = navigator.Default()
	}
	props, err := nav.Describe(target)
	if err != nil {
		return nil, err
	}
	return &WrapBean{nav: nav, target: target, props: props}, nil
}

// Target returns the wrapped value
func (b *WrapBean) Target() any {
	return b.target
}

// Get reads a property of the wrapped value
func (b *WrapBean) Get(name string) (any, error) {
	return b.nav.ResolvePath(b.target, single(name), beanpath.Fail)
}

// Set writes a property of the wrapped value
func (b *WrapBean) Set(name string, value any) error {
	return b.nav.AssignPath(b.target, single(name), value, beanpath.Fail)
}

// Has reports whether the wrapped value has the property
func (b *WrapBean) Has(name string) bool {
	_, ok := beanpath.DeclaredType(b, name)
	return ok
}

// Describe returns the properties found when the value was wrapped
func (b *WrapBean) Describe() []beanpath.Property {
	return b.props
}

func single(name string) path.Path {
	return path.Path{Segments: []path.Segment{path.Name(name)}}
}
