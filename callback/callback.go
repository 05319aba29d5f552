package callback

import (
	"reflect"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/path"
)

// Predicate tests the value at a path
type Predicate struct {
	path  path.Path
	match func(any) (bool, error)
	cfg   config
}

// EqualsPredicate matches targets whose value at pathStr equals expected.
// Values of different numeric types are equal when they hold the same
// number.
func EqualsPredicate(pathStr string, expected any, opts ...Option) (*Predicate, error) {
	p, err := parse(pathStr, false)
	if err != nil {
		return nil, err
	}
	match := func(v any) (bool, error) {
		return valuesEqual(v, expected), nil
	}
	return &Predicate{path: p, match: match, cfg: newConfig(opts)}, nil
}

// ValuePredicate matches targets for which fn accepts the value at pathStr
func ValuePredicate(pathStr string, fn func(any) bool, opts ...Option) (*Predicate, error) {
	p, err := parse(pathStr, false)
	if err != nil {
		return nil, err
	}
	match := func(v any) (bool, error) {
		return fn(v), nil
	}
	return &Predicate{path: p, match: match, cfg: newConfig(opts)}, nil
}

// Evaluate resolves the path on target and applies the test
func (p *Predicate) Evaluate(target any) (bool, error) {
	v, err := p.cfg.nav.ResolvePath(target, p.path, beanpath.Fail)
	if err != nil {
		if p.cfg.ignored(err, p.path, "evaluate") {
			return false, nil
		}
		return false, err
	}
	return p.match(v)
}

// Filter returns the items p accepts, in order
func Filter[T any](items []T, p *Predicate) ([]T, error) {
	var out []T
	for _, item := range items {
		ok, err := p.Evaluate(item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func valuesEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if numberKind(va.Kind()) == 0 || numberKind(vb.Kind()) == 0 {
		return false
	}
	n, _ := compareNumbers(va, vb)
	return n == 0
}

// Mutator assigns a fixed value at a path
type Mutator struct {
	path  path.Path
	value any
	cfg   config
}

// NewMutator builds a mutator assigning value at pathStr
func NewMutator(pathStr string, value any, opts ...Option) (*Mutator, error) {
	p, err := parse(pathStr, false)
	if err != nil {
		return nil, err
	}
	return &Mutator{path: p, value: value, cfg: newConfig(opts)}, nil
}

// Apply assigns the value on target. Applying twice has the same effect
// as applying once.
func (m *Mutator) Apply(target any) error {
	err := m.cfg.nav.AssignPath(target, m.path, m.value, beanpath.Fail)
	if err != nil && !m.cfg.ignored(err, m.path, "apply") {
		return err
	}
	return nil
}

// ForEach applies m to every item, stopping at the first error
func ForEach[T any](items []T, m *Mutator) error {
	for _, item := range items {
		if err := m.Apply(item); err != nil {
			return err
		}
	}
	return nil
}

// Projector maps a target to the value at a path
type Projector struct {
	path path.Path
	cfg  config
}

// NewProjector builds a projector over pathStr
func NewProjector(pathStr string, opts ...Option) (*Projector, error) {
	p, err := parse(pathStr, false)
	if err != nil {
		return nil, err
	}
	return &Projector{path: p, cfg: newConfig(opts)}, nil
}

// Project returns the value at the path on target
func (p *Projector) Project(target any) (any, error) {
	v, err := p.cfg.nav.ResolvePath(target, p.path, beanpath.Fail)
	if err != nil {
		if p.cfg.ignored(err, p.path, "project") {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Collect projects every item, in order
func Collect[T any](items []T, p *Projector) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := p.Project(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
