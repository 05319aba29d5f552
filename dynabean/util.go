package dynabean

import (
	"errors"
	"sort"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/navigator"
)

// Describe copies the readable properties of value into a map. Properties
// whose read fails with NotReadable are left out.
func Describe(nav *navigator.Navigator, value any) (map[string]any, error) {
	if nav == nil {
		nav = navigator.Default()
	}
	props, err := nav.Describe(value)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(props))
	for _, p := range props {
		v, err := nav.ResolvePath(value, single(p.Name), beanpath.Fail)
		if errors.Is(err, beanpath.NotReadable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

// Populate assigns every entry of values to target. Keys are property
// paths, so nested, indexed and keyed targets are allowed. Keys naming
// properties target does not have are skipped. Entries are applied in key
// order.
func Populate(nav *navigator.Navigator, target any, values map[string]any) error {
	if nav == nil {
		nav = navigator.Default()
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		err := nav.Assign(target, k, values[k], beanpath.Fail)
		if errors.Is(err, beanpath.NoSuchProperty) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CopyProperties copies every property readable on src and writable on dst,
// converting values to dst's declared types.
func CopyProperties(nav *navigator.Navigator, dst, src any) error {
	if nav == nil {
		nav = navigator.Default()
	}
	props, err := nav.Describe(src)
	if err != nil {
		return err
	}
	for _, p := range props {
		if !nav.IsReadable(src, p.Name) || !nav.IsWritable(dst, p.Name) {
			continue
		}
		v, err := nav.ResolvePath(src, single(p.Name), beanpath.Fail)
		if err != nil {
			return err
		}
		if err := nav.AssignPath(dst, single(p.Name), v, beanpath.Fail); err != nil {
			return err
		}
	}
	return nil
}
