package introspect

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/effectus/beanpath/path"
)

// Contributor is one stage of the introspection pipeline. It receives the
// descriptors produced by earlier stages and returns the new set.
type Contributor interface {
	Contribute(t reflect.Type, in []Descriptor) ([]Descriptor, error)
}

// ContributorFunc adapts a function to Contributor
type ContributorFunc func(t reflect.Type, in []Descriptor) ([]Descriptor, error)

// Contribute implements Contributor
func (f ContributorFunc) Contribute(t reflect.Type, in []Descriptor) ([]Descriptor, error) {
	return f(t, in)
}

// TagName is the struct tag consulted by Conventions
const TagName = "bean"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Conventions is the default contributor. It exposes exported struct fields
// in declaration order, then properties backed by accessor methods:
// GetX/IsX getters, SetX setters, and bare X getters paired with a SetX.
// Accessor methods take precedence over a field of the same property name.
type Conventions struct{}

// Contribute implements Contributor
func (Conventions) Contribute(t reflect.Type, in []Descriptor) ([]Descriptor, error) {
	out := append([]Descriptor(nil), in...)
	index := make(map[string]int, len(out))
	for i, d := range out {
		index[d.Name] = i
	}

	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if f.Anonymous || !f.IsExported() {
				continue
			}
			name := PropertyName(f.Name)
			if tag, ok := f.Tag.Lookup(TagName); ok {
				tag = strings.TrimSpace(strings.Split(tag, ",")[0])
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			if _, dup := index[name]; dup {
				continue
			}
			index[name] = len(out)
			out = append(out, Descriptor{
				Name:       name,
				Type:       f.Type,
				Readable:   true,
				Writable:   true,
				FieldIndex: f.Index,
			}.withCapabilities())
		}
	}

	for _, acc := range accessorMethods(t) {
		if i, ok := index[acc.Name]; ok {
			out[i] = mergeAccessor(out[i], acc)
			continue
		}
		index[acc.Name] = len(out)
		out = append(out, acc.withCapabilities())
	}

	return out, nil
}

// mergeAccessor lets accessor methods override field access for a property
func mergeAccessor(field, acc Descriptor) Descriptor {
	if acc.Getter != "" && acc.Type == field.Type {
		field.Getter = acc.Getter
		field.GetterErr = acc.GetterErr
	}
	if acc.Setter != "" && acc.Type == field.Type {
		field.Setter = acc.Setter
		field.SetterErr = acc.SetterErr
	}
	return field
}

type methodInfo struct {
	name   string
	typ    reflect.Type
	hasErr bool
}

// accessorMethods collects getter/setter pairs from the pointer method set
func accessorMethods(t reflect.Type) []Descriptor {
	mt := reflect.PointerTo(t)

	var order, bareOrder []string
	getters := make(map[string]methodInfo)
	bare := make(map[string]methodInfo)
	setters := make(map[string]methodInfo)
	seen := make(map[string]bool)
	note := func(prop string) {
		if !seen[prop] {
			seen[prop] = true
			order = append(order, prop)
		}
	}

	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		ft := m.Type

		if isSetter(m.Name, ft) {
			prop := PropertyName(m.Name[3:])
			setters[prop] = methodInfo{name: m.Name, typ: ft.In(1), hasErr: ft.NumOut() == 1}
			note(prop)
			continue
		}
		if ft.NumIn() != 1 || !isGetterResult(ft) {
			continue
		}

		info := methodInfo{name: m.Name, typ: ft.Out(0), hasErr: ft.NumOut() == 2}
		switch {
		case strings.HasPrefix(m.Name, "Get") && len(m.Name) > 3:
			prop := PropertyName(m.Name[3:])
			getters[prop] = info
			note(prop)
		case strings.HasPrefix(m.Name, "Is") && len(m.Name) > 2 && info.typ.Kind() == reflect.Bool:
			prop := PropertyName(m.Name[2:])
			if _, ok := getters[prop]; !ok {
				getters[prop] = info
			}
			note(prop)
		default:
			prop := PropertyName(m.Name)
			bare[prop] = info
			bareOrder = append(bareOrder, prop)
		}
	}

	// Bare getters only count when a setter completes the pair.
	for _, prop := range bareOrder {
		if _, ok := setters[prop]; !ok {
			continue
		}
		if _, ok := getters[prop]; !ok {
			getters[prop] = bare[prop]
			note(prop)
		}
	}

	descriptors := make([]Descriptor, 0, len(order))
	for _, prop := range order {
		g, hasGetter := getters[prop]
		s, hasSetter := setters[prop]
		if !hasGetter && !hasSetter {
			continue
		}
		d := Descriptor{Name: prop}
		if hasGetter {
			d.Type = g.typ
			d.Readable = true
			d.Getter = g.name
			d.GetterErr = g.hasErr
		}
		if hasSetter && (!hasGetter || s.typ == g.typ) {
			if d.Type == nil {
				d.Type = s.typ
			}
			d.Writable = true
			d.Setter = s.name
			d.SetterErr = s.hasErr
		}
		descriptors = append(descriptors, d)
	}
	return descriptors
}

func isSetter(name string, ft reflect.Type) bool {
	if !strings.HasPrefix(name, "Set") || len(name) <= 3 {
		return false
	}
	if ft.NumIn() != 2 {
		return false
	}
	return ft.NumOut() == 0 || (ft.NumOut() == 1 && ft.Out(0) == errorType)
}

func isGetterResult(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 1:
		return true
	case 2:
		return ft.Out(1) == errorType
	default:
		return false
	}
}

// suppression removes named descriptors
type suppression struct {
	names map[string]struct{}
}

// Suppress returns a contributor that removes the named properties while
// keeping the order of the others.
func Suppress(names ...string) Contributor {
	s := &suppression{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

// Contribute implements Contributor
func (s *suppression) Contribute(_ reflect.Type, in []Descriptor) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(in))
	for _, d := range in {
		if _, drop := s.names[d.Name]; drop {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// PropertyName derives a property name from a Go identifier: the first
// letter is lowered unless the first two letters are both upper case, so
// "City" becomes "city" and "URL" stays "URL".
func PropertyName(goName string) string {
	if goName == "" {
		return goName
	}
	first, size := utf8.DecodeRuneInString(goName)
	if size < len(goName) {
		second, _ := utf8.DecodeRuneInString(goName[size:])
		if unicode.IsUpper(first) && unicode.IsUpper(second) {
			return goName
		}
	}
	return string(unicode.ToLower(first)) + goName[size:]
}

// addressable drops names the path grammar cannot express
func addressable(in []Descriptor) (kept []Descriptor, dropped []string) {
	kept = in[:0:0]
	for _, d := range in {
		if !path.ValidName(d.Name) {
			dropped = append(dropped, d.Name)
			continue
		}
		kept = append(kept, d)
	}
	return kept, dropped
}
