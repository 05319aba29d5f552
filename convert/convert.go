// Package convert converts assigned values to the declared type of the
// property receiving them.
package convert

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/effectus/beanpath"
)

// Func converts value to the target type
type Func func(value any) (any, error)

// Registry holds custom converters keyed by target type on top of the
// standard conversion set. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[reflect.Type]Func
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	durType     = reflect.TypeOf(time.Duration(0))
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// NewRegistry returns a registry with the default converters for
// time.Time, uuid.UUID and decimal.Decimal.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[reflect.Type]Func)}
	r.Register(timeType, toTime)
	r.Register(uuidType, toUUID)
	r.Register(decimalType, toDecimal)
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the shared default registry
func Default() *Registry {
	return defaultRegistry
}

// Register installs fn for target, replacing any previous converter
func (r *Registry) Register(target reflect.Type, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[target] = fn
}

func (r *Registry) lookup(target reflect.Type) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.converters[target]
	return fn, ok
}

// To converts value to T
func To[T any](r *Registry, value any) (T, error) {
	var zero T
	rv, err := r.Convert(value, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// Convert returns value as a reflect.Value assignable to target.
func (r *Registry) Convert(value any, target reflect.Type) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, conversionError(value, target, nil)
	}

	if value == nil {
		if nillable(target.Kind()) {
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, conversionError(value, target, nil)
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(target) {
		return src, nil
	}

	if fn, ok := r.lookup(target); ok {
		out, err := fn(value)
		if err != nil {
			return reflect.Value{}, conversionError(value, target, err)
		}
		rv := reflect.ValueOf(out)
		if !rv.IsValid() || !rv.Type().AssignableTo(target) {
			return reflect.Value{}, conversionError(value, target, fmt.Errorf("converter returned %T", out))
		}
		return rv, nil
	}

	// Pointer to T: convert to T and take its address.
	if target.Kind() == reflect.Pointer {
		elem, err := r.Convert(value, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	// *T to T: dereference.
	if src.Kind() == reflect.Pointer {
		if src.IsNil() {
			return r.Convert(nil, target)
		}
		return r.Convert(src.Elem().Interface(), target)
	}

	// Sequences convert element by element.
	if target.Kind() == reflect.Slice && (src.Kind() == reflect.Slice || src.Kind() == reflect.Array) {
		out := reflect.MakeSlice(target, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			elem, err := r.Convert(src.Index(i).Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, conversionError(value, target, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	}

	out, err := convertBasic(src, target)
	if err != nil {
		return reflect.Value{}, conversionError(value, target, err)
	}
	return out, nil
}

// ConvertValue is Convert returning an interface value
func (r *Registry) ConvertValue(value any, target reflect.Type) (any, error) {
	rv, err := r.Convert(value, target)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func convertBasic(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Kind() == reflect.Interface {
		if src.Type().Implements(target) {
			out := reflect.New(target).Elem()
			out.Set(src)
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("%s does not implement %s", src.Type(), target)
	}

	if target.Kind() == reflect.String {
		s, ok := formatString(src)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot format %s as string", src.Type())
		}
		return reflect.ValueOf(s).Convert(target), nil
	}

	if src.Kind() == reflect.String {
		return parseString(src.String(), target)
	}

	if isNumeric(src.Kind()) && isNumeric(target.Kind()) {
		return convertNumber(src, target)
	}

	// Named types sharing a kind, e.g. type Color string
	if src.Kind() == target.Kind() && src.Type().ConvertibleTo(target) {
		return src.Convert(target), nil
	}

	return reflect.Value{}, fmt.Errorf("no conversion from %s to %s", src.Type(), target)
}

func formatString(src reflect.Value) (string, bool) {
	if s, ok := src.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	switch src.Kind() {
	case reflect.String:
		return src.String(), true
	case reflect.Bool:
		return strconv.FormatBool(src.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(src.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(src.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(src.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(src.Float(), 'g', -1, 64), true
	case reflect.Slice:
		if src.Type().Elem().Kind() == reflect.Uint8 {
			return string(src.Bytes()), true
		}
	}
	return "", false
}

func parseString(s string, target reflect.Type) (reflect.Value, error) {
	s = strings.TrimSpace(s)
	out := reflect.New(target).Elem()

	if target == durType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(int64(d))
		return out, nil
	}

	switch target.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, target.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, target.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, target.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Slice:
		if target.Elem().Kind() != reflect.Uint8 {
			return reflect.Value{}, fmt.Errorf("no conversion from string to %s", target)
		}
		out.SetBytes([]byte(s))
	default:
		return reflect.Value{}, fmt.Errorf("no conversion from string to %s", target)
	}
	return out, nil
}

// convertNumber converts between numeric kinds, refusing conversions that
// lose information.
func convertNumber(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	out := src.Convert(target)

	switch {
	case isFloat(src.Kind()):
		f := src.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			if isFloat(target.Kind()) {
				return out, nil
			}
			return reflect.Value{}, fmt.Errorf("cannot represent %v as %s", f, target)
		}
		if back := out.Convert(src.Type()).Float(); back != f {
			return reflect.Value{}, fmt.Errorf("%v overflows or truncates as %s", f, target)
		}
	case isSigned(src.Kind()):
		n := src.Int()
		if isUnsigned(target.Kind()) && n < 0 {
			return reflect.Value{}, fmt.Errorf("negative value %d for %s", n, target)
		}
		if back := out.Convert(src.Type()).Int(); back != n {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, target)
		}
	default:
		n := src.Uint()
		if isSigned(target.Kind()) && out.Int() < 0 {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, target)
		}
		if back := out.Convert(src.Type()).Uint(); back != n {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, target)
		}
	}
	return out, nil
}

func toTime(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported source %T", value)
	}
}

func toUUID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return uuid.Parse(strings.TrimSpace(v))
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	default:
		return nil, fmt.Errorf("unsupported source %T", value)
	}
}

func toDecimal(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported source %T", value)
	}
}

func conversionError(value any, target reflect.Type, cause error) error {
	return &beanpath.Error{
		Kind:    beanpath.TypeConversion,
		Message: fmt.Sprintf("cannot convert %T to %v", value, target),
		Err:     cause,
	}
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || isFloat(k)
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
