package ir

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a canonical identity value. Implemented by String, Int, Bool,
// Float, List and Object.
type Value interface {
	irValue()
}

// String is a canonical string.
type String string

// Int is a canonical integer.
type Int int64

// Bool is a canonical boolean.
type Bool bool

// Float is a float parameter. It is encoded as the shortest decimal string
// that round-trips, so 20 and 20.0 share an identity while 0.1 never picks
// up binary noise.
type Float float64

// List is an ordered sequence of values.
type List []Value

// Object is a string-keyed map. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (String) irValue() {}
func (Int) irValue()    {}
func (Bool) irValue()   {}
func (Float) irValue()  {}
func (List) irValue()   {}
func (Object) irValue() {}

// Text returns the identity encoding of f.
func (f Float) Text() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// FromGo converts plain Go values to a Value. Floats become Float; NaN and
// infinities are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return floatValue(float64(val))
	case float64:
		return floatValue(val)
	case []string:
		out := make(List, len(val))
		for i, s := range val {
			out[i] = String(s)
		}
		return out, nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			iv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = iv
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(val))
		for k, elem := range val {
			iv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = iv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v has no identity", f)
	}
	return Float(f), nil
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units, which is not
// the same as Go's byte-wise string order).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
