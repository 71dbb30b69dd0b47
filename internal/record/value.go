// Package record provides the tagged values and ordered key/value records
// produced by the catalog pipeline.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxPlainFloat bounds the integral floats written with a ".0" suffix.
const maxPlainFloat = 1e16

// ErrUnsupportedValue indicates a value that has no scalar representation.
var ErrUnsupportedValue = errors.New("unsupported value type")

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindNull is the JSON null value.
	KindNull Kind = iota
	// KindString is a text value.
	KindString
	// KindNumber is a numeric value.
	KindNumber
	// KindBool is a boolean value.
	KindBool
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is an immutable scalar: null, string, number or bool.
// Numbers keep the literal they were decoded from so that upstream
// integers are emitted unchanged.
type Value struct {
	kind  Kind
	str   string
	num   float64
	b     bool
	// float marks computed numbers that always print a fraction.
	float bool
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Float returns a computed numeric value. Integral values serialize with
// a trailing ".0", so 8300 is written as 8300.0.
func Float(f float64) Value {
	return Value{kind: KindNumber, num: f, float: true}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NumberLiteral returns a numeric value that serializes as lit.
func NumberLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid number %q", ErrUnsupportedValue, lit)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, fmt.Errorf("%w: non-finite number %q", ErrUnsupportedValue, lit)
	}
	return Value{kind: KindNumber, num: f, str: lit}, nil
}

// FromAny converts a decoded JSON scalar into a Value.
// Objects and arrays are rejected with ErrUnsupportedValue.
func FromAny(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case json.Number:
		return NumberLiteral(t.String())
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return Value{}, fmt.Errorf("%w: non-finite number", ErrUnsupportedValue)
		}
		return Number(t), nil
	case float32:
		return FromAny(float64(t))
	case int:
		return Value{kind: KindNumber, num: float64(t), str: strconv.Itoa(t)}, nil
	case int64:
		return Value{kind: KindNumber, num: float64(t), str: strconv.FormatInt(t, 10)}, nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsString returns the text of a string value.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsFloat returns the numeric value of a number.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// FloatOrZero returns the numeric value, or 0 for anything that is not a number.
func (v Value) FloatOrZero() float64 {
	f, _ := v.AsFloat()
	return f
}

// Equal reports whether two values have the same kind and content.
// Numbers compare by value, not by literal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if v.str != "" {
			return []byte(v.str), nil
		}
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return nil, fmt.Errorf("%w: non-finite number", ErrUnsupportedValue)
		}
		out := strconv.FormatFloat(v.num, 'f', -1, 64)
		if v.float && math.Abs(v.num) < maxPlainFloat && !strings.ContainsRune(out, '.') {
			out += ".0"
		}
		return []byte(out), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnsupportedValue, v.kind)
	}
}
