package sheetdb

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which variant of a Value is set
type Kind int

const (
	KindAbsent Kind = iota
	KindBool
	KindNumber
	KindString
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "absent"
	}
}

// Value is a single cell value: a boolean, a number, a string, or absent.
// The zero Value is absent.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Null returns the absent value
func Null() Value { return Value{} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// FromAny converts a Go scalar into a Value. Integers and floats become
// numbers, time.Time becomes an RFC 3339 string and nil becomes absent.
func FromAny(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(float64(val)), nil
	case int8:
		return Number(float64(val)), nil
	case int16:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint:
		return Number(float64(val)), nil
	case uint8:
		return Number(float64(val)), nil
	case uint16:
		return Number(float64(val)), nil
	case uint32:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case float32:
		return Number(float64(val)), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Null(), fmt.Errorf("%w: %q", ErrUnsupportedValue, val)
		}
		return Number(f), nil
	case time.Time:
		return String(val.Format(time.RFC3339)), nil
	default:
		return Null(), fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Kind reports which variant is set
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value holds nothing
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsBool returns the boolean and whether the value is a boolean
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether the value is a number
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and whether the value is a string
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Interface returns the value as nil, bool, float64 or string
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	default:
		return nil
	}
}

// String renders the value as text. Absent renders as the empty string and
// numbers render without exponent or trailing zeros.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Equal reports whether both values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	default:
		return true
	}
}

// MarshalJSON encodes the value as a JSON scalar or null
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.n) || math.IsInf(v.n, 0)) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar or null
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
