package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type of a Value.
type Kind uint8

const (
	// KindUnset indicates a value that has never been set on the broker.
	KindUnset Kind = iota

	// KindBool is a boolean value.
	KindBool

	// KindInt32 is a 32-bit signed integer.
	KindInt32

	// KindInt64 is a 64-bit signed integer.
	KindInt64

	// KindUint32 is a 32-bit unsigned integer.
	KindUint32

	// KindUint64 is a 64-bit unsigned integer.
	KindUint64

	// KindFloat32 is a 32-bit floating point value.
	KindFloat32

	// KindFloat64 is a 64-bit floating point value.
	KindFloat64

	// KindString is a UTF-8 string.
	KindString

	// KindArray is a homogeneous array of values.
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	names := []string{
		"unset", "bool", "int32", "int64", "uint32", "uint64",
		"float32", "float64", "string", "array",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// IsValid returns true for kinds this package knows how to encode.
func (k Kind) IsValid() bool {
	return k <= KindArray
}

// Value is a dynamically typed signal value as held by the broker.
// The zero Value has KindUnset.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	arr  []Value
}

// Unset returns the unset value.
func Unset() Value {
	return Value{}
}

// NewBool returns a Bool value.
func NewBool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// NewInt32 returns an Int32 value.
func NewInt32(v int32) Value {
	return Value{kind: KindInt32, i: int64(v)}
}

// NewInt64 returns an Int64 value.
func NewInt64(v int64) Value {
	return Value{kind: KindInt64, i: v}
}

// NewUint32 returns a UInt32 value.
func NewUint32(v uint32) Value {
	return Value{kind: KindUint32, u: uint64(v)}
}

// NewUint64 returns a UInt64 value.
func NewUint64(v uint64) Value {
	return Value{kind: KindUint64, u: v}
}

// NewFloat32 returns a Float32 value.
func NewFloat32(v float32) Value {
	return Value{kind: KindFloat32, f: float64(v)}
}

// NewFloat64 returns a Float64 value.
func NewFloat64(v float64) Value {
	return Value{kind: KindFloat64, f: v}
}

// NewString returns a String value.
func NewString(v string) Value {
	return Value{kind: KindString, s: v}
}

// NewArray returns an Array value. The elements are copied.
func NewArray(elems []Value) Value {
	arr := make([]Value, len(elems))
	copy(arr, elems)
	return Value{kind: KindArray, arr: arr}
}

// Kind returns the dynamic kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsUnset returns true if the value has never been set.
func (v Value) IsUnset() bool {
	return v.kind == KindUnset
}

// Len returns the number of elements for Array values, 0 otherwise.
func (v Value) Len() int {
	return len(v.arr)
}

// Elements returns a copy of the array elements, or nil for non-arrays.
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return nil
	}
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	return out
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUnset:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt32, KindInt64:
		return v.i == o.i
	case KindUint32, KindUint64:
		return v.u == o.u
	case KindFloat32, KindFloat64:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns a human-readable rendering, e.g. "float32(42)".
func (v Value) String() string {
	switch v.kind {
	case KindUnset:
		return "unset"
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.b)
	case KindInt32, KindInt64:
		return fmt.Sprintf("%s(%d)", v.kind, v.i)
	case KindUint32, KindUint64:
		return fmt.Sprintf("%s(%d)", v.kind, v.u)
	case KindFloat32, KindFloat64:
		return fmt.Sprintf("%s(%s)", v.kind, strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "array[" + strings.Join(parts, ", ") + "]"
	default:
		return "unknown"
	}
}

// Bool returns the boolean payload. Valid only for KindBool.
func (v Value) Bool() bool { return v.b }

// Int returns the signed integer payload. Valid for KindInt32/KindInt64.
func (v Value) Int() int64 { return v.i }

// Uint returns the unsigned integer payload. Valid for KindUint32/KindUint64.
func (v Value) Uint() uint64 { return v.u }

// Float returns the float payload. Valid for KindFloat32/KindFloat64.
func (v Value) Float() float64 { return v.f }

// Str returns the string payload. Valid only for KindString.
func (v Value) Str() string { return v.s }
