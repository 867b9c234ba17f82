package value

import (
	"fmt"
	"math"
)

// GoType is the set of static Go types a Value converts to and from.
type GoType interface {
	bool | int32 | int64 | uint32 | uint64 | float32 | float64 | string |
		[]bool | []int32 | []int64 | []uint32 | []uint64 | []float32 | []float64 | []string
}

// TypeMismatchError indicates a conversion to an incompatible static type.
// It is always recoverable and never affects other calls or subscriptions.
type TypeMismatchError struct {
	// Want is the requested static type, e.g. "float32".
	Want string

	// Got is the dynamic kind of the value.
	Got Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: cannot convert %s value to %s", e.Got, e.Want)
}

// RangeError indicates a numeric narrowing that would not fit.
// Narrowing conversions never truncate silently.
type RangeError struct {
	// Want is the requested static type.
	Want string

	// Value is the out-of-range value, rendered for diagnostics.
	Value string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error: %s does not fit in %s", e.Value, e.Want)
}

// ElementError reports a conversion failure inside an array value.
type ElementError struct {
	// Index is the offending element index.
	Index int

	// Err is the underlying conversion error.
	Err error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("array element %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying element conversion error.
func (e *ElementError) Unwrap() error {
	return e.Err
}

// Of converts a statically typed Go value into a Value.
// It is total: every value of a supported type has a Value representation.
func Of[T GoType](v T) Value {
	switch x := any(v).(type) {
	case bool:
		return NewBool(x)
	case int32:
		return NewInt32(x)
	case int64:
		return NewInt64(x)
	case uint32:
		return NewUint32(x)
	case uint64:
		return NewUint64(x)
	case float32:
		return NewFloat32(x)
	case float64:
		return NewFloat64(x)
	case string:
		return NewString(x)
	case []bool:
		return ofSlice(x, NewBool)
	case []int32:
		return ofSlice(x, NewInt32)
	case []int64:
		return ofSlice(x, NewInt64)
	case []uint32:
		return ofSlice(x, NewUint32)
	case []uint64:
		return ofSlice(x, NewUint64)
	case []float32:
		return ofSlice(x, NewFloat32)
	case []float64:
		return ofSlice(x, NewFloat64)
	case []string:
		return ofSlice(x, NewString)
	default:
		// Unreachable: GoType enumerates all cases.
		return Unset()
	}
}

func ofSlice[E any](elems []E, conv func(E) Value) Value {
	arr := make([]Value, len(elems))
	for i, e := range elems {
		arr[i] = conv(e)
	}
	return Value{kind: KindArray, arr: arr}
}

// As converts a Value to the requested static type.
//
// Exact kind matches always succeed. The safe widenings Int32→int64,
// UInt32→uint64 and Float32→float64 are permitted. Numeric narrowing
// (e.g. Int64→int32) succeeds only if the value fits, otherwise it
// fails with a RangeError. Everything else fails with a
// TypeMismatchError. Array conversion is element-wise and stops at the
// first failing element, reporting its index via ElementError.
func As[T GoType](v Value) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *bool:
		if v.kind != KindBool {
			return out, mismatch[T](v)
		}
		*p = v.b
	case *int32:
		switch v.kind {
		case KindInt32:
			*p = int32(v.i)
		case KindInt64:
			if v.i < math.MinInt32 || v.i > math.MaxInt32 {
				return out, rangeErr[T](v)
			}
			*p = int32(v.i)
		default:
			return out, mismatch[T](v)
		}
	case *int64:
		switch v.kind {
		case KindInt32, KindInt64:
			*p = v.i
		default:
			return out, mismatch[T](v)
		}
	case *uint32:
		switch v.kind {
		case KindUint32:
			*p = uint32(v.u)
		case KindUint64:
			if v.u > math.MaxUint32 {
				return out, rangeErr[T](v)
			}
			*p = uint32(v.u)
		default:
			return out, mismatch[T](v)
		}
	case *uint64:
		switch v.kind {
		case KindUint32, KindUint64:
			*p = v.u
		default:
			return out, mismatch[T](v)
		}
	case *float32:
		switch v.kind {
		case KindFloat32:
			*p = float32(v.f)
		case KindFloat64:
			if !math.IsInf(v.f, 0) && math.Abs(v.f) > math.MaxFloat32 {
				return out, rangeErr[T](v)
			}
			*p = float32(v.f)
		default:
			return out, mismatch[T](v)
		}
	case *float64:
		switch v.kind {
		case KindFloat32, KindFloat64:
			*p = v.f
		default:
			return out, mismatch[T](v)
		}
	case *string:
		if v.kind != KindString {
			return out, mismatch[T](v)
		}
		*p = v.s
	case *[]bool:
		return asSliceInto[T](v, p)
	case *[]int32:
		return asSliceInto[T](v, p)
	case *[]int64:
		return asSliceInto[T](v, p)
	case *[]uint32:
		return asSliceInto[T](v, p)
	case *[]uint64:
		return asSliceInto[T](v, p)
	case *[]float32:
		return asSliceInto[T](v, p)
	case *[]float64:
		return asSliceInto[T](v, p)
	case *[]string:
		return asSliceInto[T](v, p)
	}
	return out, nil
}

// asSliceInto converts an array value element-wise into *p and returns
// the same slice as the outer type T.
func asSliceInto[T GoType, E GoType](v Value, p *[]E) (T, error) {
	var zero T
	if v.kind != KindArray {
		return zero, mismatch[T](v)
	}
	elems := make([]E, len(v.arr))
	for i, ev := range v.arr {
		e, err := As[E](ev)
		if err != nil {
			return zero, &ElementError{Index: i, Err: err}
		}
		elems[i] = e
	}
	*p = elems
	return any(elems).(T), nil
}

func mismatch[T GoType](v Value) error {
	return &TypeMismatchError{Want: typeName[T](), Got: v.kind}
}

func rangeErr[T GoType](v Value) error {
	return &RangeError{Want: typeName[T](), Value: v.String()}
}

func typeName[T GoType]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}
