package wire

import (
	"math"

	"github.com/vsb-protocol/vsb-go/pkg/value"
)

// Datapoint is the wire form of a signal value.
//
// CBOR collapses integer widths, so the kind travels explicitly and
// each payload type uses its own map key:
//
//	{
//	  1: kind,     // uint8: value.Kind
//	  2: bool,     // KindBool
//	  3: int,      // KindInt32, KindInt64
//	  4: uint,     // KindUint32, KindUint64
//	  5: float,    // KindFloat32, KindFloat64
//	  6: string,   // KindString
//	  7: elements  // KindArray, recursive
//	}
type Datapoint struct {
	Kind     uint8       `cbor:"1,keyasint"`
	Bool     bool        `cbor:"2,keyasint,omitempty"`
	Int      int64       `cbor:"3,keyasint,omitempty"`
	Uint     uint64      `cbor:"4,keyasint,omitempty"`
	Float    float64     `cbor:"5,keyasint,omitempty"`
	String   string      `cbor:"6,keyasint,omitempty"`
	Elements []Datapoint `cbor:"7,keyasint,omitempty"`
}

// FromValue converts a Value into its wire form. It is total.
func FromValue(v value.Value) Datapoint {
	dp := Datapoint{Kind: uint8(v.Kind())}
	switch v.Kind() {
	case value.KindBool:
		dp.Bool = v.Bool()
	case value.KindInt32, value.KindInt64:
		dp.Int = v.Int()
	case value.KindUint32, value.KindUint64:
		dp.Uint = v.Uint()
	case value.KindFloat32, value.KindFloat64:
		dp.Float = v.Float()
	case value.KindString:
		dp.String = v.Str()
	case value.KindArray:
		elems := v.Elements()
		dp.Elements = make([]Datapoint, len(elems))
		for i, e := range elems {
			dp.Elements[i] = FromValue(e)
		}
	}
	return dp
}

// ToValue reconstructs a Value from its wire form. A malformed
// datapoint (unknown kind, payload outside the kind's range) yields a
// DecodeError; the rest of the stream is unaffected.
func (dp Datapoint) ToValue() (value.Value, error) {
	kind := value.Kind(dp.Kind)
	switch kind {
	case value.KindUnset:
		return value.Unset(), nil
	case value.KindBool:
		return value.NewBool(dp.Bool), nil
	case value.KindInt32:
		if dp.Int < math.MinInt32 || dp.Int > math.MaxInt32 {
			return value.Value{}, decodeErrorf("int32 datapoint out of range: %d", dp.Int)
		}
		return value.NewInt32(int32(dp.Int)), nil
	case value.KindInt64:
		return value.NewInt64(dp.Int), nil
	case value.KindUint32:
		if dp.Uint > math.MaxUint32 {
			return value.Value{}, decodeErrorf("uint32 datapoint out of range: %d", dp.Uint)
		}
		return value.NewUint32(uint32(dp.Uint)), nil
	case value.KindUint64:
		return value.NewUint64(dp.Uint), nil
	case value.KindFloat32:
		if !math.IsInf(dp.Float, 0) && math.Abs(dp.Float) > math.MaxFloat32 {
			return value.Value{}, decodeErrorf("float32 datapoint out of range: %g", dp.Float)
		}
		return value.NewFloat32(float32(dp.Float)), nil
	case value.KindFloat64:
		return value.NewFloat64(dp.Float), nil
	case value.KindString:
		return value.NewString(dp.String), nil
	case value.KindArray:
		elems := make([]value.Value, len(dp.Elements))
		for i, e := range dp.Elements {
			ev, err := e.ToValue()
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = ev
		}
		return value.NewArray(elems), nil
	default:
		return value.Value{}, decodeErrorf("unknown datapoint kind: %d", dp.Kind)
	}
}
