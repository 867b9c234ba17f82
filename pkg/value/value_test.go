package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	// Of followed by As returns the original value for every
	// supported static type.
	assertRoundTrip(t, true)
	assertRoundTrip(t, int32(-42))
	assertRoundTrip(t, int64(1<<40))
	assertRoundTrip(t, uint32(42))
	assertRoundTrip(t, uint64(1<<40))
	assertRoundTrip(t, float32(42.5))
	assertRoundTrip(t, float64(42.5))
	assertRoundTrip(t, "Vehicle.Speed")
	assertRoundTrip(t, []bool{true, false})
	assertRoundTrip(t, []int32{-1, 0, 1})
	assertRoundTrip(t, []int64{-1 << 40, 1 << 40})
	assertRoundTrip(t, []uint32{0, 1, 2})
	assertRoundTrip(t, []uint64{1 << 40})
	assertRoundTrip(t, []float32{1.5, -2.5})
	assertRoundTrip(t, []float64{1.5, -2.5})
	assertRoundTrip(t, []string{"a", "b"})
}

func assertRoundTrip[T GoType](t *testing.T, in T) {
	t.Helper()
	out, err := As[T](Of(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindBool, Of(true).Kind())
	assert.Equal(t, KindInt32, Of(int32(1)).Kind())
	assert.Equal(t, KindInt64, Of(int64(1)).Kind())
	assert.Equal(t, KindUint32, Of(uint32(1)).Kind())
	assert.Equal(t, KindUint64, Of(uint64(1)).Kind())
	assert.Equal(t, KindFloat32, Of(float32(1)).Kind())
	assert.Equal(t, KindFloat64, Of(float64(1)).Kind())
	assert.Equal(t, KindString, Of("x").Kind())
	assert.Equal(t, KindArray, Of([]int32{1}).Kind())
	assert.Equal(t, KindUnset, Unset().Kind())
	assert.True(t, Unset().IsUnset())
}

func TestSafeWidening(t *testing.T) {
	i, err := As[int64](NewInt32(-7))
	require.NoError(t, err)
	assert.Equal(t, int64(-7), i)

	u, err := As[uint64](NewUint32(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u)

	f, err := As[float64](NewFloat32(1.5))
	require.NoError(t, err)
	assert.Equal(t, float64(1.5), f)
}

func TestCheckedNarrowing(t *testing.T) {
	i, err := As[int32](NewInt64(42))
	require.NoError(t, err)
	assert.Equal(t, int32(42), i)

	_, err = As[int32](NewInt64(1 << 40))
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "int32", rangeErr.Want)

	_, err = As[uint32](NewUint64(1 << 40))
	require.ErrorAs(t, err, &rangeErr)

	_, err = As[float32](NewFloat64(1e300))
	require.ErrorAs(t, err, &rangeErr)

	// Values that fit narrow fine.
	f, err := As[float32](NewFloat64(2.5))
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), f)
}

func TestTypeMismatch(t *testing.T) {
	_, err := As[float32](NewString("fast"))
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "float32", mismatch.Want)
	assert.Equal(t, KindString, mismatch.Got)

	// No cross-signedness coercion.
	_, err = As[uint32](NewInt32(1))
	require.ErrorAs(t, err, &mismatch)
	_, err = As[int64](NewUint32(1))
	require.ErrorAs(t, err, &mismatch)

	// No float/int coercion.
	_, err = As[int32](NewFloat32(1))
	require.ErrorAs(t, err, &mismatch)
}

func TestArrayConversion(t *testing.T) {
	// Mixed-width integer array narrows element-wise.
	arr := NewArray([]Value{NewInt64(1), NewInt64(2)})
	out, err := As[[]int32](arr)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, out)

	// First failing element reported by index.
	arr = NewArray([]Value{NewInt64(1), NewString("x"), NewInt64(3)})
	_, err = As[[]int64](arr)
	var elemErr *ElementError
	require.ErrorAs(t, err, &elemErr)
	assert.Equal(t, 1, elemErr.Index)

	var mismatch *TypeMismatchError
	assert.True(t, errors.As(elemErr.Err, &mismatch))

	// Non-array to slice fails outright.
	_, err = As[[]int64](NewInt64(1))
	require.ErrorAs(t, err, &mismatch)
}

func TestEqual(t *testing.T) {
	assert.True(t, NewInt32(1).Equal(NewInt32(1)))
	assert.False(t, NewInt32(1).Equal(NewInt64(1)), "differing widths are not equal")
	assert.True(t, Unset().Equal(Unset()))
	assert.True(t, Of([]string{"a"}).Equal(Of([]string{"a"})))
	assert.False(t, Of([]string{"a"}).Equal(Of([]string{"b"})))
}
