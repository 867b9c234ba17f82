// Package value implements the dynamically typed signal value used on
// the broker wire, together with lossless conversion to and from
// static Go types.
//
// A Value is a tagged union over booleans, the four common integer
// widths, both float widths, strings and homogeneous arrays thereof.
// The tag determines which conversions are valid: exact matches and
// the safe widenings Int32→int64, UInt32→uint64 and Float32→float64
// always succeed, numeric narrowings succeed only when the value fits,
// and everything else fails with a TypeMismatchError. There is no
// implicit coercion.
package value
