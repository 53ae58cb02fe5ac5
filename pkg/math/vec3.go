// Package math provides the small vector types carried by mesh geometry.
//
// The types are laid out exactly as they travel on the wire (packed
// little-endian float32 / uint8 fields), so slices of them can be filled
// directly by encoding/binary.
package math

import "math"

// Vec3 is a 3D vector. Wire size is 12 bytes.
type Vec3 struct {
	X, Y, Z float32
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Float64 widens the vector to a float64 triple.
func (v Vec3) Float64() [3]float64 {
	return [3]float64{float64(v.X), float64(v.Y), float64(v.Z)}
}
