// Package arena is a minimal headless 2D simulation of the bounded arena:
// bouncing circular bodies carrying orbiting weapon sensors. It reports
// weapon contacts as a per-frame began/ended diff.
package arena

import "math"

// Vec is a 2D vector in arena units.
type Vec struct {
	X, Y float64
}

// Add returns v+o.
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v×s.
func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec) Dot(o Vec) float64 { return v.X*o.X + v.Y*o.Y }

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Normalize returns v scaled to unit length, or the zero vector if v is zero.
func (v Vec) Normalize() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return v.Scale(1 / l)
}

// Rotate returns v rotated by angle radians counter-clockwise.
func (v Vec) Rotate(angle float64) Vec {
	sin, cos := math.Sincos(angle)
	return Vec{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// FromAngle returns the unit vector at angle radians.
func FromAngle(angle float64) Vec {
	sin, cos := math.Sincos(angle)
	return Vec{cos, sin}
}
