package math3d

import (
	"fmt"
	"math"
)

type Vector3 struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

var (
	ZeroVector3 = Vector3{}
)

// MakeVector3 returns a pointer to a new Vector3.
func MakeVector3(x float64, y float64, z float64) *Vector3 {
	return &Vector3{x, y, z}
}

func (v Vector3) String() string {
	return fmt.Sprintf("&Vec3{x=%0.4f y=%0.4f z=%0.4f}", v.X, v.Y, v.Z)
}

// Zero returns true if the vector is at 0,0,0.
func (v Vector3) Zero() bool {
	return (v.X == 0) && (v.Y == 0) && (v.Z == 0)
}

// Add adds two vectors, and returns the result.
func (v Vector3) Add(vv Vector3) Vector3 {
	return Vector3{
		(v.X + vv.X),
		(v.Y + vv.Y),
		(v.Z + vv.Z),
	}
}

// Subtract returns the vector from vv to v.
func (v Vector3) Subtract(vv Vector3) Vector3 {
	return Vector3{
		(v.X - vv.X),
		(v.Y - vv.Y),
		(v.Z - vv.Z),
	}
}

func (v Vector3) MultiplyByScalar(n float64) Vector3 {
	return Vector3{
		(v.X * n),
		(v.Y * n),
		(v.Z * n),
	}
}

func (v Vector3) Magnitude() float64 {
	return math.Sqrt((v.X * v.X) + (v.Y * v.Y) + (v.Z * v.Z))
}

// Unit returns the normalized form of the vector. The zero vector is returned
// unchanged, rather than dividing by zero.
func (v Vector3) Unit() Vector3 {
	m := v.Magnitude()
	if m == 0 {
		return ZeroVector3
	}

	return Vector3{
		(v.X / m),
		(v.Y / m),
		(v.Z / m),
	}
}

// Distance calculates and returns the distance between this vector and
// another, as a float64.
func (v Vector3) Distance(vv Vector3) float64 {
	dx := v.X - vv.X
	dy := v.Y - vv.Y
	dz := v.Z - vv.Z
	return math.Sqrt((dx * dx) + (dy * dy) + (dz * dz))
}

// DistanceXY returns the distance between the projections of the two vectors
// onto the ground plane.
func (v Vector3) DistanceXY(vv Vector3) float64 {
	dx := v.X - vv.X
	dy := v.Y - vv.Y
	return math.Sqrt((dx * dx) + (dy * dy))
}

// RotateZ rotates the vector around the Z (vertical) axis by the given angle
// in radians.
func (v Vector3) RotateZ(angle float64) Vector3 {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Vector3{
		(v.X * c) - (v.Y * s),
		(v.X * s) + (v.Y * c),
		v.Z,
	}
}

// MultiplyByMatrix44 returns a new Vector3, by multiplying this vector by a
// 4x4 matrix.
func (v Vector3) MultiplyByMatrix44(m Matrix44) Vector3 {
	return Vector3{
		(v.X * m.m11) + (v.Y * m.m21) + (v.Z * m.m31) + m.m41,
		(v.X * m.m12) + (v.Y * m.m22) + (v.Z * m.m32) + m.m42,
		(v.X * m.m13) + (v.Y * m.m23) + (v.Z * m.m33) + m.m43,
	}
}

// Vector2 is a point or direction on the ground plane.
type Vector2 struct {
	X float64
	Y float64
}

var (
	ZeroVector2 = Vector2{}
)

func (v Vector2) String() string {
	return fmt.Sprintf("&Vec2{x=%0.4f y=%0.4f}", v.X, v.Y)
}

func (v Vector2) Zero() bool {
	return (v.X == 0) && (v.Y == 0)
}

func (v Vector2) Magnitude() float64 {
	return math.Sqrt((v.X * v.X) + (v.Y * v.Y))
}

// Vector3 lifts the planar vector into 3-D space with a zero Z component.
func (v Vector2) Vector3() Vector3 {
	return Vector3{v.X, v.Y, 0}
}
