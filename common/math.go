package common

import "math"

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Vec3 is a plain 3-component vector. The physics backend is 2D and only
// reads X and Y.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// One is the identity scale.
var One = Vec3{X: 1, Y: 1, Z: 1}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{X: Lerp(v.X, o.X, t), Y: Lerp(v.Y, o.Y, t), Z: Lerp(v.Z, o.Z, t)}
}

// Quat is a rotation quaternion. Callers are expected to keep it normalized.
type Quat struct {
	W float64 `yaml:"w"`
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func Identity() Quat {
	return Quat{W: 1}
}

// QuatFromAngleZ returns a rotation of angle radians around the Z axis.
func QuatFromAngleZ(angle float64) Quat {
	half := angle / 2
	return Quat{W: math.Cos(half), Z: math.Sin(half)}
}

// AngleZ extracts the rotation around the Z axis.
func (q Quat) AngleZ() float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Identity()
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}
