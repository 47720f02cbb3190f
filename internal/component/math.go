package component

import "math"

// Vec3 is a position, direction or scale.
type Vec3 [3]float32

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// Quat is a rotation stored as x, y, z, w.
type Quat [4]float32

// IdentityQuat is the no-op rotation.
var IdentityQuat = Quat{0, 0, 0, 1}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q[0], q[1], q[2]}
	w := q[3]
	// v' = 2(u.v)u + (w^2 - u.u)v + 2w(u x v)
	dotUV := u[0]*v[0] + u[1]*v[1] + u[2]*v[2]
	dotUU := u[0]*u[0] + u[1]*u[1] + u[2]*u[2]
	cross := Vec3{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	return u.Scale(2 * dotUV).Add(v.Scale(w*w - dotUU)).Add(cross.Scale(2 * w))
}

// Mul composes q then r is applied after q: (q*r).Rotate(v) == q.Rotate(r.Rotate(v)).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		q[3]*r[0] + q[0]*r[3] + q[1]*r[2] - q[2]*r[1],
		q[3]*r[1] - q[0]*r[2] + q[1]*r[3] + q[2]*r[0],
		q[3]*r[2] + q[0]*r[1] - q[1]*r[0] + q[2]*r[3],
		q[3]*r[3] - q[0]*r[0] - q[1]*r[1] - q[2]*r[2],
	}
}
