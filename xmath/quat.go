// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package xmath

import "math"

// Quat is a quaternion of float32, V the imaginary (x, y, z)
// components and R the real component.
type Quat struct {
	V Vec3
	R float32
}

// QuatIdent is the identity quaternion.
var QuatIdent = Quat{V: Vec3{}, R: 1}

// Mul sets q to contain l⋅r.
func (q *Quat) Mul(l, r *Quat) {
	var v, w Vec3
	v.Scale(r.R, &l.V)
	w.Scale(l.R, &r.V)
	v.Add(&v, &w)
	w.Cross(&l.V, &r.V)
	d := l.V.Dot(&r.V)
	q.V.Add(&v, &w)
	q.R = l.R*r.R - d
}

// Conjugate sets q to contain the conjugate of p (i.e., the
// inverse, assuming p is a unit quaternion).
func (q *Quat) Conjugate(p *Quat) {
	q.V.Scale(-1, &p.V)
	q.R = p.R
}

// Normalize sets q to contain p normalized to unit length. The
// relation-chain fold renormalizes its orientation after every
// compose step (spec.md §4.1) since accumulated floating-point
// error would otherwise drift the result off the unit sphere.
func (q *Quat) Normalize(p *Quat) {
	l := float32(math.Sqrt(float64(p.V.Dot(&p.V) + p.R*p.R)))
	if l == 0 {
		*q = QuatIdent
		return
	}
	il := 1 / l
	q.V.Scale(il, &p.V)
	q.R = p.R * il
}

// ToMat4 sets m to the rotation-only model matrix equivalent to q.
// It assumes q is a unit quaternion.
func (q *Quat) ToMat4(m *Mat4) {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	*m = Mat4{
		{1 - (yy + zz), xy + wz, xz - wy, 0},
		{xy - wz, 1 - (xx + zz), yz + wx, 0},
		{xz + wy, yz - wx, 1 - (xx + yy), 0},
		{0, 0, 0, 1},
	}
}
