// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package xmath implements the math primitives and relation-chain
// algebra used to resolve tracked poses across a tree of spaces
// (spec.md §4.1).
package xmath

import "math"

// Vec3 is a 3-component vector of float32.
type Vec3 [3]float32

// Add sets v to contain l + r.
func (v *Vec3) Add(l, r *Vec3) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *Vec3) Sub(l, r *Vec3) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s⋅w.
func (v *Vec3) Scale(s float32, w *Vec3) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v⋅w.
func (v *Vec3) Dot(w *Vec3) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *Vec3) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Norm sets v to contain w normalized.
func (v *Vec3) Norm(w *Vec3) { v.Scale(1/w.Len(), w) }

// Cross sets v to contain l×r.
func (v *Vec3) Cross(l, r *Vec3) {
	*v = Vec3{
		l[1]*r[2] - l[2]*r[1],
		l[2]*r[0] - l[0]*r[2],
		l[0]*r[1] - l[1]*r[0],
	}
}

// Rotate sets v to contain w rotated by unit quaternion q.
func (v *Vec3) Rotate(q *Quat, w *Vec3) {
	// t = 2 * cross(q.V, w); result = w + q.R*t + cross(q.V, t)
	var t, u Vec3
	t.Cross(&q.V, w)
	t.Scale(2, &t)
	u.Scale(q.R, &t)
	var c Vec3
	c.Cross(&q.V, &t)
	v.Add(w, &u)
	v.Add(v, &c)
}

// Vec4 is a 4-component vector of float32.
type Vec4 [4]float32

// Add sets v to contain l + r.
func (v *Vec4) Add(l, r *Vec4) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *Vec4) Sub(l, r *Vec4) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s⋅w.
func (v *Vec4) Scale(s float32, w *Vec4) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v⋅w.
func (v *Vec4) Dot(w *Vec4) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Mul sets v to contain m⋅w.
func (v *Vec4) Mul(m *Mat4, w *Vec4) {
	*v = Vec4{}
	for i := range v {
		for j := range v {
			v[i] += m[j][i] * w[j]
		}
	}
}
