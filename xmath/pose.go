// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package xmath

// Pose is a unit quaternion orientation plus a 3-vector position.
// The zero value is not the identity pose; use PoseIdent.
type Pose struct {
	Orientation Quat
	Position    Vec3
}

// PoseIdent is the identity pose: identity orientation, zero
// position.
var PoseIdent = Pose{Orientation: QuatIdent}

// Compose sets p to contain b applied to a: rotate a's position by
// b's orientation, translate by b's position, and multiply the
// orientations b⋅a (so that a is expressed in b's base space).
func (p *Pose) Compose(a, b *Pose) {
	var pos Vec3
	pos.Rotate(&b.Orientation, &a.Position)
	pos.Add(&pos, &b.Position)
	var ori Quat
	ori.Mul(&b.Orientation, &a.Orientation)
	ori.Normalize(&ori)
	p.Position = pos
	p.Orientation = ori
}
