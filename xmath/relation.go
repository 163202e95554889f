// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package xmath

// RelationFlags is a bitmask of a Relation's per-field validity and
// tracking state.
type RelationFlags uint8

const (
	OrientationValid RelationFlags = 1 << iota
	PositionValid
	LinearVelValid
	AngularVelValid
	OrientationTracked
	PositionTracked
)

// Relation is a pose plus optional linear and angular velocity,
// qualified by Flags. The zero value is the cleared relation: no
// flags set, pose/velocities all zero.
type Relation struct {
	Pose        Pose
	LinearVel   Vec3
	AngularVel  Vec3
	Flags       RelationFlags
}

// has reports whether every flag in want is set in r.Flags.
func (r *Relation) has(want RelationFlags) bool { return r.Flags&want == want }

// compose returns the relation representing a expressed in b's
// base space, i.e. the path "a, then b" folded into one step
// (spec.md §4.1).
func compose(a, b *Relation) Relation {
	// The 3-DoF uplift: a side with orientation-valid but not
	// position-valid is promoted to position-valid (position
	// treated as zero) before flags are ANDed.
	af, bf := a.Flags, b.Flags
	if af&OrientationValid != 0 && af&PositionValid == 0 {
		af |= PositionValid
	}
	if bf&OrientationValid != 0 && bf&PositionValid == 0 {
		bf |= PositionValid
	}

	aOri, bOri := a.Pose.Orientation, b.Pose.Orientation
	if af&OrientationValid == 0 {
		aOri = QuatIdent
	}
	if bf&OrientationValid == 0 {
		bOri = QuatIdent
	}
	aPos, bPos := a.Pose.Position, b.Pose.Position
	if af&PositionValid == 0 {
		aPos = Vec3{}
	}
	if bf&PositionValid == 0 {
		bPos = Vec3{}
	}

	ap := Pose{Orientation: aOri, Position: aPos}
	bp := Pose{Orientation: bOri, Position: bPos}
	var out Relation
	out.Pose.Compose(&ap, &bp)

	out.Flags = af & bf &^ (LinearVelValid | AngularVelValid)

	if af&LinearVelValid != 0 && bf&LinearVelValid != 0 {
		var lv Vec3
		lv.Rotate(&bOri, &a.LinearVel)
		lv.Add(&lv, &b.LinearVel)
		if af&AngularVelValid != 0 && bf&AngularVelValid != 0 {
			var rp, lever Vec3
			rp.Rotate(&bOri, &aPos)
			lever.Cross(&b.AngularVel, &rp)
			lv.Add(&lv, &lever)
		}
		out.LinearVel = lv
		out.Flags |= LinearVelValid
	}

	if af&AngularVelValid != 0 && bf&AngularVelValid != 0 {
		var av Vec3
		av.Rotate(&bOri, &a.AngularVel)
		av.Add(&av, &b.AngularVel)
		out.AngularVel = av
		out.Flags |= AngularVelValid
	}

	return out
}
