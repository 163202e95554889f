// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package xmath

import "testing"

func validRelation() Relation {
	return Relation{
		Pose:  Pose{Orientation: QuatIdent, Position: Vec3{1, 2, 3}},
		Flags: OrientationValid | PositionValid,
	}
}

func TestResolveDeterministic(t *testing.T) {
	var c1, c2 Chain
	r := validRelation()
	c1.Push(r)
	c1.Push(r)
	c2.Push(r)
	c2.Push(r)
	res1 := c1.Resolve()
	res2 := c2.Resolve()
	if res1 != res2 {
		t.Errorf("Resolve not deterministic: %+v != %+v", res1, res2)
	}
}

func TestResolveMissingBothInvalid(t *testing.T) {
	var c Chain
	c.Push(validRelation())
	c.Push(Relation{}) // neither orientation- nor position-valid
	c.Push(validRelation())
	res := c.Resolve()
	if res != (Relation{}) {
		t.Errorf("Resolve = %+v, want cleared relation", res)
	}
}

func TestResolveIdentityUnderComposition(t *testing.T) {
	ident := Relation{Pose: PoseIdent, Flags: OrientationValid | PositionValid}

	var c1 Chain
	c1.Push(validRelation())
	before := c1.Resolve()

	var c2 Chain
	c2.Push(validRelation())
	c2.Push(ident)
	after := c2.Resolve()

	if before != after {
		t.Errorf("pushing identity changed the result: before=%+v after=%+v", before, after)
	}
}

// TestResolveThreeDoFUplift covers S5: a step with orientation but
// no position composed with a step with position but no
// orientation yields position-valid output with orientation left
// invalid.
func TestResolveThreeDoFUplift(t *testing.T) {
	a := Relation{
		Pose:  Pose{Orientation: QuatIdent},
		Flags: OrientationValid,
	}
	b := Relation{
		Pose:  Pose{Position: Vec3{1, 0, 0}},
		Flags: PositionValid,
	}
	var c Chain
	c.Push(a)
	c.Push(b)
	res := c.Resolve()

	if res.Flags&PositionValid == 0 {
		t.Error("PositionValid not set in resolved flags")
	}
	if res.Flags&OrientationValid != 0 {
		t.Error("OrientationValid should not survive the AND (b lacks it)")
	}
	if res.Pose.Position != (Vec3{1, 0, 0}) {
		t.Errorf("Position = %v, want (1,0,0)", res.Pose.Position)
	}
}

func TestChainPushPastCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Push past capacity did not panic")
		}
	}()
	var c Chain
	for i := 0; i < ChainCapacity+1; i++ {
		c.Push(validRelation())
	}
}

func TestQuatToMat4Identity(t *testing.T) {
	var m Mat4
	QuatIdent.ToMat4(&m)
	var id Mat4
	id.I()
	if m != id {
		t.Errorf("ToMat4(identity) = %v, want identity matrix", m)
	}
}

func TestVec3RotateIdentity(t *testing.T) {
	w := Vec3{1, 2, 3}
	var out Vec3
	out.Rotate(&QuatIdent, &w)
	if out != w {
		t.Errorf("Rotate by identity = %v, want %v", out, w)
	}
}
