// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import (
	"math"
	"testing"

	"xrcompositor/xmath"
)

func approxEq(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func approxRect(t *testing.T, got, want TangentRect) {
	t.Helper()
	if !approxEq(got.X, want.X) || !approxEq(got.Y, want.Y) ||
		!approxEq(got.W, want.W) || !approxEq(got.H, want.H) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestUVToTangent45 covers S1.
func TestUVToTangent45(t *testing.T) {
	const pi4 = math.Pi / 4
	got := UVToTangent(FOV{Left: -pi4, Right: pi4, Up: pi4, Down: -pi4})
	approxRect(t, got, TangentRect{X: -1, Y: -1, W: 2, H: 2})
}

// TestUVToTangent45VFlip covers S2.
func TestUVToTangent45VFlip(t *testing.T) {
	const pi4 = math.Pi / 4
	got := UVToTangent(FOV{Left: -pi4, Right: pi4, Up: -pi4, Down: pi4})
	approxRect(t, got, TangentRect{X: -1, Y: 1, W: 2, H: -2})
}

// TestUVToTangent45HFlip covers S3.
func TestUVToTangent45HFlip(t *testing.T) {
	const pi4 = math.Pi / 4
	got := UVToTangent(FOV{Left: pi4, Right: -pi4, Up: pi4, Down: -pi4})
	approxRect(t, got, TangentRect{X: 1, Y: -1, W: -2, H: 2})
}

// TestUVToTangent30 covers S4.
func TestUVToTangent30(t *testing.T) {
	const pi6 = math.Pi / 6
	t30 := float32(math.Tan(pi6))
	got := UVToTangent(FOV{Left: -pi6, Right: pi6, Up: pi6, Down: -pi6})
	approxRect(t, got, TangentRect{X: -t30, Y: -t30, W: 2 * t30, H: 2 * t30})
}

func TestTimewarpMatrixIdentityWhenPosesMatch(t *testing.T) {
	const pi4 = math.Pi / 4
	fov := FOV{Left: -pi4, Right: pi4, Up: pi4, Down: -pi4}
	pose := xmath.Pose{Orientation: xmath.QuatIdent}
	m := TimewarpMatrix(pose, fov, pose)

	// With matching poses, inv(R_new)*R_src collapses to identity, so
	// the result is exactly P_src: diagonal (1, 1, a33), translation
	// a43 in the z column, and zero everywhere else relevant to UV
	// sampling at the view center.
	if !approxEq(m[0][0], 1) || !approxEq(m[1][1], 1) {
		t.Errorf("TimewarpMatrix diag = (%v, %v), want (1, 1)", m[0][0], m[1][1])
	}
	if !approxEq(m[0][2], 0) || !approxEq(m[1][2], 0) {
		t.Errorf("TimewarpMatrix off-axis terms = (%v, %v), want (0, 0) for a centered FOV", m[0][2], m[1][2])
	}
}
