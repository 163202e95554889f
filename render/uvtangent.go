// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package render implements the layer squashing and distortion
// renderer: the graphics and compute paths that consume a list of
// layers and an HMD pose and produce the final, timewarped target
// image (spec.md §4.5).
package render

import "math"

// FOV is the four half-angles (in radians) defining a view
// frustum. Angles are signed and must be preserved end to end
// (spec.md §3).
type FOV struct {
	Left, Right, Up, Down float32
}

// TangentRect is a rectangle in the tangent-plane coordinate system
// that UVToTangent maps a view's FOV into.
type TangentRect struct {
	X, Y, W, H float32
}

// UVToTangent computes the (u, v) → tangent-plane(x, y) transform
// for a view with the given FOV (spec.md §4.5).
func UVToTangent(fov FOV) TangentRect {
	tl := float32(math.Tan(float64(fov.Left)))
	tr := float32(math.Tan(float64(fov.Right)))
	tu := float32(math.Tan(float64(fov.Up)))
	td := float32(math.Tan(float64(fov.Down)))

	w := tr - tl
	h := tu - td
	ox := ((tr + tl) - w) / 2
	oy := (-(tu + td) - h) / 2
	return TangentRect{X: ox, Y: oy, W: w, H: h}
}
