// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import "xrcompositor/xmath"

const (
	timewarpNear = 0.5
	timewarpFar  = 1.5
)

// projMatrix builds the simplified projection P_src described in
// spec.md §4.5 for a view with the given tangent-plane rectangle.
func projMatrix(rect TangentRect) xmath.Mat4 {
	var m xmath.Mat4
	m.I()
	m[0][0] = 2 / rect.W
	m[1][1] = 2 / rect.H
	m[0][2] = (2*rect.X + rect.W) / rect.W
	m[1][2] = -(2*rect.Y + rect.H) / rect.H
	m[2][2] = -timewarpFar / (timewarpFar - timewarpNear)
	m[2][3] = -(timewarpFar * timewarpNear) / (timewarpFar - timewarpNear)
	return m
}

// TimewarpMatrix computes the reprojection matrix that corrects a
// frame rendered against (srcPose, srcFOV) for the head motion that
// occurred by the time it is scanned out at newPose (spec.md §4.5,
// "Timewarp matrix").
func TimewarpMatrix(srcPose xmath.Pose, srcFOV FOV, newPose xmath.Pose) xmath.Mat4 {
	pSrc := projMatrix(UVToTangent(srcFOV))

	var rSrc, rNew, rNewInv xmath.Mat4
	srcOri := srcPose.Orientation
	newOri := newPose.Orientation
	srcOri.ToMat4(&rSrc)
	newOri.ToMat4(&rNew)
	rNewInv.Invert(&rNew)

	var tmp, out xmath.Mat4
	tmp.Mul(&rNewInv, &rSrc)
	out.Mul(&pSrc, &tmp)
	return out
}
