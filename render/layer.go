// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import (
	"xrcompositor/driver"
	"xrcompositor/xmath"
)

// MaxLayers is the bound on the number of entries squashed into a
// single sub-pass A run (spec.md §4.5, "bounded at 16 layers").
const MaxLayers = 16

// LayerKind identifies the shape of a submitted layer.
type LayerKind int

const (
	StereoProjection LayerKind = iota
	Cylinder
	Equirect2
	Quad
	Cube
)

// LayerFlags qualifies how a layer is sampled and composited.
type LayerFlags uint8

const (
	FlipY LayerFlags = 1 << iota
	UnpremultipliedAlpha
	ViewSpace
	BlendTextureSourceAlpha
	EyeVisibilityLeft
	EyeVisibilityRight
)

// CylinderParams are the CYLINDER layer's intrinsics. A Radius of 0
// or +Inf is treated as a unit sphere centered on the eye, i.e. a
// rotation-only sample (spec.md §4.5).
type CylinderParams struct {
	Radius        float32
	CentralAngle  float32
	AspectRatio   float32
}

// Equirect2Params are the EQUIRECT2 layer's intrinsics.
type Equirect2Params struct {
	Radius                       float32
	CentralHorizontalAngle       float32
	UpperVerticalAngle           float32
	LowerVerticalAngle           float32
}

// QuadParams are the QUAD layer's intrinsics.
type QuadParams struct {
	Width, Height float32
}

// Layer is one submitted compositor layer, a tagged union over the
// kind-specific intrinsics (spec.md §4.5, sub-pass A).
type Layer struct {
	Kind  LayerKind
	Flags LayerFlags
	Pose  xmath.Pose

	View driver.ImageView

	Cylinder  CylinderParams
	Equirect2 Equirect2Params
	Quad      QuadParams

	Premultiplied bool
}

// visibleTo reports whether l should be squashed into the given eye
// index (0 = left, 1 = right) per its eye-visibility flags. A layer
// with neither visibility flag set is visible to both eyes.
func (l *Layer) visibleTo(eye int) bool {
	both := l.Flags&(EyeVisibilityLeft|EyeVisibilityRight) == 0
	if both {
		return true
	}
	if eye == 0 {
		return l.Flags&EyeVisibilityLeft != 0
	}
	return l.Flags&EyeVisibilityRight != 0
}

// blendFactors returns the (src, dst) color blend factors for l,
// selected by premultiplied vs unpremultiplied alpha (spec.md §4.5:
// "source blend factor is 1 for premultiplied and SRC_ALPHA for
// unpremultiplied; destination is 1-SRC_ALPHA for color and 1 for
// alpha").
func (l *Layer) blendFactors() (src, dstColor, dstAlpha driver.BlendFac) {
	if l.Premultiplied {
		return driver.BOne, driver.BInvSrcAlpha, driver.BOne
	}
	return driver.BSrcAlpha, driver.BInvSrcAlpha, driver.BOne
}
