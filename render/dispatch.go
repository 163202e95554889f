// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import (
	"errors"

	"golang.org/x/sync/errgroup"

	"xrcompositor/driver"
	"xrcompositor/xmath"
)

const renderPrefix = "render: "

// ErrTooManyLayers is returned when a view's submitted layers exceed
// MaxLayers (spec.md §4.5, "bounded at 16 layers").
var ErrTooManyLayers = errors.New(renderPrefix + "view exceeds the 16-layer bound")

// ViewGraphics holds the per-view resources needed by the graphics
// sub-pass recorders (pipeline descriptor tables, vertex rotation
// for timewarp).
type ViewGraphics struct {
	TargetResources driver.DescTable
	VertexRot       xmath.Mat4
}

// ViewCompute holds the per-view resources needed by the compute
// sub-pass recorders.
type ViewCompute struct {
	UnormView driver.ImageView
}

// View is one eye's slice of a DispatchData (spec.md §4.5, "Input
// (both paths)").
type View struct {
	WorldPose xmath.Pose
	EyePose   xmath.Pose
	FOV       FOV

	ScratchImage  driver.Image
	SRGBView      driver.ImageView
	LayerViewport driver.Viewport
	LayerNormRect TangentRect

	TargetViewportRect driver.Viewport
	TargetPreTransform xmath.Mat4

	Graphics ViewGraphics
	Compute  ViewCompute

	Layers []Layer
}

// DispatchData is the complete input to one frame's layer/distortion
// render, shared by both the fast and the compute/graphics slow
// paths (spec.md §4.5).
type DispatchData struct {
	Views []View

	Target     driver.Image
	TargetView driver.ImageView

	FastPath    bool
	DoTimewarp  bool
}

// squashedView is the per-view, per-eye bounded layer list produced
// by sub-pass A.
type squashedView struct {
	view   *View
	layers []Layer
}

// squash appends every layer of v visible to eye index eye into a
// bounded list, in the fixed kind order spec.md §4.5 requires
// (STEREO_PROJECTION, CYLINDER, EQUIRECT2, QUAD, CUBE).
func squash(v *View, eye int) (squashedView, error) {
	order := [...]LayerKind{StereoProjection, Cylinder, Equirect2, Quad, Cube}
	sv := squashedView{view: v}
	for _, kind := range order {
		for i := range v.Layers {
			l := &v.Layers[i]
			if l.Kind != kind || !l.visibleTo(eye) {
				continue
			}
			if len(sv.layers) >= MaxLayers {
				return sv, ErrTooManyLayers
			}
			sv.layers = append(sv.layers, *l)
		}
	}
	return sv, nil
}

// usesFastPath reports whether d qualifies for the fast path: a
// single stereo-projection layer and no other submitted layer
// (spec.md §4.5, "Fast path").
func usesFastPath(d *DispatchData) bool {
	if !d.FastPath {
		return false
	}
	for _, v := range d.Views {
		if len(v.Layers) != 1 || v.Layers[0].Kind != StereoProjection {
			return false
		}
	}
	return true
}

// Dispatch records the frame's layer squash and distortion
// sub-passes (or the fast-path single pass) against cb, choosing the
// graphics or compute recorder per useCompute.
func Dispatch(cb driver.CmdBuffer, res Resources, d *DispatchData, useCompute bool) error {
	if usesFastPath(d) {
		if useCompute {
			return dispatchFastCompute(cb, res, d)
		}
		return dispatchFastGraphics(cb, res, d)
	}
	if useCompute {
		return dispatchSlowCompute(cb, res, d)
	}
	return dispatchSlowGraphics(cb, res, d)
}

// squashAllViews runs sub-pass A for every view concurrently; it has
// no GPU-side effect on its own, only CPU-side layer-list assembly,
// so fanning it out across goroutines is safe (spec.md §4.5 and the
// compute path's per-view dispatch).
func squashAllViews(d *DispatchData) ([]squashedView, error) {
	out := make([]squashedView, len(d.Views))
	var g errgroup.Group
	for i := range d.Views {
		i := i
		g.Go(func() error {
			sv, err := squash(&d.Views[i], i)
			if err != nil {
				return err
			}
			out[i] = sv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
