// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import "xrcompositor/driver"

// Resources is the set of long-lived, device-owned objects the
// dispatch recorders draw from: render passes, pipelines and
// framebuffers (spec.md §4.6). It is implemented by the resources
// package; render depends only on this interface to avoid an import
// cycle between the two.
type Resources interface {
	// LayerPipeline returns the graphics pipeline for squashing one
	// layer of the given kind, selected by premultiplied-alpha state
	// (spec.md §4.6: "layer kind × premultiplied/unpremultiplied");
	// timewarp does not select a separate layer pipeline.
	LayerPipeline(kind LayerKind, premultiplied, timewarp bool) driver.Pipeline

	// MeshPipeline returns the graphics pipeline for the distortion
	// mesh pass, selected by timewarp state.
	MeshPipeline(timewarp bool) driver.Pipeline

	// ComputeClearPipeline returns the compute pipeline that clears
	// a scratch image before layer squash.
	ComputeClearPipeline() driver.Pipeline

	// ComputeLayerPipeline returns the compute pipeline for layer
	// squash, selected by timewarp state.
	ComputeLayerPipeline(timewarp bool) driver.Pipeline

	// ComputeDistortionPipeline returns the compute pipeline for
	// distortion, selected by timewarp state.
	ComputeDistortionPipeline(timewarp bool) driver.Pipeline

	// ScratchFramebuf returns the framebuffer bound to v's scratch
	// image, for the graphics path's sub-pass A.
	ScratchFramebuf(v *View) (driver.RenderPass, driver.Framebuf)

	// TargetFramebuf returns the framebuffer bound to the frame's
	// target image, for the graphics path's sub-pass B.
	TargetFramebuf(d *DispatchData) (driver.RenderPass, driver.Framebuf)
}
