// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package compositor

import (
	"errors"

	"xrcompositor/driver"
	"xrcompositor/render"
)

// ErrViewCountMismatch is returned when a FrameInput names more
// views than the Compositor has scratch sets for.
var ErrViewCountMismatch = errors.New(compPrefix + "view count exceeds configured scratch sets")

// buildDispatchData assembles one frame's render.DispatchData from
// the application-facing FrameInput, filling in the scratch images
// (step 6's "select scratch indices") and target image the
// application itself has no business naming.
func (c *Compositor) buildDispatchData(in FrameInput, targetIndex int) (render.DispatchData, error) {
	if len(in.Views) > len(c.scr) {
		return render.DispatchData{}, ErrViewCountMismatch
	}

	views := make([]render.View, len(in.Views))
	for i := range in.Views {
		vi := &in.Views[i]
		extent := viewportExtent(vi.TargetViewportRect)
		if err := c.scr[i].Ensure(extent); err != nil {
			return render.DispatchData{}, err
		}
		_, srgb, unorm, err := c.scr[i].Get()
		if err != nil {
			return render.DispatchData{}, err
		}

		v := render.View{
			WorldPose: vi.WorldPose,
			EyePose:   vi.EyePose,
			FOV:       vi.FOV,

			SRGBView:      srgb,
			LayerViewport: viewportFromExtent(extent),
			LayerNormRect: render.UVToTangent(vi.FOV),

			TargetViewportRect: vi.TargetViewportRect,
			TargetPreTransform: vi.TargetPreTransform,

			Compute: render.ViewCompute{UnormView: unorm},
			Layers:  vi.Layers,
		}
		// VertexRot corrects for head movement between the pose the
		// application rendered against (WorldPose) and the pose
		// known at distortion time (EyePose); with no movement the
		// two matrices cancel out to identity.
		v.Graphics.VertexRot = render.TimewarpMatrix(vi.WorldPose, vi.FOV, vi.EyePose)
		views[i] = v
	}

	for i := range c.scr[:len(in.Views)] {
		c.scr[i].Done()
	}

	return render.DispatchData{
		Views:      views,
		Target:     c.targ.Handle(targetIndex),
		TargetView: c.targ.View(targetIndex),
		FastPath:   in.FastPath,
		DoTimewarp: in.DoTimewarp,
	}, nil
}

// viewportExtent converts a target viewport rect into the 2D image
// size the view's scratch image must cover.
func viewportExtent(vp driver.Viewport) driver.Dim3D {
	return driver.Dim3D{Width: int(vp.Width), Height: int(vp.Height), Depth: 1}
}

// viewportFromExtent builds the full-extent viewport the layer
// squash sub-pass renders into.
func viewportFromExtent(extent driver.Dim3D) driver.Viewport {
	return driver.Viewport{
		Width:  float32(extent.Width),
		Height: float32(extent.Height),
		Zfar:   1,
	}
}
