// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import "xrcompositor/driver"

// dispatchFastGraphics runs the fast path: a single distortion+
// timewarp pass sampling directly from the client's projection
// images, skipping layer squash entirely (spec.md §4.5, "Fast
// path").
func dispatchFastGraphics(cb driver.CmdBuffer, res Resources, d *DispatchData) error {
	pass, fb := res.TargetFramebuf(d)
	cb.BeginPass(pass, fb, []driver.ClearValue{{}})
	pl := res.MeshPipeline(d.DoTimewarp)
	cb.SetPipeline(pl)
	for _, v := range d.Views {
		recordDistortion(cb, &v)
	}
	cb.EndPass()
	return nil
}

func dispatchFastCompute(cb driver.CmdBuffer, res Resources, d *DispatchData) error {
	return dispatchSlowCompute(cb, res, d)
}

// dispatchSlowGraphics runs sub-pass A (layer squash, one render
// pass per view's scratch image) followed by sub-pass B (distortion,
// one render pass against the target), per spec.md §4.5's "Graphics
// path": scratch images transition via the render pass's final
// layout, with one explicit barrier from COLOR_ATTACHMENT to
// SHADER_READ_ONLY between the two sub-passes.
func dispatchSlowGraphics(cb driver.CmdBuffer, res Resources, d *DispatchData) error {
	squashed, err := squashAllViews(d)
	if err != nil {
		return err
	}

	for i := range squashed {
		sv := &squashed[i]
		pass, fb := res.ScratchFramebuf(sv.view)
		cb.BeginPass(pass, fb, []driver.ClearValue{{}})
		recordLayerSquash(cb, res, sv)
		cb.EndPass()
	}

	barriers := make([]driver.Transition, len(d.Views))
	for i := range d.Views {
		barriers[i] = driver.Transition{
			Barrier: driver.Barrier{
				SyncAfter:   driver.SAll,
				AccessAfter: driver.AShaderRead,
			},
			LayoutBefore: driver.LColorTarget,
			LayoutAfter:  driver.LShaderRead,
			IView:        d.Views[i].SRGBView,
		}
	}
	cb.Transition(barriers)

	pass, fb := res.TargetFramebuf(d)
	cb.BeginPass(pass, fb, []driver.ClearValue{{}})
	for i := range d.Views {
		recordDistortion(cb, &d.Views[i])
	}
	cb.EndPass()
	return nil
}

// recordLayerSquash issues one draw per squashed-in layer, binding
// the graphics pipeline matching its kind and alpha mode (spec.md
// §4.5, sub-pass A).
func recordLayerSquash(cb driver.CmdBuffer, res Resources, sv *squashedView) {
	cb.SetViewport([]driver.Viewport{sv.view.LayerViewport})
	for _, l := range sv.layers {
		pl := res.LayerPipeline(l.Kind, !l.Flags.has(UnpremultipliedAlpha), false)
		cb.SetPipeline(pl)
		if sv.view.Graphics.TargetResources != nil {
			cb.SetDescTableGraph(sv.view.Graphics.TargetResources, 0, nil)
		}
		cb.Draw(4, 1, 0, 0)
	}
}

// recordDistortion issues the distortion-mesh draw for one view.
func recordDistortion(cb driver.CmdBuffer, v *View) {
	cb.SetViewport([]driver.Viewport{v.TargetViewportRect})
	if v.Graphics.TargetResources != nil {
		cb.SetDescTableGraph(v.Graphics.TargetResources, 0, nil)
	}
	cb.Draw(4, 1, 0, 0)
}

// has reports whether f contains every bit of want.
func (f LayerFlags) has(want LayerFlags) bool { return f&want == want }
