// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import (
	"golang.org/x/sync/errgroup"

	"xrcompositor/driver"
)

// dispatchSlowCompute runs sub-pass A and B as compute dispatches
// sampling from SRGB views and writing to UNORM storage views
// (spec.md §4.5, "Compute path"). The driver has no distinct GENERAL
// layout; LCommon is used for the image-general state the spec
// calls GENERAL, since it is the only layout in this driver not tied
// to a specific access pattern.
func dispatchSlowCompute(cb driver.CmdBuffer, res Resources, d *DispatchData) error {
	squashed, err := squashAllViews(d)
	if err != nil {
		return err
	}

	squashBarriers := make([]driver.Transition, len(d.Views))
	for i := range d.Views {
		squashBarriers[i] = scratchBarrier(&d.Views[i], driver.LUndefined, driver.LCommon)
	}
	cb.Transition(squashBarriers)

	cb.BeginWork(false)
	if err := recordLayerSquashCompute(cb, res, squashed); err != nil {
		return err
	}
	cb.EndWork()

	squashedDone := make([]driver.Transition, len(d.Views))
	for i := range d.Views {
		squashedDone[i] = scratchBarrier(&d.Views[i], driver.LCommon, driver.LShaderRead)
	}
	cb.Transition(squashedDone)

	cb.Transition([]driver.Transition{{
		Barrier:      driver.Barrier{SyncAfter: driver.SAll, AccessAfter: driver.AShaderWrite},
		LayoutBefore: driver.LUndefined,
		LayoutAfter:  driver.LCommon,
		IView:        d.TargetView,
	}})

	cb.BeginWork(false)
	cb.SetPipeline(res.ComputeDistortionPipeline(d.DoTimewarp))
	for i := range d.Views {
		v := &d.Views[i]
		if v.Compute.UnormView != nil {
			cb.SetDescTableComp(v.Graphics.TargetResources, 0, nil)
		}
		g := dispatchGroupsForViewport(v.TargetViewportRect)
		cb.Dispatch(g[0], g[1], g[2])
	}
	cb.EndWork()

	cb.Transition([]driver.Transition{{
		Barrier:      driver.Barrier{SyncAfter: driver.SAll, AccessAfter: driver.AShaderRead},
		LayoutBefore: driver.LCommon,
		LayoutAfter:  driver.LPresent,
		IView:        d.TargetView,
	}})
	return nil
}

// recordLayerSquashCompute dispatches the layer-squash compute
// shader once per view; the per-view command recording is
// independent so it fans out with errgroup before being re-issued in
// submission order onto the single command buffer (the driver's
// CmdBuffer is not safe for concurrent recording, so the goroutines
// only prepare the per-view dispatch parameters concurrently and the
// actual cb.Dispatch calls happen sequentially afterward).
func recordLayerSquashCompute(cb driver.CmdBuffer, res Resources, squashed []squashedView) error {
	groups := make([][3]int, len(squashed))
	var g errgroup.Group
	for i := range squashed {
		i := i
		g.Go(func() error {
			groups[i] = dispatchGroupsForSquash(&squashed[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cb.SetPipeline(res.ComputeLayerPipeline(false))
	for i, sv := range squashed {
		if sv.view.Graphics.TargetResources != nil {
			cb.SetDescTableComp(sv.view.Graphics.TargetResources, 0, nil)
		}
		gx, gy, gz := groups[i][0], groups[i][1], groups[i][2]
		cb.Dispatch(gx, gy, gz)
	}
	return nil
}

const computeGroupSize = 8

func dispatchGroupsForSquash(sv *squashedView) [3]int {
	return dispatchGroupsForViewport(sv.view.LayerViewport)
}

func dispatchGroupsForViewport(vp driver.Viewport) [3]int {
	gx := (int(vp.Width) + computeGroupSize - 1) / computeGroupSize
	gy := (int(vp.Height) + computeGroupSize - 1) / computeGroupSize
	return [3]int{gx, gy, 1}
}

func scratchBarrier(v *View, before, after driver.Layout) driver.Transition {
	return driver.Transition{
		Barrier: driver.Barrier{
			SyncAfter:   driver.SAll,
			AccessAfter: driver.AShaderWrite,
		},
		LayoutBefore: before,
		LayoutAfter:  after,
		IView:        v.SRGBView,
	}
}
