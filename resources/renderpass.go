// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import "xrcompositor/driver"

// newScratchPass creates sub-pass A's single-color-attachment render
// pass. Its attachment is stored so the graphics path's transition
// to SHADER_READ_ONLY, performed explicitly between sub-passes A and
// B, sees a defined starting layout (spec.md §4.5, "Graphics path").
func newScratchPass(gpu driver.GPU, colorFmt driver.PixelFmt) (driver.RenderPass, error) {
	att := []driver.Attachment{{
		Format:  colorFmt,
		Samples: 1,
		Load:    [2]driver.LoadOp{driver.LClear, driver.LDontCare},
		Store:   [2]driver.StoreOp{driver.SStore, driver.SDontCare},
	}}
	sub := []driver.Subpass{{Color: []int{0}, DS: -1}}
	return gpu.NewRenderPass(att, sub)
}

// newTargetPass creates sub-pass B's single-color-attachment render
// pass against the frame's target image.
func newTargetPass(gpu driver.GPU, colorFmt driver.PixelFmt) (driver.RenderPass, error) {
	att := []driver.Attachment{{
		Format:  colorFmt,
		Samples: 1,
		Load:    [2]driver.LoadOp{driver.LClear, driver.LDontCare},
		Store:   [2]driver.StoreOp{driver.SStore, driver.SDontCare},
	}}
	sub := []driver.Subpass{{Color: []int{0}, DS: -1}}
	return gpu.NewRenderPass(att, sub)
}
