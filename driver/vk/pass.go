// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// renderPass implements driver.RenderPass.
type renderPass struct {
	d    *Driver
	pass vk.RenderPass
	// Aspect of each attachment, needed when clearing.
	aspect []vk.ImageAspectFlagBits
	// Number of color attachments used by each subpass.
	ncolor []int
}

// NewRenderPass creates a new render pass.
func (d *Driver) NewRenderPass(att []driver.Attachment, sub []driver.Subpass) (driver.RenderPass, error) {
	attDescs := make([]vk.AttachmentDescription, len(att))
	for i := range attDescs {
		attDescs[i] = vk.AttachmentDescription{
			Format:         pixelFmt(att[i].Format),
			Samples:        sampleCount(att[i].Samples),
			LoadOp:         loadOp(att[i].Load[0]),
			StoreOp:        storeOp(att[i].Store[0]),
			StencilLoadOp:  loadOp(att[i].Load[1]),
			StencilStoreOp: storeOp(att[i].Store[1]),
			InitialLayout:  vk.ImageLayoutGeneral,
			FinalLayout:    vk.ImageLayoutGeneral,
		}
	}

	subDescs := make([]vk.SubpassDescription, len(sub))
	// Keep reference slices alive until vk.CreateRenderPass runs.
	var refs [][]vk.AttachmentReference
	var preserves [][]uint32

	if len(att) > 0 {
		for i := range sub {
			noPreserve := make([]bool, len(att))
			var color []vk.AttachmentReference
			for _, k := range sub[i].Color {
				color = append(color, vk.AttachmentReference{Attachment: uint32(k), Layout: vk.ImageLayoutColorAttachmentOptimal})
				noPreserve[k] = true
			}
			var ds *vk.AttachmentReference
			if sub[i].DS >= 0 && sub[i].DS < len(att) {
				ds = &vk.AttachmentReference{Attachment: uint32(sub[i].DS), Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
				noPreserve[sub[i].DS] = true
			}
			var resolve []vk.AttachmentReference
			for _, k := range sub[i].MSR {
				if k >= 0 && k < len(att) {
					resolve = append(resolve, vk.AttachmentReference{Attachment: uint32(k), Layout: vk.ImageLayoutColorAttachmentOptimal})
					noPreserve[k] = true
				} else {
					resolve = append(resolve, vk.AttachmentReference{Attachment: vk.AttachmentUnused, Layout: vk.ImageLayoutUndefined})
				}
			}
			var preserve []uint32
			for j, skip := range noPreserve {
				if !skip {
					preserve = append(preserve, uint32(j))
				}
			}
			refs = append(refs, color, resolve)
			preserves = append(preserves, preserve)

			d := vk.SubpassDescription{
				PipelineBindPoint:    vk.PipelineBindPointGraphics,
				ColorAttachmentCount: uint32(len(color)),
			}
			if len(color) > 0 {
				d.PColorAttachments = color
			}
			if len(resolve) > 0 {
				d.PResolveAttachments = resolve
			}
			if ds != nil {
				d.PDepthStencilAttachment = ds
			}
			if len(preserve) > 0 {
				d.PreserveAttachmentCount = uint32(len(preserve))
				d.PPreserveAttachments = preserve
			}
			subDescs[i] = d
		}
	} else {
		for i := range subDescs {
			subDescs[i] = vk.SubpassDescription{PipelineBindPoint: vk.PipelineBindPointGraphics}
		}
	}

	const (
		srcStg = vk.PipelineStageAllCommandsBit
		dstStg = vk.PipelineStageDrawIndirectBit
		srcAcc = vk.AccessMemoryWriteBit
		dstAcc = vk.AccessMemoryWriteBit | vk.AccessMemoryReadBit
	)

	var deps []vk.SubpassDependency
	var iwait, idep int
	if len(sub) > 0 && sub[0].Wait {
		deps = append(deps, vk.SubpassDependency{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(srcStg),
			DstStageMask:  vk.PipelineStageFlags(dstStg),
			SrcAccessMask: vk.AccessFlags(srcAcc),
			DstAccessMask: vk.AccessFlags(dstAcc),
		})
		idep++
	}
	for i := 1; i < len(sub); i++ {
		switch {
		case sub[i].Wait:
			for j := iwait; j < i; j++ {
				deps = append(deps, vk.SubpassDependency{
					SrcSubpass:    uint32(j),
					DstSubpass:    uint32(i),
					SrcStageMask:  vk.PipelineStageFlags(srcStg),
					DstStageMask:  vk.PipelineStageFlags(dstStg),
					SrcAccessMask: vk.AccessFlags(srcAcc),
					DstAccessMask: vk.AccessFlags(dstAcc),
				})
			}
			iwait = i
			idep = len(deps)
		case len(deps) > 0:
			for j := idep - 1; j >= 0 && deps[j].DstSubpass == uint32(iwait); j-- {
				deps = append(deps, vk.SubpassDependency{
					SrcSubpass:    deps[j].SrcSubpass,
					DstSubpass:    uint32(i),
					SrcStageMask:  vk.PipelineStageFlags(srcStg),
					DstStageMask:  vk.PipelineStageFlags(dstStg),
					SrcAccessMask: vk.AccessFlags(srcAcc),
					DstAccessMask: vk.AccessFlags(dstAcc),
				})
			}
		default:
			continue
		}
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attDescs)),
		SubpassCount:    uint32(len(subDescs)),
		PSubpasses:      subDescs,
		DependencyCount: uint32(len(deps)),
	}
	if len(attDescs) > 0 {
		info.PAttachments = attDescs
	}
	if len(deps) > 0 {
		info.PDependencies = deps
	}
	var pass vk.RenderPass
	if res := vk.CreateRenderPass(d.dev, &info, nil, &pass); res != vk.Success {
		return nil, checkResult(res)
	}

	aspect := make([]vk.ImageAspectFlagBits, len(att))
	for i := range aspect {
		aspect[i] = aspectOf(att[i].Format)
	}
	ncolor := make([]int, len(sub))
	for i := range ncolor {
		ncolor[i] = len(sub[i].Color)
	}
	return &renderPass{d: d, pass: pass, aspect: aspect, ncolor: ncolor}, nil
}

// Destroy destroys the render pass.
func (p *renderPass) Destroy() {
	if p == nil {
		return
	}
	if p.pass != nil {
		vk.DestroyRenderPass(p.d.dev, p.pass, nil)
	}
	*p = renderPass{}
}

// framebuf implements driver.Framebuf.
type framebuf struct {
	p      *renderPass
	handle vk.Framebuffer
	width  int
	height int
}

// NewFB creates a new framebuffer.
func (p *renderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	views := make([]vk.ImageView, len(iv))
	for i := range iv {
		v, ok := iv[i].(*imageView)
		if !ok || v == nil {
			return nil, errors.New("vk: nil image view")
		}
		views[i] = v.handle
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.pass,
		AttachmentCount: uint32(len(views)),
		Width:           uint32(width),
		Height:          uint32(height),
		Layers:          uint32(layers),
	}
	if len(views) > 0 {
		info.PAttachments = views
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(p.d.dev, &info, nil, &fb); res != vk.Success {
		return nil, checkResult(res)
	}
	return &framebuf{p: p, handle: fb, width: width, height: height}, nil
}

// Destroy destroys the framebuffer.
func (f *framebuf) Destroy() {
	if f == nil {
		return
	}
	if f.handle != nil {
		vk.DestroyFramebuffer(f.p.d.dev, f.handle, nil)
	}
	*f = framebuf{}
}

// loadOp converts a driver.LoadOp to a vk.AttachmentLoadOp.
func loadOp(op driver.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case driver.LDontCare:
		return vk.AttachmentLoadOpDontCare
	case driver.LClear:
		return vk.AttachmentLoadOpClear
	case driver.LLoad:
		return vk.AttachmentLoadOpLoad
	default:
		panic("vk: undefined driver.LoadOp")
	}
}

// storeOp converts a driver.StoreOp to a vk.AttachmentStoreOp.
func storeOp(op driver.StoreOp) vk.AttachmentStoreOp {
	switch op {
	case driver.SDontCare:
		return vk.AttachmentStoreOpDontCare
	case driver.SStore:
		return vk.AttachmentStoreOpStore
	default:
		panic("vk: undefined driver.StoreOp")
	}
}
