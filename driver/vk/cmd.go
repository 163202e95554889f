// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// cmdBuffer implements driver.CmdBuffer.
type cmdBuffer struct {
	d    *Driver
	qfam uint32
	pool vk.CommandPool
	cb   vk.CommandBuffer

	recording bool
	pass      *renderPass
	subpass   int

	// Swapchain presentation bookkeeping, set by swapchain.Next/
	// Present (present.go). Commit reads these fields to know
	// whether it must wait on the image's acquire semaphore
	// and/or issue a present request once the submission
	// finishes executing.
	sc        *swapchain
	scView    int
	scAcquire vk.Semaphore
	scPres    bool
}

// NewCmdBuffer creates a new command buffer, using the driver's
// chosen queue family.
func (d *Driver) NewCmdBuffer() (driver.CmdBuffer, error) {
	cb, err := d.newCmdBuffer(d.qfam)
	if err != nil {
		return nil, err
	}
	return cb, nil
}

// newCmdBuffer creates a command buffer whose commands will be
// submitted to the queue family qfam.
func (d *Driver) newCmdBuffer(qfam uint32) (*cmdBuffer, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: qfam,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.dev, &info, nil, &pool); res != vk.Success {
		return nil, checkResult(res)
	}
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.dev, &allocInfo, cbs); res != vk.Success {
		vk.DestroyCommandPool(d.dev, pool, nil)
		return nil, checkResult(res)
	}
	return &cmdBuffer{d: d, qfam: qfam, pool: pool, cb: cbs[0]}, nil
}

// Begin prepares the command buffer for recording.
func (c *cmdBuffer) Begin() error {
	if c.recording {
		return errors.New("vk: command buffer already recording")
	}
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(c.cb, &info); res != vk.Success {
		return checkResult(res)
	}
	c.recording = true
	c.sc = nil
	c.scAcquire = nil
	c.scPres = false
	return nil
}

// BeginPass begins the first subpass of pass.
func (c *cmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	p := pass.(*renderPass)
	f := fb.(*framebuf)
	clears := make([]vk.ClearValue, len(clear))
	for i := range clear {
		if i < len(p.aspect) && p.aspect[i]&vk.ImageAspectColorBit != 0 {
			clears[i] = vk.NewClearValue(clear[i].Color[:])
		} else {
			clears[i] = vk.NewClearDepthStencil(clear[i].Depth, clear[i].Stencil)
		}
	}
	info := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      p.pass,
		Framebuffer:     f.handle,
		RenderArea:      vk.Rect2D{Extent: vk.Extent2D{Width: uint32(f.width), Height: uint32(f.height)}},
		ClearValueCount: uint32(len(clears)),
	}
	if len(clears) > 0 {
		info.PClearValues = clears
	}
	vk.CmdBeginRenderPass(c.cb, &info, vk.SubpassContentsInline)
	c.pass = p
	c.subpass = 0
}

// NextSubpass ends the current subpass and begins the next one.
func (c *cmdBuffer) NextSubpass() {
	vk.CmdNextSubpass(c.cb, vk.SubpassContentsInline)
	c.subpass++
}

// EndPass ends the current render pass.
func (c *cmdBuffer) EndPass() {
	vk.CmdEndRenderPass(c.cb)
	c.pass = nil
	c.subpass = 0
}

// BeginWork begins compute work.
func (c *cmdBuffer) BeginWork(wait bool) {
	if wait {
		c.fullBarrier(vk.PipelineStageAllCommandsBit, vk.PipelineStageComputeShaderBit)
	}
}

// EndWork ends the current compute work.
func (c *cmdBuffer) EndWork() {}

// BeginBlit begins data transfer.
func (c *cmdBuffer) BeginBlit(wait bool) {
	if wait {
		c.fullBarrier(vk.PipelineStageAllCommandsBit, vk.PipelineStageTransferBit)
	}
}

// EndBlit ends the current data transfer.
func (c *cmdBuffer) EndBlit() {}

// fullBarrier records a whole-pipeline memory barrier, used to
// implement the wait parameter of BeginWork/BeginBlit.
func (c *cmdBuffer) fullBarrier(src, dst vk.PipelineStageFlagBits) {
	b := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessMemoryWriteBit | vk.AccessMemoryReadBit),
	}
	vk.CmdPipelineBarrier(c.cb, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0,
		1, []vk.MemoryBarrier{b}, 0, nil, 0, nil)
}

// SetPipeline sets the pipeline.
func (c *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	p := pl.(*pipeline)
	vk.CmdBindPipeline(c.cb, p.bindPoint, p.handle)
}

// SetViewport sets one or more viewports.
func (c *cmdBuffer) SetViewport(vp []driver.Viewport) {
	vps := make([]vk.Viewport, len(vp))
	for i := range vp {
		vps[i] = vk.Viewport{
			X: vp[i].X, Y: vp[i].Y,
			Width: vp[i].Width, Height: vp[i].Height,
			MinDepth: vp[i].Znear, MaxDepth: vp[i].Zfar,
		}
	}
	if len(vps) > 0 {
		vk.CmdSetViewport(c.cb, 0, uint32(len(vps)), vps)
	}
}

// SetScissor sets one or more scissor rectangles.
func (c *cmdBuffer) SetScissor(sciss []driver.Scissor) {
	rects := make([]vk.Rect2D, len(sciss))
	for i := range sciss {
		rects[i] = vk.Rect2D{
			Offset: vk.Offset2D{X: int32(sciss[i].X), Y: int32(sciss[i].Y)},
			Extent: vk.Extent2D{Width: uint32(sciss[i].Width), Height: uint32(sciss[i].Height)},
		}
	}
	if len(rects) > 0 {
		vk.CmdSetScissor(c.cb, 0, uint32(len(rects)), rects)
	}
}

// SetBlendColor sets the constant blend color.
func (c *cmdBuffer) SetBlendColor(r, g, b, a float32) {
	vk.CmdSetBlendConstants(c.cb, [4]float32{r, g, b, a})
}

// SetStencilRef sets the stencil reference value.
func (c *cmdBuffer) SetStencilRef(value uint32) {
	vk.CmdSetStencilReference(c.cb, vk.StencilFaceFlags(vk.StencilFrontAndBack), value)
}

// SetVertexBuf sets one or more vertex buffers.
func (c *cmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {
	bufs := make([]vk.Buffer, len(buf))
	offs := make([]vk.DeviceSize, len(off))
	for i := range buf {
		bufs[i] = buf[i].(*buffer).handle
		offs[i] = vk.DeviceSize(off[i])
	}
	if len(bufs) > 0 {
		vk.CmdBindVertexBuffers(c.cb, uint32(start), uint32(len(bufs)), bufs, offs)
	}
}

// SetIndexBuf sets the index buffer.
func (c *cmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {
	ty := vk.IndexTypeUint16
	if format == driver.Index32 {
		ty = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(c.cb, buf.(*buffer).handle, vk.DeviceSize(off), ty)
}

// SetDescTableGraph sets a descriptor table range for graphics
// pipelines.
func (c *cmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
	c.setDescTable(vk.PipelineBindPointGraphics, table, start, heapCopy)
}

// SetDescTableComp sets a descriptor table range for compute
// pipelines.
func (c *cmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	c.setDescTable(vk.PipelineBindPointCompute, table, start, heapCopy)
}

func (c *cmdBuffer) setDescTable(bindPoint vk.PipelineBindPoint, table driver.DescTable, start int, heapCopy []int) {
	t := table.(*descTable)
	sets := make([]vk.DescriptorSet, len(heapCopy))
	for i, cpy := range heapCopy {
		sets[i] = t.h[start+i].sets[cpy]
	}
	if len(sets) > 0 {
		vk.CmdBindDescriptorSets(c.cb, bindPoint, t.layout, uint32(start), uint32(len(sets)), sets, 0, nil)
	}
}

// Draw draws primitives.
func (c *cmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	vk.CmdDraw(c.cb, uint32(vertCount), uint32(instCount), uint32(baseVert), uint32(baseInst))
}

// DrawIndexed draws indexed primitives.
func (c *cmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	vk.CmdDrawIndexed(c.cb, uint32(idxCount), uint32(instCount), uint32(baseIdx), int32(vertOff), uint32(baseInst))
}

// Dispatch dispatches compute thread groups.
func (c *cmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {
	vk.CmdDispatch(c.cb, uint32(grpCountX), uint32(grpCountY), uint32(grpCountZ))
}

// CopyBuffer copies data between buffers.
func (c *cmdBuffer) CopyBuffer(param *driver.BufferCopy) {
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(param.FromOff),
		DstOffset: vk.DeviceSize(param.ToOff),
		Size:      vk.DeviceSize(param.Size),
	}
	vk.CmdCopyBuffer(c.cb, param.From.(*buffer).handle, param.To.(*buffer).handle, 1, []vk.BufferCopy{region})
}

// CopyImage copies data between images. Both images are assumed
// to already be in the transfer-source/transfer-destination
// layout (see Transition).
func (c *cmdBuffer) CopyImage(param *driver.ImageCopy) {
	from := param.From.(*image)
	to := param.To.(*image)
	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(aspectOf(from.pf)),
			MipLevel:       uint32(param.FromLevel),
			BaseArrayLayer: uint32(param.FromLayer),
			LayerCount:     uint32(param.Layers),
		},
		SrcOffset: vk.Offset3D{X: int32(param.FromOff.X), Y: int32(param.FromOff.Y), Z: int32(param.FromOff.Z)},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(aspectOf(to.pf)),
			MipLevel:       uint32(param.ToLevel),
			BaseArrayLayer: uint32(param.ToLayer),
			LayerCount:     uint32(param.Layers),
		},
		DstOffset: vk.Offset3D{X: int32(param.ToOff.X), Y: int32(param.ToOff.Y), Z: int32(param.ToOff.Z)},
		Extent: vk.Extent3D{
			Width:  uint32(param.Size.Width),
			Height: uint32(param.Size.Height),
			Depth:  uint32(maxInt(param.Size.Depth, 1)),
		},
	}
	vk.CmdCopyImage(c.cb, from.handle, vk.ImageLayoutTransferSrcOptimal, to.handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{region})
}

// CopyBufToImg copies data from a buffer to an image.
func (c *cmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	c.copyBufImg(param, true)
}

// CopyImgToBuf copies data from an image to a buffer.
func (c *cmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {
	c.copyBufImg(param, false)
}

func (c *cmdBuffer) copyBufImg(param *driver.BufImgCopy, toImage bool) {
	img := param.Img.(*image)
	aspect := aspectOf(img.pf)
	if aspect == vk.ImageAspectDepthBit|vk.ImageAspectStencilBit {
		if param.DepthCopy {
			aspect = vk.ImageAspectDepthBit
		} else {
			aspect = vk.ImageAspectStencilBit
		}
	}
	region := vk.BufferImageCopy{
		BufferOffset:      vk.DeviceSize(param.BufOff),
		BufferRowLength:   uint32(param.Stride[0]),
		BufferImageHeight: uint32(param.Stride[1]),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(aspect),
			MipLevel:       uint32(param.Level),
			BaseArrayLayer: uint32(param.Layer),
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: int32(param.ImgOff.X), Y: int32(param.ImgOff.Y), Z: int32(param.ImgOff.Z)},
		ImageExtent: vk.Extent3D{
			Width:  uint32(param.Size.Width),
			Height: uint32(param.Size.Height),
			Depth:  uint32(maxInt(param.Size.Depth, 1)),
		},
	}
	buf := param.Buf.(*buffer).handle
	if toImage {
		vk.CmdCopyBufferToImage(c.cb, buf, img.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	} else {
		vk.CmdCopyImageToBuffer(c.cb, img.handle, vk.ImageLayoutTransferSrcOptimal, buf, 1, []vk.BufferImageCopy{region})
	}
}

// Fill fills a buffer range with copies of a byte value.
func (c *cmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	word := uint32(value) | uint32(value)<<8 | uint32(value)<<16 | uint32(value)<<24
	vk.CmdFillBuffer(c.cb, buf.(*buffer).handle, vk.DeviceSize(off), vk.DeviceSize(size), word)
}

// WriteTimestamp writes a GPU timestamp into query index nr.
func (c *cmdBuffer) WriteTimestamp(pool driver.QueryPool, nr int, stage driver.Sync) {
	vk.CmdWriteTimestamp(c.cb, convSync(stage), pool.(*queryPool).handle, uint32(nr))
}

// Barrier inserts a number of global barriers.
func (c *cmdBuffer) Barrier(b []driver.Barrier) {
	if len(b) == 0 {
		return
	}
	mems := make([]vk.MemoryBarrier, len(b))
	var src, dst vk.PipelineStageFlagBits
	for i := range b {
		mems[i] = vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(convAccess(b[i].AccessBefore)),
			DstAccessMask: vk.AccessFlags(convAccess(b[i].AccessAfter)),
		}
		src |= convSync(b[i].SyncBefore)
		dst |= convSync(b[i].SyncAfter)
	}
	if src == 0 {
		src = vk.PipelineStageTopOfPipeBit
	}
	if dst == 0 {
		dst = vk.PipelineStageBottomOfPipeBit
	}
	vk.CmdPipelineBarrier(c.cb, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0,
		uint32(len(mems)), mems, 0, nil, 0, nil)
}

// Transition inserts a number of image layout transitions. Every
// transition targets a single queue family, since the driver
// submits all work on one (d.qfam, see Driver.initDevice); no
// queue family ownership transfer is required even for
// swapchain-backed views.
func (c *cmdBuffer) Transition(t []driver.Transition) {
	if len(t) == 0 {
		return
	}
	imgs := make([]vk.ImageMemoryBarrier, len(t))
	var src, dst vk.PipelineStageFlagBits
	for i := range t {
		v := t[i].IView.(*imageView)
		imgs[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(convAccess(t[i].AccessBefore)),
			DstAccessMask:       vk.AccessFlags(convAccess(t[i].AccessAfter)),
			OldLayout:           imageLayout(t[i].LayoutBefore),
			NewLayout:           imageLayout(t[i].LayoutAfter),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               v.img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(v.aspect),
				BaseMipLevel:   uint32(v.level),
				LevelCount:     uint32(v.levels),
				BaseArrayLayer: uint32(v.layer),
				LayerCount:     uint32(v.layers),
			},
		}
		src |= convSync(t[i].SyncBefore)
		dst |= convSync(t[i].SyncAfter)
	}
	if src == 0 {
		src = vk.PipelineStageTopOfPipeBit
	}
	if dst == 0 {
		dst = vk.PipelineStageBottomOfPipeBit
	}
	vk.CmdPipelineBarrier(c.cb, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0,
		0, nil, 0, nil, uint32(len(imgs)), imgs)
}

// End ends command recording.
func (c *cmdBuffer) End() error {
	if !c.recording {
		return errors.New("vk: command buffer not recording")
	}
	if res := vk.EndCommandBuffer(c.cb); res != vk.Success {
		vk.ResetCommandBuffer(c.cb, 0)
		c.recording = false
		return checkResult(res)
	}
	c.recording = false
	return nil
}

// Reset discards all recorded commands.
func (c *cmdBuffer) Reset() error {
	if res := vk.ResetCommandBuffer(c.cb, 0); res != vk.Success {
		return checkResult(res)
	}
	c.recording = false
	c.pass = nil
	c.subpass = 0
	c.sc = nil
	c.scAcquire = nil
	c.scPres = false
	return nil
}

// Destroy destroys the command buffer and its backing pool.
func (c *cmdBuffer) Destroy() {
	if c == nil {
		return
	}
	if c.d != nil && c.pool != nil {
		vk.QueueWaitIdle(c.d.ques[c.qfam])
		vk.DestroyCommandPool(c.d.dev, c.pool, nil)
	}
	*c = cmdBuffer{}
}

// Commit submits wk's command buffers for execution on the
// driver's queue. If the last command buffer recorded a
// transition of a swapchain-backed view to the present layout
// (see present.go), a present request for that backbuffer is
// issued once the submission has been queued.
//
// wk is returned on ch, with wk.Err set on failure, once every
// command buffer has finished executing. A background goroutine
// owns the fence used to detect completion and destroys it
// before returning, since Vulkan fences are not reclaimed by the
// garbage collector the way Go values are.
func (d *Driver) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) {
	cbs := make([]vk.CommandBuffer, len(wk.Work))
	for i, w := range wk.Work {
		cbs[i] = w.(*cmdBuffer).cb
	}

	var last *cmdBuffer
	if len(wk.Work) > 0 {
		last = wk.Work[len(wk.Work)-1].(*cmdBuffer)
	}

	waitSems := make([]vk.Semaphore, len(wk.Wait))
	waitStages := make([]vk.PipelineStageFlags, len(wk.Wait))
	waitValues := make([]uint64, len(wk.Wait))
	for i, w := range wk.Wait {
		waitSems[i] = w.Sem.(*semaphore).handle
		waitStages[i] = vk.PipelineStageFlags(convSync(w.Stage))
		waitValues[i] = w.Value
	}
	// A swapchain image acquired by Next is not writable until its
	// acquire semaphore (a plain binary semaphore) is signaled;
	// the image may be bound by any command buffer in the batch,
	// not just the first or last.
	for _, w := range wk.Work {
		if cb := w.(*cmdBuffer); cb.scAcquire != nil {
			waitSems = append(waitSems, cb.scAcquire)
			waitStages = append(waitStages, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
			waitValues = append(waitValues, 0)
		}
	}
	sigSems := make([]vk.Semaphore, len(wk.Signal))
	sigValues := make([]uint64, len(wk.Signal))
	for i, s := range wk.Signal {
		sigSems[i] = s.Sem.(*semaphore).handle
		sigValues[i] = s.Value
	}

	var presSem vk.Semaphore
	if last != nil && last.scPres {
		var err error
		presSem, err = last.sc.presentSemaphore(last.scView)
		if err != nil {
			wk.Err = err
			ch <- wk
			return
		}
		sigSems = append(sigSems, presSem)
		sigValues = append(sigValues, 0)
	}

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSems)),
		CommandBufferCount:   uint32(len(cbs)),
		SignalSemaphoreCount: uint32(len(sigSems)),
	}
	if len(waitSems) > 0 {
		info.PWaitSemaphores = waitSems
		info.PWaitDstStageMask = waitStages
	}
	if len(cbs) > 0 {
		info.PCommandBuffers = cbs
	}
	if len(sigSems) > 0 {
		info.PSignalSemaphores = sigSems
	}
	var timelineInfo vk.TimelineSemaphoreSubmitInfo
	if len(waitSems) > 0 || len(sigSems) > 0 {
		timelineInfo = vk.TimelineSemaphoreSubmitInfo{
			SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
			WaitSemaphoreValueCount:   uint32(len(waitValues)),
			SignalSemaphoreValueCount: uint32(len(sigValues)),
		}
		if len(waitValues) > 0 {
			timelineInfo.PWaitSemaphoreValues = waitValues
		}
		if len(sigValues) > 0 {
			timelineInfo.PSignalSemaphoreValues = sigValues
		}
		info.PNext = &timelineInfo
	}

	fenceInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if res := vk.CreateFence(d.dev, &fenceInfo, nil, &fence); res != vk.Success {
		wk.Err = checkResult(res)
		ch <- wk
		return
	}

	qfam := d.qfam
	if len(wk.Work) > 0 {
		qfam = wk.Work[0].(*cmdBuffer).qfam
	}
	d.qmus[qfam].Lock()
	res := vk.QueueSubmit(d.ques[qfam], 1, []vk.SubmitInfo{info}, fence)
	d.qmus[qfam].Unlock()
	if err := checkResult(res); err != nil {
		vk.DestroyFence(d.dev, fence, nil)
		wk.Err = err
		ch <- wk
		return
	}

	if last != nil && last.scPres {
		if err := last.sc.present(last.scView, presSem); err != nil {
			wk.Err = err
		}
	}

	go func() {
		vk.WaitForFences(d.dev, 1, []vk.Fence{fence}, vk.True, ^uint64(0))
		vk.DestroyFence(d.dev, fence, nil)
		ch <- wk
	}()
}

// convSync converts a driver.Sync mask to a vk.PipelineStageFlagBits.
func convSync(sync driver.Sync) (flags vk.PipelineStageFlagBits) {
	if sync == driver.SNone {
		return 0
	}
	if sync&driver.SAll != 0 {
		return vk.PipelineStageAllCommandsBit
	}
	if sync&driver.SVertexInput != 0 {
		flags |= vk.PipelineStageVertexInputBit
	}
	if sync&driver.SVertexShading != 0 {
		flags |= vk.PipelineStageVertexShaderBit
	}
	if sync&driver.SFragmentShading != 0 {
		flags |= vk.PipelineStageFragmentShaderBit
	}
	if sync&driver.SComputeShading != 0 {
		flags |= vk.PipelineStageComputeShaderBit
	}
	if sync&driver.SColorOutput != 0 {
		flags |= vk.PipelineStageColorAttachmentOutputBit
	}
	if sync&driver.SDSOutput != 0 {
		flags |= vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	}
	if sync&driver.SDraw != 0 {
		flags |= vk.PipelineStageDrawIndirectBit
	}
	if sync&driver.SResolve != 0 {
		flags |= vk.PipelineStageColorAttachmentOutputBit
	}
	if sync&driver.SCopy != 0 {
		flags |= vk.PipelineStageTransferBit
	}
	return
}

// convAccess converts a driver.Access mask to a vk.AccessFlagBits.
func convAccess(acc driver.Access) (flags vk.AccessFlagBits) {
	if acc == driver.ANone {
		return 0
	}
	if acc&driver.AAnyRead != 0 {
		flags |= vk.AccessMemoryReadBit
	}
	if acc&driver.AAnyWrite != 0 {
		flags |= vk.AccessMemoryWriteBit
	}
	if acc&driver.AVertexBufRead != 0 {
		flags |= vk.AccessVertexAttributeReadBit
	}
	if acc&driver.AIndexBufRead != 0 {
		flags |= vk.AccessIndexReadBit
	}
	if acc&driver.AColorRead != 0 {
		flags |= vk.AccessColorAttachmentReadBit
	}
	if acc&driver.AColorWrite != 0 {
		flags |= vk.AccessColorAttachmentWriteBit
	}
	if acc&driver.ADSRead != 0 {
		flags |= vk.AccessDepthStencilAttachmentReadBit
	}
	if acc&driver.ADSWrite != 0 {
		flags |= vk.AccessDepthStencilAttachmentWriteBit
	}
	if acc&driver.AResolveRead != 0 {
		flags |= vk.AccessColorAttachmentReadBit
	}
	if acc&driver.AResolveWrite != 0 {
		flags |= vk.AccessColorAttachmentWriteBit
	}
	if acc&driver.ACopyRead != 0 {
		flags |= vk.AccessTransferReadBit
	}
	if acc&driver.ACopyWrite != 0 {
		flags |= vk.AccessTransferWriteBit
	}
	if acc&driver.AShaderRead != 0 {
		flags |= vk.AccessShaderReadBit
	}
	if acc&driver.AShaderWrite != 0 {
		flags |= vk.AccessShaderWriteBit
	}
	return
}
