// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// queryPool implements driver.QueryPool.
type queryPool struct {
	d      *Driver
	handle vk.QueryPool
	n      int
}

// NewQueryPool creates a new GPU timestamp query pool.
func (d *Driver) NewQueryPool(n int) (driver.QueryPool, error) {
	info := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeTimestamp,
		QueryCount: uint32(n),
	}
	var handle vk.QueryPool
	if res := vk.CreateQueryPool(d.dev, &info, nil, &handle); res != vk.Success {
		return nil, checkResult(res)
	}
	p := &queryPool{d: d, handle: handle, n: n}
	// The device was not created with hostQueryReset, so the
	// pool must be reset from within a command buffer before
	// it can be written to for the first time.
	if err := p.resetOnQueue(); err != nil {
		vk.DestroyQueryPool(d.dev, handle, nil)
		return nil, err
	}
	return p, nil
}

// Results reads back the timestamp values written for queries
// [0, n).
func (p *queryPool) Results(n int) (ticks []uint64, ok bool, err error) {
	if n == 0 {
		return nil, true, nil
	}
	ticks = make([]uint64, n)
	const stride = 8 // sizeof(uint64)
	res := vk.GetQueryPoolResults(
		p.d.dev, p.handle, 0, uint32(n),
		uint(n*stride), unsafe.Pointer(&ticks[0]), vk.DeviceSize(stride),
		vk.QueryResultFlags(vk.QueryResult64Bit),
	)
	switch res {
	case vk.Success:
		return ticks, true, nil
	case vk.NotReady:
		return ticks, false, nil
	default:
		return nil, false, checkResult(res)
	}
}

// Reset marks every query in the pool as unwritten.
func (p *queryPool) Reset() {
	// Best-effort: errors here only delay detection of a stale
	// read, which Results' ok return already guards against.
	_ = p.resetOnQueue()
}

// resetOnQueue records and submits a one-off command buffer that
// resets the whole pool, since the device does not enable
// VK_EXT_host_query_reset / VkPhysicalDeviceVulkan12Features.hostQueryReset.
func (p *queryPool) resetOnQueue() error {
	cb, err := p.d.newCmdBuffer(p.d.qfam)
	if err != nil {
		return err
	}
	defer cb.Destroy()
	if err := cb.Begin(); err != nil {
		return err
	}
	vk.CmdResetQueryPool(cb.cb, p.handle, 0, uint32(p.n))
	if err := cb.End(); err != nil {
		return err
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.cb},
	}
	p.d.qmus[p.d.qfam].Lock()
	res := vk.QueueSubmit(p.d.ques[p.d.qfam], 1, []vk.SubmitInfo{info}, nil)
	p.d.qmus[p.d.qfam].Unlock()
	if err := checkResult(res); err != nil {
		return err
	}
	return checkResult(vk.QueueWaitIdle(p.d.ques[p.d.qfam]))
}

// Destroy destroys the query pool.
func (p *queryPool) Destroy() {
	if p == nil {
		return
	}
	if p.handle != nil {
		vk.DestroyQueryPool(p.d.dev, p.handle, nil)
	}
	*p = queryPool{}
}
