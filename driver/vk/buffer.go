// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// buffer implements driver.Buffer.
type buffer struct {
	d       *Driver
	handle  vk.Buffer
	mem     vk.DeviceMemory
	size    int64
	visible bool
	mapped  []byte
}

// NewBuffer creates a new buffer.
func (d *Driver) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(usg) | vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(d.dev, &info, nil, &handle); res != vk.Success {
		return nil, checkResult(res)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, handle, &req)
	req.Deref()

	prop := vk.MemoryPropertyDeviceLocalBit
	if visible {
		prop = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	typ, err := d.selectMemoryType(req.MemoryTypeBits, prop)
	if err != nil {
		vk.DestroyBuffer(d.dev, handle, nil)
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: uint32(typ),
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.dev, &allocInfo, nil, &mem); res != vk.Success {
		vk.DestroyBuffer(d.dev, handle, nil)
		return nil, checkResult(res)
	}
	if res := vk.BindBufferMemory(d.dev, handle, mem, 0); res != vk.Success {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyBuffer(d.dev, handle, nil)
		return nil, checkResult(res)
	}
	heap := int(d.mprop.MemoryTypes[typ].HeapIndex)
	d.mused[heap] += int64(req.Size)

	b := &buffer{d: d, handle: handle, mem: mem, size: int64(req.Size), visible: visible}
	if visible {
		var p unsafe.Pointer
		if res := vk.MapMemory(d.dev, mem, 0, vk.DeviceSize(req.Size), 0, &p); res != vk.Success {
			vk.FreeMemory(d.dev, mem, nil)
			vk.DestroyBuffer(d.dev, handle, nil)
			return nil, checkResult(res)
		}
		b.mapped = unsafe.Slice((*byte)(p), int(req.Size))
	}
	return b, nil
}

// Visible returns whether the buffer is host visible.
func (b *buffer) Visible() bool { return b.visible }

// Bytes returns a slice of length b.Cap() referring to the
// mapped buffer storage. It is nil if the buffer is not
// host visible.
func (b *buffer) Bytes() []byte { return b.mapped }

// Cap returns the capacity of the buffer in bytes.
func (b *buffer) Cap() int64 { return b.size }

// Destroy destroys the buffer.
func (b *buffer) Destroy() {
	if b == nil {
		return
	}
	if b.handle != nil {
		vk.DestroyBuffer(b.d.dev, b.handle, nil)
	}
	if b.mem != nil {
		if b.mapped != nil {
			vk.UnmapMemory(b.d.dev, b.mem)
		}
		vk.FreeMemory(b.d.dev, b.mem, nil)
	}
	*b = buffer{}
}
