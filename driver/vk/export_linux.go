// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// externalMemoryHandleType is the Vulkan external handle type
// requested for exportable memory and synchronization
// primitives on this platform.
const externalMemoryHandleType = vk.ExternalMemoryHandleTypeOpaqueFdBit

// exportMemory retrieves a dma-buf-backed file descriptor for
// mem.
func exportMemory(d *Driver, mem vk.DeviceMemory) (driver.ExternalHandle, error) {
	info := vk.MemoryGetFdInfoKHR{
		SType:      vk.StructureTypeMemoryGetFdInfoKhr,
		Memory:     mem,
		HandleType: vk.ExternalMemoryHandleTypeFlagBits(externalMemoryHandleType),
	}
	var fd int
	if res := vk.GetMemoryFdKHR(d.dev, &info, &fd); res != vk.Success {
		return driver.ExternalHandle{}, checkResult(res)
	}
	return driver.ExternalHandle{FD: fd}, nil
}

// exportSemaphore retrieves an opaque file descriptor for sem,
// suitable for import by another process or API.
func exportSemaphore(d *Driver, sem vk.Semaphore) (driver.ExternalHandle, error) {
	info := vk.SemaphoreGetFdInfoKHR{
		SType:      vk.StructureTypeSemaphoreGetFdInfoKhr,
		Semaphore:  sem,
		HandleType: vk.ExternalSemaphoreHandleTypeFlagBits(vk.ExternalSemaphoreHandleTypeOpaqueFdBit),
	}
	var fd int
	if res := vk.GetSemaphoreFdKHR(d.dev, &info, &fd); res != vk.Success {
		return driver.ExternalHandle{}, checkResult(res)
	}
	return driver.ExternalHandle{FD: fd}, nil
}
