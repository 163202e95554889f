// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build !linux

package vk

import (
	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// externalMemoryHandleType is the Vulkan external handle type
// requested for exportable memory and synchronization
// primitives on this platform.
const externalMemoryHandleType = vk.ExternalMemoryHandleTypeOpaqueWin32Bit

// exportMemory retrieves a Win32 HANDLE for mem. Ownership of
// the handle transfers to the caller, per the Vulkan spec's
// rules for VK_EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_WIN32_BIT.
func exportMemory(d *Driver, mem vk.DeviceMemory) (driver.ExternalHandle, error) {
	info := vk.MemoryGetWin32HandleInfoKHR{
		SType:      vk.StructureTypeMemoryGetWin32HandleInfoKhr,
		Memory:     mem,
		HandleType: vk.ExternalMemoryHandleTypeFlagBits(externalMemoryHandleType),
	}
	var h vk.HANDLE
	if res := vk.GetMemoryWin32HandleKHR(d.dev, &info, &h); res != vk.Success {
		return driver.ExternalHandle{}, checkResult(res)
	}
	return driver.ExternalHandle{Win32: uintptr(h)}, nil
}

// exportSemaphore retrieves a Win32 HANDLE for sem.
func exportSemaphore(d *Driver, sem vk.Semaphore) (driver.ExternalHandle, error) {
	info := vk.SemaphoreGetWin32HandleInfoKHR{
		SType:      vk.StructureTypeSemaphoreGetWin32HandleInfoKhr,
		Semaphore:  sem,
		HandleType: vk.ExternalSemaphoreHandleTypeFlagBits(vk.ExternalSemaphoreHandleTypeOpaqueWin32Bit),
	}
	var h vk.HANDLE
	if res := vk.GetSemaphoreWin32HandleKHR(d.dev, &info, &h); res != vk.Success {
		return driver.ExternalHandle{}, checkResult(res)
	}
	return driver.ExternalHandle{Win32: uintptr(h)}, nil
}
