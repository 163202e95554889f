// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"unsafe"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// semaphore implements driver.Semaphore.
type semaphore struct {
	d        *Driver
	handle   vk.Semaphore
	timeline bool
}

// NewSemaphore creates a new semaphore. Timeline semaphores back
// the external-sync handoff with compositor clients and other
// processes; binary semaphores gate in-queue and presentation
// work the way the teacher's swapchain code always has.
func (d *Driver) NewSemaphore(timeline bool) (driver.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if timeline {
		typeInfo := vk.SemaphoreTypeCreateInfo{
			SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
			SemaphoreType: vk.SemaphoreTypeTimeline,
			InitialValue:  0,
		}
		info.PNext = unsafe.Pointer(&typeInfo)
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(d.dev, &info, nil, &handle); res != vk.Success {
		return nil, checkResult(res)
	}
	return &semaphore{d: d, handle: handle, timeline: timeline}, nil
}

// Timeline reports whether the semaphore is a timeline semaphore.
func (s *semaphore) Timeline() bool { return s.timeline }

// Wait blocks until the semaphore's value reaches value or
// deadline (a vk.WaitSemaphores timeout in nanoseconds counted
// from the call; a negative value waits without limit) is exceeded.
func (s *semaphore) Wait(value uint64, deadline int64) error {
	if !s.timeline {
		return errors.New("vk: Wait called on a binary semaphore")
	}
	info := vk.SemaphoreWaitInfo{
		SType:          vk.StructureTypeSemaphoreWaitInfo,
		SemaphoreCount: 1,
		PSemaphores:    []vk.Semaphore{s.handle},
		PValues:        []uint64{value},
	}
	var timeout uint64
	if deadline < 0 {
		timeout = ^uint64(0)
	} else {
		timeout = uint64(deadline)
	}
	res := vk.WaitSemaphores(s.d.dev, &info, timeout)
	switch res {
	case vk.Success:
		return nil
	case vk.Timeout:
		return driver.ErrTimeout
	default:
		return checkResult(res)
	}
}

// Value returns the semaphore's current counter value.
func (s *semaphore) Value() (uint64, error) {
	if !s.timeline {
		return 0, errors.New("vk: Value called on a binary semaphore")
	}
	var v uint64
	if res := vk.GetSemaphoreCounterValue(s.d.dev, s.handle, &v); res != vk.Success {
		return 0, checkResult(res)
	}
	return v, nil
}

// Export returns a native OS handle referring to the semaphore,
// suitable for sharing timeline-semaphore-based sync with another
// process (e.g. an XR client submitting frames for composition).
func (s *semaphore) Export() (driver.ExternalHandle, error) {
	return exportSemaphore(s.d, s.handle)
}

// Destroy destroys the semaphore.
func (s *semaphore) Destroy() {
	if s == nil {
		return
	}
	if s.handle != nil {
		vk.DestroySemaphore(s.d.dev, s.handle, nil)
	}
	*s = semaphore{}
}
