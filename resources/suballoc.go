// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import (
	"errors"

	"xrcompositor/driver"
)

const resPrefix = "resources: "

// uboAlign is the alignment, in bytes, required of every
// sub-allocated UBO range (spec.md §4.6, §8 invariant 9).
const uboAlign = 256

// ErrSubAllocOverflow is returned by uboAllocator.Alloc when the
// shared buffer's capacity is exhausted for the current frame.
var ErrSubAllocOverflow = errors.New(resPrefix + "UBO sub-allocator overflow")

// uboAllocator is a per-frame bump allocator over a single shared
// UBO buffer, reset at the start of every frame. It is a
// simplification of the teacher's free-list-based stagingBuffer
// (engine/staging.go, backed by internal/bitm): that allocator must
// support out-of-order release since staging copies complete
// asynchronously, but UBO sub-allocations within one frame are all
// released together at the next reset, so a bump pointer is
// sufficient here (spec.md §4.6: "shared UBO buffer sub-allocated
// per frame at 256-byte alignment").
type uboAllocator struct {
	buf  driver.Buffer
	off  int64
}

// newUBOAllocator creates the shared buffer with capacity cap
// bytes, host-visible so layer/mesh constants can be written
// directly (spec.md §4.6: "Capacity = (layer-shader runs + mesh
// runs) × 256 B").
func newUBOAllocator(gpu driver.GPU, cap int64) (*uboAllocator, error) {
	buf, err := gpu.NewBuffer(cap, true, driver.UShaderConst)
	if err != nil {
		return nil, err
	}
	return &uboAllocator{buf: buf}, nil
}

// Reset rewinds the bump pointer to the start of the buffer, called
// once at the beginning of every frame.
func (a *uboAllocator) Reset() { a.off = 0 }

// Alloc reserves n bytes rounded up to uboAlign and returns the
// 256-byte-aligned byte-slice view and absolute offset.
func (a *uboAllocator) Alloc(n int64) (data []byte, offset int64, err error) {
	aligned := (n + uboAlign - 1) &^ (uboAlign - 1)
	if a.off+aligned > a.buf.Cap() {
		return nil, 0, ErrSubAllocOverflow
	}
	offset = a.off
	data = a.buf.Bytes()[offset : offset+aligned]
	a.off += aligned
	return data, offset, nil
}

// Buffer returns the underlying GPU buffer, for binding into
// descriptor heaps.
func (a *uboAllocator) Buffer() driver.Buffer { return a.buf }

func (a *uboAllocator) destroy() {
	if a != nil && a.buf != nil {
		a.buf.Destroy()
	}
}
