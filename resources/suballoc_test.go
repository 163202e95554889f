// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import "testing"

type fakeBuffer struct {
	data []byte
}

func (b *fakeBuffer) Destroy()        {}
func (b *fakeBuffer) Visible() bool   { return true }
func (b *fakeBuffer) Bytes() []byte   { return b.data }
func (b *fakeBuffer) Cap() int64      { return int64(len(b.data)) }

func newTestAllocator(cap int64) *uboAllocator {
	return &uboAllocator{buf: &fakeBuffer{data: make([]byte, cap)}}
}

func TestAllocAligns256(t *testing.T) {
	a := newTestAllocator(4096)
	_, off, err := a.Alloc(10)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if off%uboAlign != 0 {
		t.Errorf("offset = %d, want multiple of %d", off, uboAlign)
	}
	_, off2, err := a.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if off2 != uboAlign {
		t.Errorf("second offset = %d, want %d", off2, uboAlign)
	}
}

func TestAllocOverflow(t *testing.T) {
	a := newTestAllocator(uboAlign)
	if _, _, err := a.Alloc(1); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, _, err := a.Alloc(1); err != ErrSubAllocOverflow {
		t.Errorf("Alloc past capacity = %v, want ErrSubAllocOverflow", err)
	}
}

func TestResetRewindsOffset(t *testing.T) {
	a := newTestAllocator(4096)
	a.Alloc(10)
	a.Reset()
	_, off, err := a.Alloc(10)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if off != 0 {
		t.Errorf("offset after Reset = %d, want 0", off)
	}
}

func TestDescPoolSizes(t *testing.T) {
	layer, mesh, shared := descPoolSizes()
	if layer != MaxLayerRuns*MaxLayersPerRun {
		t.Errorf("layer copies = %d, want %d", layer, MaxLayerRuns*MaxLayersPerRun)
	}
	if mesh != MaxLayerRuns {
		t.Errorf("mesh copies = %d, want %d", mesh, MaxLayerRuns)
	}
	if shared != 1 {
		t.Errorf("shared copies = %d, want 1", shared)
	}
}
