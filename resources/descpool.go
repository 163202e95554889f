// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import (
	"errors"

	"xrcompositor/driver"
	"xrcompositor/internal/bitm"
)

const (
	// MaxLayerRuns bounds the number of concurrent layer-shader
	// dispatches the descriptor pool provisions for in one frame
	// (one per view, both sub-passes), matching render.MaxLayers'
	// neighborhood without importing render (avoiding an import
	// cycle: render.Resources is implemented by this package).
	MaxLayerRuns = 4
	// MaxLayersPerRun mirrors render.MaxLayers (spec.md §4.5).
	MaxLayersPerRun = 16
)

// descPoolSizes returns the heap-copy counts for the layer-shader,
// mesh-distortion and shared-distortion descriptor heaps (spec.md
// §4.6: "descriptor pool sized for (a) MAX_LAYER_RUNS × MAX_LAYERS
// ... (b) MAX_LAYER_RUNS ... (c) one shared slot per distortion
// dispatch").
func descPoolSizes() (layerCopies, meshCopies, sharedCopies int) {
	return MaxLayerRuns * MaxLayersPerRun, MaxLayerRuns, 1
}

// ErrDescCopyOverflow is returned by descPool's per-kind allocators
// once every heap copy provisioned for the current frame is in use.
var ErrDescCopyOverflow = errors.New(resPrefix + "descriptor heap copies exhausted")

// descPool is the set of descriptor heaps/tables shared across a
// frame's dispatch. Each heap's copies are tracked by a bitmap:
// allocCopy claims the lowest unclaimed copy, and resetFrame
// releases every copy at once; there is no per-copy release. This
// mirrors the teacher's span/primitive free lists in
// engine/storage.go, which track GPU buffer regions the same way.
type descPool struct {
	layerHeap driver.DescHeap
	layerTab  driver.DescTable
	layerMap  bitm.Bitm[uint32]

	meshHeap driver.DescHeap
	meshTab  driver.DescTable
	meshMap  bitm.Bitm[uint32]

	sharedHeap driver.DescHeap
	sharedTab  driver.DescTable
	sharedMap  bitm.Bitm[uint32]
}

// allocCopy claims the lowest unset bit in m, growing it the first
// time it is used to enough words to hold cap bits (heap copy counts
// are small and fixed for the pool's lifetime, so a single Grow
// suffices).
func allocCopy(m *bitm.Bitm[uint32], cap int) (index int, err error) {
	if m.Len() == 0 {
		m.Grow((cap + 31) / 32)
	}
	index, ok := m.Search()
	if !ok || index >= cap {
		return 0, ErrDescCopyOverflow
	}
	m.Set(index)
	return index, nil
}

// AllocLayerCopy claims one of the layer-shader descriptor heap's
// MAX_LAYER_RUNS×MAX_LAYERS copies for the caller to write into.
func (p *descPool) AllocLayerCopy() (int, error) {
	layerCopies, _, _ := descPoolSizes()
	return allocCopy(&p.layerMap, layerCopies)
}

// AllocMeshCopy claims one of the mesh-distortion descriptor heap's
// MAX_LAYER_RUNS copies.
func (p *descPool) AllocMeshCopy() (int, error) {
	_, meshCopies, _ := descPoolSizes()
	return allocCopy(&p.meshMap, meshCopies)
}

// AllocSharedCopy claims the shared-distortion descriptor heap's
// single copy.
func (p *descPool) AllocSharedCopy() (int, error) {
	_, _, sharedCopies := descPoolSizes()
	return allocCopy(&p.sharedMap, sharedCopies)
}

// resetFrame releases every copy claimed during the previous frame,
// called once at the start of every frame alongside the UBO
// sub-allocator and timestamp pool resets.
func (p *descPool) resetFrame() {
	p.layerMap.Clear()
	p.meshMap.Clear()
	p.sharedMap.Clear()
}

func newDescPool(gpu driver.GPU) (*descPool, error) {
	layerCopies, meshCopies, sharedCopies := descPoolSizes()

	layerDescs := []driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SVertex | driver.SFragment, Nr: 0, Len: 1},
		{Type: driver.DTexture, Stages: driver.SFragment, Nr: 1, Len: 1},
		{Type: driver.DSampler, Stages: driver.SFragment, Nr: 2, Len: 1},
	}
	layerHeap, err := gpu.NewDescHeap(layerDescs)
	if err != nil {
		return nil, err
	}
	if err := layerHeap.New(layerCopies); err != nil {
		layerHeap.Destroy()
		return nil, err
	}
	layerTab, err := gpu.NewDescTable([]driver.DescHeap{layerHeap})
	if err != nil {
		layerHeap.Destroy()
		return nil, err
	}

	meshDescs := []driver.Descriptor{
		{Type: driver.DConstant, Stages: driver.SVertex | driver.SFragment, Nr: 0, Len: 1},
		{Type: driver.DTexture, Stages: driver.SFragment, Nr: 1, Len: 3},
		{Type: driver.DSampler, Stages: driver.SFragment, Nr: 2, Len: 1},
	}
	meshHeap, err := gpu.NewDescHeap(meshDescs)
	if err != nil {
		layerHeap.Destroy()
		layerTab.Destroy()
		return nil, err
	}
	if err := meshHeap.New(meshCopies); err != nil {
		layerHeap.Destroy()
		layerTab.Destroy()
		meshHeap.Destroy()
		return nil, err
	}
	meshTab, err := gpu.NewDescTable([]driver.DescHeap{meshHeap})
	if err != nil {
		layerHeap.Destroy()
		layerTab.Destroy()
		meshHeap.Destroy()
		return nil, err
	}

	sharedDescs := []driver.Descriptor{
		{Type: driver.DImage, Stages: driver.SCompute, Nr: 0, Len: 1},
	}
	sharedHeap, err := gpu.NewDescHeap(sharedDescs)
	if err != nil {
		layerHeap.Destroy()
		layerTab.Destroy()
		meshHeap.Destroy()
		meshTab.Destroy()
		return nil, err
	}
	if err := sharedHeap.New(sharedCopies); err != nil {
		layerHeap.Destroy()
		layerTab.Destroy()
		meshHeap.Destroy()
		meshTab.Destroy()
		sharedHeap.Destroy()
		return nil, err
	}
	sharedTab, err := gpu.NewDescTable([]driver.DescHeap{sharedHeap})
	if err != nil {
		layerHeap.Destroy()
		layerTab.Destroy()
		meshHeap.Destroy()
		meshTab.Destroy()
		sharedHeap.Destroy()
		return nil, err
	}

	return &descPool{
		layerHeap: layerHeap, layerTab: layerTab,
		meshHeap: meshHeap, meshTab: meshTab,
		sharedHeap: sharedHeap, sharedTab: sharedTab,
	}, nil
}

func (p *descPool) destroy() {
	if p == nil {
		return
	}
	for _, d := range []driver.Destroyer{p.layerTab, p.layerHeap, p.meshTab, p.meshHeap, p.sharedTab, p.sharedHeap} {
		if d != nil {
			d.Destroy()
		}
	}
}
