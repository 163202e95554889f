// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import "testing"

func TestAllocCopyClaimsDistinctIndices(t *testing.T) {
	var p descPool
	seen := make(map[int]bool)
	layerCopies, _, _ := descPoolSizes()
	for i := 0; i < layerCopies; i++ {
		idx, err := p.AllocLayerCopy()
		if err != nil {
			t.Fatalf("AllocLayerCopy: %v", err)
		}
		if seen[idx] {
			t.Fatalf("AllocLayerCopy returned index %d twice", idx)
		}
		seen[idx] = true
	}
}

func TestAllocCopyOverflow(t *testing.T) {
	var p descPool
	_, err := p.AllocSharedCopy()
	if err != nil {
		t.Fatalf("AllocSharedCopy: %v", err)
	}
	if _, err := p.AllocSharedCopy(); err != ErrDescCopyOverflow {
		t.Errorf("AllocSharedCopy past capacity = %v, want ErrDescCopyOverflow", err)
	}
}

func TestResetFrameReleasesCopies(t *testing.T) {
	var p descPool
	idx, err := p.AllocMeshCopy()
	if err != nil {
		t.Fatalf("AllocMeshCopy: %v", err)
	}
	p.resetFrame()
	idx2, err := p.AllocMeshCopy()
	if err != nil {
		t.Fatalf("AllocMeshCopy after resetFrame: %v", err)
	}
	if idx2 != idx {
		t.Errorf("AllocMeshCopy after resetFrame = %d, want %d (first slot reclaimed)", idx2, idx)
	}
}
