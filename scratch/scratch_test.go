// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package scratch

import (
	"testing"

	"xrcompositor/driver"
)

func TestSingleEnsureIdempotent(t *testing.T) {
	s := NewSingle()
	ext := driver.Dim3D{Width: 64, Height: 64, Depth: 1}
	if err := s.Ensure(ext); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	id := s.id
	if err := s.Ensure(ext); err != nil {
		t.Fatalf("Ensure (no-op): %v", err)
	}
	if s.id != id {
		t.Error("Ensure regenerated the id despite unchanged extent")
	}
	s.Free()
}

func TestSingleEnsureRecreatesOnExtentChange(t *testing.T) {
	s := NewSingle()
	if err := s.Ensure(driver.Dim3D{Width: 32, Height: 32, Depth: 1}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	id := s.id
	if err := s.Ensure(driver.Dim3D{Width: 64, Height: 64, Depth: 1}); err != nil {
		t.Fatalf("Ensure (resize): %v", err)
	}
	if s.id == id {
		t.Error("Ensure did not regenerate the id after an extent change")
	}
	s.Free()
}

func TestGetDonePublishesDebug(t *testing.T) {
	s := NewStereo()
	if err := s.Ensure(driver.Dim3D{Width: 64, Height: 64, Depth: 1}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer s.Free()

	idx, srgb, unorm, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if srgb == nil || unorm == nil {
		t.Fatal("Get returned nil view")
	}
	if _, _, _, err := s.Get(); err != ErrPending {
		t.Errorf("Get while pending = %v, want ErrPending", err)
	}
	s.Done()
	if d := s.Debug(); d == nil || d.Index != idx {
		t.Errorf("Debug snapshot = %+v, want Index=%d", d, idx)
	}
}

func TestDiscardDoesNotAdvance(t *testing.T) {
	s := NewSingle()
	if err := s.Ensure(driver.Dim3D{Width: 16, Height: 16, Depth: 1}); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer s.Free()

	idx1, _, _, _ := s.Get()
	s.Discard()
	idx2, _, _, _ := s.Get()
	if idx1 != idx2 {
		t.Errorf("Discard advanced the round-robin index: %d -> %d", idx1, idx2)
	}
	s.Done()
}
