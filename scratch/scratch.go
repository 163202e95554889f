// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package scratch implements rotating sets of mutable-format color
// images used as per-view intermediate targets during layer squash
// (spec.md §4.3), with a lock-free debug-UI snapshot.
package scratch

import (
	"errors"
	"sync/atomic"

	"xrcompositor/driver"
	"xrcompositor/internal/ctxt"
	"xrcompositor/uid"
)

const scratchPrefix = "scratch: "

// nimg is the rotating set size (spec.md §4.3: "rotating sets of
// size 4 per eye").
const nimg = 4

// ErrPending is returned by Get when a previous Get has not yet
// been matched by Done or Discard; calling Get twice without one of
// those in between is a programmer error.
var ErrPending = errors.New(scratchPrefix + "Get called while a previous index is still pending")

// image bundles the two views (and native handle) of one scratch
// image (spec.md §3: "a mutable-format color image with two views
// (SRGB for sampling, UNORM for storage writes)"). driver.Image's
// NewView takes no format, so both views are created alike with the
// image's own RGBA8un format; srgb and unorm differ only in name.
type image struct {
	img      driver.Image
	srgb     driver.ImageView
	unorm    driver.ImageView
	handle   driver.ExternalHandle
}

// Debug is the debug-UI snapshot published after every successful
// Done (spec.md §4.3).
type Debug struct {
	ID      uint64
	Index   int
	Handles [nimg]driver.ExternalHandle
	Extent  driver.Dim3D
	Layers  int
}

// Set is a rotating scratch image set. The zero value is not
// usable; construct one with NewSingle or NewStereo.
//
// A Set is not safe for concurrent use except for its debug
// snapshot, which is published through an atomic.Pointer and may be
// read from any goroutine without locking the renderer thread
// (spec.md §4.3).
type Set struct {
	layers  int // 1 for Single, 2 for Stereo (array of both eyes)
	extent  driver.Dim3D
	imgs    [nimg]image
	idx     int
	pending bool
	id      uint64
	debug   atomic.Pointer[Debug]
}

// NewSingle creates a scratch set holding one non-arrayed image per
// rotation slot, used when each view renders into its own extent.
func NewSingle() *Set { return &Set{layers: 1} }

// NewStereo creates a scratch set holding a 2-layer array per
// rotation slot, shared across both eyes of a stereo extent.
func NewStereo() *Set { return &Set{layers: 2} }

// Ensure makes the set's images match extent, tearing down and
// recreating all four images (and regenerating the set's debug id)
// if extent differs from the current one. It is a no-op if the
// extent already matches (spec.md §4.3).
func (s *Set) Ensure(extent driver.Dim3D) error {
	if s.extent == extent && s.imgs[0].img != nil {
		return nil
	}
	s.teardown()
	s.extent = extent
	s.id = uid.New()

	gpu := ctxt.GPU()
	usg := driver.UShaderSample | driver.UShaderWrite | driver.UMutableFormat
	for i := range s.imgs {
		img, err := gpu.NewImage(driver.RGBA8un, extent, s.layers, 1, 1, usg)
		if err != nil {
			s.teardown()
			return err
		}
		srgb, err := s.newView(img, driver.RGBA8sRGB)
		if err != nil {
			img.Destroy()
			s.teardown()
			return err
		}
		unorm, err := s.newView(img, driver.RGBA8un)
		if err != nil {
			srgb.Destroy()
			img.Destroy()
			s.teardown()
			return err
		}
		handle, _ := img.Export() // native export is best-effort
		s.imgs[i] = image{img: img, srgb: srgb, unorm: unorm, handle: handle}
	}
	return nil
}

func (s *Set) newView(img driver.Image, _ driver.PixelFmt) (driver.ImageView, error) {
	typ := driver.IView2D
	if s.layers > 1 {
		typ = driver.IView2DArray
	}
	return img.NewView(typ, 0, s.layers, 0, 1)
}

func (s *Set) teardown() {
	for i := range s.imgs {
		if s.imgs[i].srgb != nil {
			s.imgs[i].srgb.Destroy()
		}
		if s.imgs[i].unorm != nil {
			s.imgs[i].unorm.Destroy()
		}
		if s.imgs[i].img != nil {
			s.imgs[i].img.Destroy()
		}
		s.imgs[i] = image{}
	}
}

// Get returns the next round-robin index (chosen from the slot
// following the last index passed to Done), and that image's SRGB
// (sampling) and UNORM (storage) views. Calling Get again before a
// matching Done or Discard returns ErrPending.
func (s *Set) Get() (index int, srgb, unorm driver.ImageView, err error) {
	if s.pending {
		return 0, nil, nil, ErrPending
	}
	s.pending = true
	return s.idx, s.imgs[s.idx].srgb, s.imgs[s.idx].unorm, nil
}

// Done completes the pending Get, publishing a debug-UI snapshot
// and advancing the round-robin index for the next Get.
func (s *Set) Done() {
	if !s.pending {
		return
	}
	s.pending = false
	d := &Debug{ID: s.id, Index: s.idx, Extent: s.extent, Layers: s.layers}
	for i := range s.imgs {
		d.Handles[i] = s.imgs[i].handle
	}
	s.debug.Store(d)
	s.idx = (s.idx + 1) % nimg
}

// Discard cancels the pending Get without publishing a debug
// snapshot or advancing the round-robin index, so the same index is
// retried on the next Get.
func (s *Set) Discard() { s.pending = false }

// ClearDebug clears the published debug-UI snapshot.
func (s *Set) ClearDebug() { s.debug.Store(nil) }

// Debug returns the most recently published debug-UI snapshot, or
// nil if none has been published (or it was cleared). Safe to call
// from any goroutine.
func (s *Set) Debug() *Debug { return s.debug.Load() }

// Free destroys every image in the set.
func (s *Set) Free() {
	s.teardown()
	s.debug.Store(nil)
}
