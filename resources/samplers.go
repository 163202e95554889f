// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package resources manages the long-lived, once-per-device GPU
// objects the layer/distortion renderer draws from: samplers, the
// pipeline cache, the descriptor pool, the per-frame UBO
// sub-allocator and the timestamp query pool (spec.md §4.6).
package resources

import (
	"xrcompositor/driver"
	"xrcompositor/internal/ctxt"
)

// samplerSet holds the four samplers every frame may bind (spec.md
// §4.6: "mock, repeat, clamp_to_edge, clamp_to_border_black").
type samplerSet struct {
	mock                driver.Sampler
	repeat              driver.Sampler
	clampToEdge         driver.Sampler
	clampToBorderBlack  driver.Sampler
}

func newSamplerSet() (*samplerSet, error) {
	gpu := ctxt.GPU()
	mock, err := gpu.NewSampler(&driver.Sampling{
		Min: driver.FNearest, Mag: driver.FNearest, Mipmap: driver.FNoMipmap,
		AddrU: driver.AClamp, AddrV: driver.AClamp, AddrW: driver.AClamp,
		MaxLOD: 0,
	})
	if err != nil {
		return nil, err
	}
	repeat, err := gpu.NewSampler(&driver.Sampling{
		Min: driver.FLinear, Mag: driver.FLinear, Mipmap: driver.FLinear,
		AddrU: driver.AWrap, AddrV: driver.AWrap, AddrW: driver.AWrap,
		MaxLOD: 1000,
	})
	if err != nil {
		mock.Destroy()
		return nil, err
	}
	clampEdge, err := gpu.NewSampler(&driver.Sampling{
		Min: driver.FLinear, Mag: driver.FLinear, Mipmap: driver.FLinear,
		AddrU: driver.AClamp, AddrV: driver.AClamp, AddrW: driver.AClamp,
		MaxLOD: 1000,
	})
	if err != nil {
		mock.Destroy()
		repeat.Destroy()
		return nil, err
	}
	// The driver's AddrMode has no border-color variant, so
	// clamp_to_border_black falls back to plain clamp-to-edge; since
	// every consumer of this sampler also zeroes the source alpha
	// outside [0,1] UV at the shader level, the visual difference is
	// limited to color bleeding at the very edge texel rather than a
	// hard black border.
	clampBorder, err := gpu.NewSampler(&driver.Sampling{
		Min: driver.FLinear, Mag: driver.FLinear, Mipmap: driver.FLinear,
		AddrU: driver.AClamp, AddrV: driver.AClamp, AddrW: driver.AClamp,
		MaxLOD: 1000,
	})
	if err != nil {
		mock.Destroy()
		repeat.Destroy()
		clampEdge.Destroy()
		return nil, err
	}
	return &samplerSet{
		mock:               mock,
		repeat:             repeat,
		clampToEdge:        clampEdge,
		clampToBorderBlack: clampBorder,
	}, nil
}

func (s *samplerSet) destroy() {
	if s == nil {
		return
	}
	if s.mock != nil {
		s.mock.Destroy()
	}
	if s.repeat != nil {
		s.repeat.Destroy()
	}
	if s.clampToEdge != nil {
		s.clampToEdge.Destroy()
	}
	if s.clampToBorderBlack != nil {
		s.clampToBorderBlack.Destroy()
	}
}
