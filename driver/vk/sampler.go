// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// sampler implements driver.Sampler.
type sampler struct {
	d      *Driver
	handle vk.Sampler
}

// NewSampler creates a new sampler.
func (d *Driver) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter(spln.Mag),
		MinFilter:               filter(spln.Min),
		MipmapMode:              mipmapMode(spln.Mipmap),
		AddressModeU:            addrMode(spln.AddrU),
		AddressModeV:            addrMode(spln.AddrV),
		AddressModeW:            addrMode(spln.AddrW),
		AnisotropyEnable:        vk.Bool32(boolToU32(spln.MaxAniso > 1)),
		MaxAnisotropy:           float32(spln.MaxAniso),
		CompareEnable:           vk.Bool32(boolToU32(spln.Cmp != driver.CNever)),
		CompareOp:               cmpFunc(spln.Cmp),
		MinLod:                  spln.MinLOD,
		MaxLod:                  spln.MaxLOD,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var handle vk.Sampler
	if res := vk.CreateSampler(d.dev, &info, nil, &handle); res != vk.Success {
		return nil, checkResult(res)
	}
	return &sampler{d: d, handle: handle}, nil
}

// Destroy destroys the sampler.
func (s *sampler) Destroy() {
	if s == nil {
		return
	}
	if s.handle != nil {
		vk.DestroySampler(s.d.dev, s.handle, nil)
	}
	*s = sampler{}
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
