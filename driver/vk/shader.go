// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// shaderCode implements driver.ShaderCode.
type shaderCode struct {
	d      *Driver
	handle vk.ShaderModule
}

// NewShaderCode creates a new shader code.
func (d *Driver) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	n := len(data)
	if n == 0 || n&3 != 0 {
		return nil, errors.New("vk: invalid shader code size")
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(n),
		PCode:    sliceUint32(data),
	}
	var mod vk.ShaderModule
	if res := vk.CreateShaderModule(d.dev, &info, nil, &mod); res != vk.Success {
		return nil, checkResult(res)
	}
	return &shaderCode{d: d, handle: mod}, nil
}

// Destroy destroys the shader code.
func (c *shaderCode) Destroy() {
	if c == nil {
		return
	}
	if c.handle != nil {
		vk.DestroyShaderModule(c.d.dev, c.handle, nil)
	}
	*c = shaderCode{}
}

// sliceUint32 reinterprets a SPIR-V byte blob (already
// validated to be a multiple of four bytes) as a uint32 slice,
// the form goki/vulkan's ShaderModuleCreateInfo.PCode expects.
func sliceUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return out
}
