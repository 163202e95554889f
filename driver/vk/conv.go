// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"runtime"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// callerInfo skips skip frames (relative to its own caller)
// and returns file/line/function of the resulting frame. It
// is used by checkResult to annotate logged errors with the
// call site that triggered them.
func callerInfo(skip int) (pc uintptr, file string, line int, fn string) {
	pc, file, line, _ = runtime.Caller(skip)
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
	}
	return
}

// pixelFmt converts a driver.PixelFmt to a vk.Format.
func pixelFmt(pf driver.PixelFmt) vk.Format {
	switch pf {
	case driver.RGBA8un:
		return vk.FormatR8g8b8a8Unorm
	case driver.RGBA8n:
		return vk.FormatR8g8b8a8Snorm
	case driver.RGBA8sRGB:
		return vk.FormatR8g8b8a8Srgb
	case driver.BGRA8un:
		return vk.FormatB8g8r8a8Unorm
	case driver.BGRA8sRGB:
		return vk.FormatB8g8r8a8Srgb
	case driver.RG8un:
		return vk.FormatR8g8Unorm
	case driver.RG8n:
		return vk.FormatR8g8Snorm
	case driver.R8un:
		return vk.FormatR8Unorm
	case driver.R8n:
		return vk.FormatR8Snorm
	case driver.RGBA16f:
		return vk.FormatR16g16b16a16Sfloat
	case driver.RG16f:
		return vk.FormatR16g16Sfloat
	case driver.R16f:
		return vk.FormatR16Sfloat
	case driver.RGBA32f:
		return vk.FormatR32g32b32a32Sfloat
	case driver.RG32f:
		return vk.FormatR32g32Sfloat
	case driver.R32f:
		return vk.FormatR32Sfloat
	case driver.D16un:
		return vk.FormatD16Unorm
	case driver.D32f:
		return vk.FormatD32Sfloat
	case driver.S8ui:
		return vk.FormatS8Uint
	case driver.D24unS8ui:
		return vk.FormatD24UnormS8Uint
	case driver.D32fS8ui:
		return vk.FormatD32SfloatS8Uint
	default:
		panic("vk: undefined driver.PixelFmt")
	}
}

// imageUsage converts a driver.Usage mask to a vk.ImageUsageFlags.
func imageUsage(usg driver.Usage) vk.ImageUsageFlags {
	var f vk.ImageUsageFlagBits
	if usg&driver.UShaderRead != 0 {
		f |= vk.ImageUsageSampledBit
	}
	if usg&driver.UShaderWrite != 0 {
		f |= vk.ImageUsageStorageBit
	}
	if usg&driver.UShaderSample != 0 {
		f |= vk.ImageUsageSampledBit
	}
	if usg&driver.URenderTarget != 0 {
		f |= vk.ImageUsageColorAttachmentBit | vk.ImageUsageDepthStencilAttachmentBit
	}
	f |= vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	return vk.ImageUsageFlags(f)
}

// bufferUsage converts a driver.Usage mask to a vk.BufferUsageFlags.
func bufferUsage(usg driver.Usage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlagBits
	if usg&driver.UShaderRead != 0 || usg&driver.UShaderWrite != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if usg&driver.UShaderConst != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if usg&driver.UVertexData != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	if usg&driver.UIndexData != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	f |= vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	return vk.BufferUsageFlags(f)
}

// imageLayout converts a driver.Layout to a vk.ImageLayout.
func imageLayout(l driver.Layout) vk.ImageLayout {
	switch l {
	case driver.LUndefined:
		return vk.ImageLayoutUndefined
	case driver.LCommon:
		return vk.ImageLayoutGeneral
	case driver.LColorTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case driver.LDSTarget:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case driver.LDSRead:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case driver.LResolveSrc, driver.LCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case driver.LResolveDst, driver.LCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case driver.LShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case driver.LPresent:
		return vk.ImageLayoutPresentSrc
	default:
		panic("vk: undefined driver.Layout")
	}
}

// viewType converts a driver.ViewType to a vk.ImageViewType.
func viewType(t driver.ViewType) vk.ImageViewType {
	switch t {
	case driver.IView1D, driver.IView1DArray:
		return vk.ImageViewType1d
	case driver.IView2D, driver.IView2DMS:
		return vk.ImageViewType2d
	case driver.IView2DArray, driver.IView2DMSArray:
		return vk.ImageViewType2dArray
	case driver.IView3D:
		return vk.ImageViewType3d
	case driver.IViewCube:
		return vk.ImageViewTypeCube
	case driver.IViewCubeArray:
		return vk.ImageViewTypeCubeArray
	default:
		panic("vk: undefined driver.ViewType")
	}
}

// filter converts a driver.Filter to a vk.Filter.
func filter(f driver.Filter) vk.Filter {
	if f == driver.FNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func mipmapMode(f driver.Filter) vk.SamplerMipmapMode {
	if f == driver.FNearest {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

// addrMode converts a driver.AddrMode to a vk.SamplerAddressMode.
func addrMode(a driver.AddrMode) vk.SamplerAddressMode {
	switch a {
	case driver.AWrap:
		return vk.SamplerAddressModeRepeat
	case driver.AMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case driver.AClamp:
		return vk.SamplerAddressModeClampToEdge
	default:
		panic("vk: undefined driver.AddrMode")
	}
}

// cmpFunc converts a driver.CmpFunc to a vk.CompareOp.
func cmpFunc(c driver.CmpFunc) vk.CompareOp {
	switch c {
	case driver.CNever:
		return vk.CompareOpNever
	case driver.CLess:
		return vk.CompareOpLess
	case driver.CEqual:
		return vk.CompareOpEqual
	case driver.CLessEqual:
		return vk.CompareOpLessOrEqual
	case driver.CGreater:
		return vk.CompareOpGreater
	case driver.CNotEqual:
		return vk.CompareOpNotEqual
	case driver.CGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case driver.CAlways:
		return vk.CompareOpAlways
	default:
		panic("vk: undefined driver.CmpFunc")
	}
}
