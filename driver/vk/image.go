// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// image implements driver.Image.
type image struct {
	d         *Driver
	handle    vk.Image
	mem       vk.DeviceMemory
	pf        driver.PixelFmt
	memSize   int64
	dedicated bool
	exported  bool
}

// NewImage creates a new image.
func (d *Driver) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	var flags vk.ImageCreateFlagBits
	if usg&driver.UMutableFormat != 0 {
		flags |= vk.ImageCreateMutableFormatBit
	}
	if layers%6 == 0 && layers > 0 {
		flags |= vk.ImageCreateCubeCompatibleBit
	}

	imgType := vk.ImageType2d
	if size.Depth > 1 {
		imgType = vk.ImageType3d
	}

	exportable := usg&driver.URenderTarget != 0 || usg&driver.UShaderWrite != 0
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     vk.ImageCreateFlags(flags),
		ImageType: imgType,
		Format:    pixelFmt(pf),
		Extent: vk.Extent3D{
			Width:  uint32(size.Width),
			Height: uint32(size.Height),
			Depth:  uint32(maxInt(size.Depth, 1)),
		},
		MipLevels:     uint32(levels),
		ArrayLayers:   uint32(layers),
		Samples:       sampleCount(samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(usg),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var extInfo vk.ExternalMemoryImageCreateInfo
	if exportable {
		extInfo = vk.ExternalMemoryImageCreateInfo{
			SType:       vk.StructureTypeExternalMemoryImageCreateInfo,
			HandleTypes: vk.ExternalMemoryHandleTypeFlags(externalMemoryHandleType),
		}
		info.PNext = unsafe.Pointer(&extInfo)
	}

	var handle vk.Image
	if res := vk.CreateImage(d.dev, &info, nil, &handle); res != vk.Success {
		return nil, checkResult(res)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, handle, &req)
	req.Deref()

	typ, err := d.selectMemoryType(req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.dev, handle, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: uint32(typ),
	}
	var exportInfo vk.ExportMemoryAllocateInfo
	if exportable {
		exportInfo = vk.ExportMemoryAllocateInfo{
			SType:       vk.StructureTypeExportMemoryAllocateInfo,
			HandleTypes: vk.ExternalMemoryHandleTypeFlags(externalMemoryHandleType),
		}
		allocInfo.PNext = unsafe.Pointer(&exportInfo)
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.dev, &allocInfo, nil, &mem); res != vk.Success {
		vk.DestroyImage(d.dev, handle, nil)
		return nil, checkResult(res)
	}
	if res := vk.BindImageMemory(d.dev, handle, mem, 0); res != vk.Success {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyImage(d.dev, handle, nil)
		return nil, checkResult(res)
	}
	heap := int(d.mprop.MemoryTypes[typ].HeapIndex)
	d.mused[heap] += int64(req.Size)

	return &image{
		d:         d,
		handle:    handle,
		mem:       mem,
		pf:        pf,
		memSize:   int64(req.Size),
		dedicated: exportable,
	}, nil
}

// NewView creates a new image view.
func (i *image) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	aspect := aspectOf(i.pf)
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.handle,
		ViewType: viewType(typ),
		Format:   pixelFmt(i.pf),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   uint32(level),
			LevelCount:     uint32(levels),
			BaseArrayLayer: uint32(layer),
			LayerCount:     uint32(layers),
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(i.d.dev, &info, nil, &view); res != vk.Success {
		return nil, checkResult(res)
	}
	return &imageView{
		d:      i.d,
		handle: view,
		img:    i.handle,
		aspect: aspect,
		layer:  layer,
		layers: layers,
		level:  level,
		levels: levels,
	}, nil
}

// aspectOf returns the image aspect(s) implied by a pixel format.
func aspectOf(pf driver.PixelFmt) vk.ImageAspectFlagBits {
	switch pf {
	case driver.D16un, driver.D32f:
		return vk.ImageAspectDepthBit
	case driver.S8ui:
		return vk.ImageAspectStencilBit
	case driver.D24unS8ui, driver.D32fS8ui:
		return vk.ImageAspectDepthBit | vk.ImageAspectStencilBit
	default:
		return vk.ImageAspectColorBit
	}
}

// Export returns a native OS handle to the image's backing
// memory. It can only be called once per image, since the
// handle it returns transfers ownership of the reference it
// carries.
func (i *image) Export() (driver.ExternalHandle, error) {
	if !i.dedicated {
		return driver.ExternalHandle{}, errNotExportable
	}
	if i.exported {
		return driver.ExternalHandle{}, errAlreadyExported
	}
	h, err := exportMemory(i.d, i.mem)
	if err != nil {
		return driver.ExternalHandle{}, err
	}
	i.exported = true
	return h, nil
}

// MemoryInfo reports the size and dedicated-allocation
// requirement of the image's backing memory.
func (i *image) MemoryInfo() (size int64, dedicatedAlloc bool) {
	return i.memSize, i.dedicated
}

// Destroy destroys the image and frees its memory.
func (i *image) Destroy() {
	if i == nil {
		return
	}
	if i.handle != nil {
		vk.DestroyImage(i.d.dev, i.handle, nil)
	}
	if i.mem != nil {
		vk.FreeMemory(i.d.dev, i.mem, nil)
	}
	*i = image{}
}

// imageView implements driver.ImageView.
// img/aspect/layer*/level* describe the subresource range the
// view refers to; Transition needs this to build the image
// memory barrier, since a barrier targets a VkImage plus a
// subresource range rather than a VkImageView.
type imageView struct {
	d      *Driver
	handle vk.ImageView
	img    vk.Image
	aspect vk.ImageAspectFlagBits

	layer, layers, level, levels int

	// sc is set for views created from a swapchain's backbuffer
	// images.
	sc *swapchain
	// scIndex is the index of this view in sc.views.
	scIndex int
}

// Destroy destroys the image view.
func (v *imageView) Destroy() {
	if v == nil {
		return
	}
	if v.handle != nil {
		vk.DestroyImageView(v.d.dev, v.handle, nil)
	}
	*v = imageView{}
}

func sampleCount(n int) vk.SampleCountFlagBits {
	switch n {
	case 1:
		return vk.SampleCount1Bit
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	default:
		return vk.SampleCount1Bit
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
