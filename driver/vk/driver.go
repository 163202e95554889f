// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vk implements driver interfaces using the Vulkan API,
// through the github.com/goki/vulkan bindings.
package vk

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
	"xrcompositor/wsi"
)

const driverName = "vulkan"

// Driver implements driver.Driver and driver.GPU.
type Driver struct {
	inst  vk.Instance
	pdev  vk.PhysicalDevice
	dname string
	dev   vk.Device
	ques  []vk.Queue
	qfam  uint32

	// Queue submission requires external synchronization in
	// Vulkan, so each queue gets its own mutex; Commit calls
	// targeting different queues may then run concurrently.
	qmus []sync.Mutex

	mprop vk.PhysicalDeviceMemoryProperties
	mused []int64

	lim    driver.Limits
	tsPeriod float64

	// exts records which optional instance extensions this
	// driver enabled, keyed by extension name. NewSwapchain
	// consults extSurface/the platform surface extension before
	// attempting to create a VkSurfaceKHR.
	exts map[string]bool

	opened bool
}

// Platform surface extension names, one of which is requested
// alongside VK_KHR_surface at instance creation time, depending
// on the windowing system in use (see wsi.PlatformInUse).
const (
	extSurface        = "VK_KHR_surface"
	extXCBSurface     = "VK_KHR_xcb_surface"
	extWaylandSurface = "VK_KHR_wayland_surface"
	extWin32Surface   = "VK_KHR_win32_surface"
)

func init() {
	driver.Register(&Driver{})
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// Open initializes the driver.
func (d *Driver) Open() (driver.GPU, error) {
	if d.opened {
		return d, nil
	}
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrNotInstalled, err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrNotInstalled, err)
	}
	if err := d.initInstance(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.initDevice(); err != nil {
		d.Close()
		return nil, err
	}
	d.qmus = make([]sync.Mutex, len(d.ques))
	d.opened = true
	return d, nil
}

// Close deinitializes the driver.
func (d *Driver) Close() {
	if d == nil || !d.opened && d.dev == nil && d.inst == nil {
		return
	}
	if d.dev != nil {
		vk.DeviceWaitIdle(d.dev)
		vk.DestroyDevice(d.dev, nil)
	}
	if d.inst != nil {
		vk.DestroyInstance(d.inst, nil)
	}
	*d = Driver{}
}

func (d *Driver) initInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:         vk.StructureTypeApplicationInfo,
		PApplicationName: cstr("xrcompositor"),
		ApiVersion:    vk.ApiVersion12,
	}
	d.exts = make(map[string]bool)
	enabled := d.selectInstanceExts()
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
	}
	var inst vk.Instance
	if res := vk.CreateInstance(&info, nil, &inst); res != vk.Success {
		return checkResult(res)
	}
	d.inst = inst
	vk.InitInstance(inst)
	return nil
}

// selectInstanceExts queries the instance extensions advertised
// by the Vulkan implementation and enables VK_KHR_surface plus
// whichever platform surface extension matches the windowing
// system reported by wsi.PlatformInUse, when present. Presentation
// support is optional: a driver opened on a system with no
// compatible surface extension still works for offscreen
// rendering, it just cannot back a Swapchain.
func (d *Driver) selectInstanceExts() []string {
	var n uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &n, nil); res != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, n)
	if res := vk.EnumerateInstanceExtensionProperties("", &n, props); res != vk.Success {
		return nil
	}
	avail := make(map[string]bool, n)
	for i := range props {
		props[i].Deref()
		avail[vk.ToString(props[i].ExtensionName[:])] = true
	}
	platExt := platformSurfaceExt()
	if platExt == "" || !avail[extSurface] || !avail[platExt] {
		return nil
	}
	d.exts[extSurface] = true
	d.exts[platExt] = true
	return []string{extSurface + "\x00", platExt + "\x00"}
}

// platformSurfaceExt returns the name of the surface extension
// matching the windowing system in use, or the empty string if
// no XCB, Wayland or Win32 window system is in use. The Wayland
// extension is returned although surface creation for Wayland
// fails with driver.ErrCannotPresent (see present.go).
func platformSurfaceExt() string {
	switch wsi.PlatformInUse() {
	case wsi.XCB:
		return extXCBSurface
	case wsi.Wayland:
		return extWaylandSurface
	case wsi.Win32:
		return extWin32Surface
	}
	return ""
}

func (d *Driver) initDevice() error {
	var n uint32
	if res := vk.EnumeratePhysicalDevices(d.inst, &n, nil); res != vk.Success {
		return checkResult(res)
	}
	if n == 0 {
		return driver.ErrNoDevice
	}
	devs := make([]vk.PhysicalDevice, n)
	if res := vk.EnumeratePhysicalDevices(d.inst, &n, devs); res != vk.Success {
		return checkResult(res)
	}

	weight := 0
	var chosenFam uint32
	for _, pdev := range devs {
		var prop vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pdev, &prop)
		prop.Deref()

		var qn uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &qn, nil)
		qprops := make([]vk.QueueFamilyProperties, qn)
		vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &qn, qprops)

		fam := -1
		want := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
		for i := range qprops {
			qprops[i].Deref()
			if vk.QueueFlags(qprops[i].QueueFlags)&want == want {
				fam = i
				break
			}
		}
		if fam < 0 {
			continue
		}
		wgt := 1
		switch vk.PhysicalDeviceType(prop.DeviceType) {
		case vk.PhysicalDeviceTypeDiscreteGpu, vk.PhysicalDeviceTypeIntegratedGpu:
			wgt++
		}
		if wgt > weight {
			weight = wgt
			d.pdev = pdev
			d.dname = vk.ToString(prop.DeviceName[:])
			chosenFam = uint32(fam)
			d.ques = make([]vk.Queue, qn)
			d.setLimits(&prop.Limits, prop.Limits.TimestampPeriod)
		}
	}
	if weight == 0 {
		return driver.ErrNoDevice
	}
	d.qfam = chosenFam

	vk.GetPhysicalDeviceMemoryProperties(d.pdev, &d.mprop)
	d.mprop.Deref()
	d.mused = make([]int64, d.mprop.MemoryHeapCount)

	prio := float32(1)
	queInfos := make([]vk.DeviceQueueCreateInfo, len(d.ques))
	for i := range queInfos {
		queInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(i),
			QueueCount:       1,
			PQueuePriorities: []float32{prio},
		}
	}
	exts := []string{
		"VK_KHR_swapchain",
		"VK_KHR_external_memory_fd",
		"VK_KHR_external_semaphore_fd",
		"VK_KHR_timeline_semaphore",
		"VK_EXT_calibrated_timestamps",
	}
	cexts := make([]string, len(exts))
	copy(cexts, exts)
	devInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queInfos)),
		PQueueCreateInfos:       queInfos,
		EnabledExtensionCount:   uint32(len(cexts)),
		PpEnabledExtensionNames: cexts,
	}
	var dev vk.Device
	if res := vk.CreateDevice(d.pdev, &devInfo, nil, &dev); res != vk.Success {
		return checkResult(res)
	}
	d.dev = dev
	vk.InitDevice(dev)
	for i := range d.ques {
		var q vk.Queue
		vk.GetDeviceQueue(dev, uint32(i), 0, &q)
		d.ques[i] = q
	}
	return nil
}

func (d *Driver) setLimits(lim *vk.PhysicalDeviceLimits, tsPeriod float32) {
	lim.Deref()
	d.tsPeriod = float64(tsPeriod)
	d.lim = driver.Limits{
		MaxImage1D:   int(lim.MaxImageDimension1D),
		MaxImage2D:   int(lim.MaxImageDimension2D),
		MaxImageCube: int(lim.MaxImageDimensionCube),
		MaxImage3D:   int(lim.MaxImageDimension3D),
		MaxLayers:    int(lim.MaxImageArrayLayers),

		MaxDescHeaps:      int(lim.MaxBoundDescriptorSets),
		MaxDBuffer:        int(lim.MaxPerStageDescriptorStorageBuffers),
		MaxDImage:         int(lim.MaxPerStageDescriptorStorageImages),
		MaxDConstant:      int(lim.MaxPerStageDescriptorUniformBuffers),
		MaxDTexture:       int(lim.MaxPerStageDescriptorSampledImages),
		MaxDSampler:       int(lim.MaxPerStageDescriptorSamplers),
		MaxDBufferRange:   int64(lim.MaxStorageBufferRange),
		MaxDConstantRange: int64(lim.MaxUniformBufferRange),

		MaxColorTargets: int(lim.MaxColorAttachments),
		MaxFBSize:       [2]int{int(lim.MaxFramebufferWidth), int(lim.MaxFramebufferHeight)},
		MaxFBLayers:     int(lim.MaxFramebufferLayers),
		MaxViewports:    int(lim.MaxViewports),

		MaxVertexIn:   int(lim.MaxVertexInputBindings),
		MaxFragmentIn: int(lim.MaxFragmentInputComponents / 4),

		MaxDispatch: [3]int{
			int(lim.MaxComputeWorkGroupCount[0]),
			int(lim.MaxComputeWorkGroupCount[1]),
			int(lim.MaxComputeWorkGroupCount[2]),
		},
	}
}

// Driver returns the receiver (for driver.GPU conformance).
func (d *Driver) Driver() driver.Driver { return d }

// Limits returns the implementation limits.
func (d *Driver) Limits() driver.Limits { return d.lim }

// TimestampPeriod returns the number of nanoseconds per GPU
// timestamp tick, as reported by the physical device.
func (d *Driver) TimestampPeriod() float64 { return d.tsPeriod }

// DeviceName returns the name of the VkPhysicalDevice in use.
func (d *Driver) DeviceName() string { return d.dname }

// selectMemoryType picks a memory type index satisfying both
// typeBits (from VkMemoryRequirements) and the requested
// property flags, falling back to a non-device-local type if
// the ideal one is unavailable.
func (d *Driver) selectMemoryType(typeBits uint32, prop vk.MemoryPropertyFlagBits) (int, error) {
	try := func(want vk.MemoryPropertyFlagBits) int {
		for i := uint32(0); i < d.mprop.MemoryTypeCount; i++ {
			mt := d.mprop.MemoryTypes[i]
			mt.Deref()
			if typeBits&(1<<i) == 0 {
				continue
			}
			if vk.MemoryPropertyFlagBits(mt.PropertyFlags)&want == want {
				return int(i)
			}
		}
		return -1
	}
	if idx := try(prop); idx >= 0 {
		return idx, nil
	}
	if idx := try(prop &^ vk.MemoryPropertyDeviceLocalBit); idx >= 0 {
		return idx, nil
	}
	return 0, errors.New("vk: no suitable memory type")
}

// checkResult translates a vk.Result into a driver error,
// logging the calling function, file and line so failures can
// be traced back to the call site that triggered them.
func checkResult(res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	_, file, line, fn := callerInfo(2)
	err := resultError(res)
	log.Printf("vk: %v (%s:%d %s)", err, file, line, fn)
	return err
}

func resultError(res vk.Result) error {
	switch res {
	case vk.ErrorOutOfHostMemory:
		return driver.ErrNoHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return driver.ErrNoDeviceMemory
	case vk.ErrorDeviceLost:
		return driver.ErrFatal
	case vk.ErrorFeatureNotPresent:
		return errFeatureNotPresent
	case vk.ErrorFormatNotSupported:
		return errFormatNotSupported
	case vk.ErrorOutOfDateKhr:
		return driver.ErrSwapchain
	case vk.ErrorSurfaceLostKhr:
		return errSurfaceLost
	default:
		return fmt.Errorf("vk: result %d", res)
	}
}

var (
	errFeatureNotPresent  = errors.New("vk: feature not present")
	errFormatNotSupported = errors.New("vk: format not supported")
	errSurfaceLost        = errors.New("vk: surface lost")
	errNotExportable      = errors.New("vk: resource not created for export")
	errAlreadyExported     = errors.New("vk: resource already exported")
)

func cstr(s string) string {
	// goki/vulkan's string fields expect NUL-terminated Go
	// strings; it copies them into C storage internally.
	return s + "\x00"
}

func init() { runtime.LockOSThread() }
