// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"sync"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
	"xrcompositor/wsi"
)

// errUnknown is returned when a Vulkan call reports a VkResult
// that checkResult does not expect to see at the call site.
var errUnknown = errors.New("vk: unexpected result")

// swapchain implements driver.Swapchain.
//
// Because the driver submits all work on a single queue family
// (d.qfam, see Driver.initDevice), presentation never requires a queue
// ownership transfer the way the teacher's multi-queue swapchain
// did: every view is acquired, rendered and presented on d.qfam.
type swapchain struct {
	d    *Driver
	win  wsi.Window
	sf   vk.SurfaceKHR
	sc   vk.SwapchainKHR
	pf   driver.PixelFmt
	imgs []vk.Image

	views []driver.ImageView

	mu sync.Mutex

	// The number of images that can be acquired concurrently is
	// given by 1 + len(views) - minImg. curImg counts how many
	// are currently acquired.
	minImg int
	curImg int

	// acqSems holds one binary semaphore per concurrently
	// acquirable image slot; Next signals the chosen slot's
	// semaphore via vkAcquireNextImageKHR and stashes it on the
	// command buffer (cmdBuffer.scAcquire) so that Commit can
	// wait on it before the color attachment output stage.
	//
	// presSems holds one binary semaphore per swapchain image
	// (indexed by view, not by slot), since a semaphore used in
	// a present request must not be reused until the present
	// completes, and the image it targets is the only thing
	// guaranteed not to repeat across overlapping presents.
	acqSems  []vk.Semaphore
	presSems []vk.Semaphore

	// viewSync maps a view index (as returned by Next) to the
	// acqSems slot acquired for it. Entries are only meaningful
	// while the corresponding view is pending presentation.
	viewSync []int

	// syncUsed tracks which acqSems slots are currently bound to
	// an unpresented view.
	syncUsed []bool

	// broken is set once acquisition or presentation reports
	// that the swapchain is suboptimal or out of date. Recreate
	// or Destroy is expected to be called afterwards.
	broken bool
}

// NewSwapchain creates a new swapchain.
func (d *Driver) NewSwapchain(win wsi.Window, imageCount int) (driver.Swapchain, error) {
	if !d.exts[extSurface] {
		return nil, driver.ErrCannotPresent
	}
	s := &swapchain{d: d, win: win}
	if err := s.initSurface(); err != nil {
		return nil, err
	}
	if err := s.checkPresentSupport(); err != nil {
		vk.DestroySurfaceKHR(d.inst, s.sf, nil)
		return nil, err
	}
	if err := s.initSwapchain(imageCount); err != nil {
		vk.DestroySurfaceKHR(d.inst, s.sf, nil)
		return nil, err
	}
	if err := s.newViews(); err != nil {
		vk.DestroySwapchainKHR(d.dev, s.sc, nil)
		vk.DestroySurfaceKHR(d.inst, s.sf, nil)
		return nil, err
	}
	if err := s.syncSetup(); err != nil {
		for _, v := range s.views {
			v.Destroy()
		}
		vk.DestroySwapchainKHR(d.dev, s.sc, nil)
		vk.DestroySurfaceKHR(d.inst, s.sf, nil)
		return nil, err
	}
	return s, nil
}

// initSurface creates a VkSurfaceKHR for s.win, dispatching on
// the windowing system reported by wsi.PlatformInUse. It sets
// the sf field of s.
func (s *swapchain) initSurface() error {
	switch wsi.PlatformInUse() {
	case wsi.XCB:
		return s.initXCBSurface()
	case wsi.Win32:
		return s.initWin32Surface()
	case wsi.Wayland:
		// TODO: Implement once goki/vulkan exposes
		// vk.CreateWaylandSurface with a stable ABI for the
		// wl_display/wl_surface pointer pair.
		return driver.ErrCannotPresent
	}
	return driver.ErrCannotPresent
}

// initXCBSurface creates a surface backed by an XCB window. It
// assumes extXCBSurface was selected at instance creation (see
// Driver.selectInstanceExts).
func (s *swapchain) initXCBSurface() error {
	if !s.d.exts[extXCBSurface] {
		return driver.ErrCannotPresent
	}
	info := vk.XcbSurfaceCreateInfoKHR{
		SType:      vk.StructureTypeXcbSurfaceCreateInfoKhr,
		Connection: wsi.ConnXCB(),
		Window:     vk.XcbWindowT(wsi.WindowXCB(s.win)),
	}
	var sf vk.SurfaceKHR
	if res := vk.CreateXcbSurfaceKHR(s.d.inst, &info, nil, &sf); res != vk.Success {
		return checkResult(res)
	}
	s.sf = sf
	return nil
}

// initWin32Surface creates a surface backed by a Win32 window.
// It assumes extWin32Surface was selected at instance creation.
func (s *swapchain) initWin32Surface() error {
	if !s.d.exts[extWin32Surface] {
		return driver.ErrCannotPresent
	}
	info := vk.Win32SurfaceCreateInfoKHR{
		SType:     vk.StructureTypeWin32SurfaceCreateInfoKhr,
		Hinstance: wsi.HinstWin32(),
		Hwnd:      wsi.HwndWin32(s.win),
	}
	var sf vk.SurfaceKHR
	if res := vk.CreateWin32SurfaceKHR(s.d.inst, &info, nil, &sf); res != vk.Success {
		return checkResult(res)
	}
	s.sf = sf
	return nil
}

// checkPresentSupport verifies that the driver's work queue
// family (d.qfam) can present to s.sf. Unlike the teacher's presQueueFor,
// this never searches for an alternative queue family: all work is
// submitted on d.qfam (see Driver.initDevice), so the check either
// passes or presentation is impossible for this surface.
func (s *swapchain) checkPresentSupport() error {
	var sup vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupportKHR(s.d.pdev, s.d.qfam, s.sf, &sup)
	if err := checkResult(res); err != nil {
		return err
	}
	if sup != vk.True {
		return driver.ErrCannotPresent
	}
	return nil
}

// initSwapchain creates a new VkSwapchainKHR from s.sf, or
// recreates s.sc in place when called from Recreate. It sets
// the sc, pf, minImg and curImg fields of s.
func (s *swapchain) initSwapchain(imageCount int) error {
	var capab vk.SurfaceCapabilitiesKHR
	if err := checkResult(vk.GetPhysicalDeviceSurfaceCapabilitiesKHR(s.d.pdev, s.sf, &capab)); err != nil {
		return err
	}
	capab.Deref()
	capab.CurrentExtent.Deref()
	capab.MinImageExtent.Deref()
	capab.MaxImageExtent.Deref()

	// Number of backbuffers.
	nimg := uint32(imageCount)
	if capab.MinImageCount > nimg {
		nimg = capab.MinImageCount
	} else if capab.MaxImageCount != 0 && capab.MaxImageCount < nimg {
		nimg = capab.MaxImageCount
	}

	// Image size.
	var extent vk.Extent2D
	if capab.MaxImageExtent.Width == 0 && capab.MaxImageExtent.Height == 0 {
		return driver.ErrWindow
	}
	if capab.CurrentExtent.Width == ^uint32(0) {
		extent.Width = uint32(s.win.Width())
		extent.Height = uint32(s.win.Height())
	} else {
		extent = capab.CurrentExtent
	}

	// Pre-transform.
	xform := vk.SurfaceTransformFlagBitsKHR(capab.CurrentTransform)

	// Composite alpha.
	var calpha vk.CompositeAlphaFlagBitsKHR
	switch ca := vk.CompositeAlphaFlagBitsKHR(capab.SupportedCompositeAlpha); {
	case ca&vk.CompositeAlphaInheritBitKhr != 0:
		calpha = vk.CompositeAlphaInheritBitKhr
	case ca&vk.CompositeAlphaOpaqueBitKhr != 0:
		calpha = vk.CompositeAlphaOpaqueBitKhr
	default:
		return driver.ErrCompositor
	}

	// Image format and color space.
	var nfmt uint32
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormatsKHR(s.d.pdev, s.sf, &nfmt, nil)); err != nil {
		return err
	}
	if nfmt == 0 {
		return driver.ErrCannotPresent
	}
	fmts := make([]vk.SurfaceFormatKHR, nfmt)
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormatsKHR(s.d.pdev, s.sf, &nfmt, fmts)); err != nil {
		return err
	}
	for i := range fmts {
		fmts[i].Deref()
	}
	prefFmts := []struct {
		pf  driver.PixelFmt
		fmt vk.Format
	}{
		{driver.RGBA8sRGB, vk.FormatR8g8b8a8Srgb},
		{driver.BGRA8sRGB, vk.FormatB8g8r8a8Srgb},
		{driver.RGBA8un, vk.FormatR8g8b8a8Unorm},
		{driver.BGRA8un, vk.FormatB8g8r8a8Unorm},
		{driver.RGBA16f, vk.FormatR16g16b16a16Sfloat},
	}
	ifmt := -1
fmtLoop:
	for i := range prefFmts {
		for j := range fmts {
			if prefFmts[i].fmt == fmts[j].Format {
				s.pf = prefFmts[i].pf
				ifmt = j
				break fmtLoop
			}
		}
	}
	if ifmt == -1 {
		if len(fmts) == 1 && fmts[0].Format == vk.FormatUndefined {
			// Advertising VK_FORMAT_UNDEFINED means that any
			// format may be used.
			fmts[0].Format = prefFmts[0].fmt
			fmts[0].ColorSpace = vk.ColorSpaceSrgbNonlinear
			s.pf = prefFmts[0].pf
			ifmt = 0
		} else {
			return driver.ErrCannotPresent
		}
	}

	// Present mode. FIFO is the only mode guaranteed to be
	// supported, and matches the teacher's choice of favoring
	// low latency (i.e., not buffering beyond the minimum) over
	// throughput.
	mode := vk.PresentModeFifoKhr

	oldSC := s.sc
	info := vk.SwapchainCreateInfoKHR{
		SType:            vk.StructureTypeSwapchainCreateInfoKhr,
		Surface:          s.sf,
		MinImageCount:    nimg,
		ImageFormat:      fmts[ifmt].Format,
		ImageColorSpace:  fmts[ifmt].ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     xform,
		CompositeAlpha:   calpha,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     oldSC,
	}
	var sc vk.SwapchainKHR
	res := vk.CreateSwapchainKHR(s.d.dev, &info, nil, &sc)
	if oldSC != nil {
		vk.DestroySwapchainKHR(s.d.dev, oldSC, nil)
	}
	if err := checkResult(res); err != nil {
		s.sc = nil
		return err
	}
	s.sc = sc
	s.minImg = int(capab.MinImageCount)
	s.curImg = 0
	return nil
}

// newViews creates new image views from s.sc. It sets the imgs
// and views fields of s, destroying any views it is replacing.
func (s *swapchain) newViews() error {
	var nimg uint32
	if err := checkResult(vk.GetSwapchainImagesKHR(s.d.dev, s.sc, &nimg, nil)); err != nil {
		return err
	}
	s.imgs = make([]vk.Image, nimg)
	if err := checkResult(vk.GetSwapchainImagesKHR(s.d.dev, s.sc, &nimg, s.imgs)); err != nil {
		return err
	}

	for _, v := range s.views {
		v.Destroy()
	}
	s.views = make([]driver.ImageView, nimg)

	aspect := aspectOf(s.pf)
	for i := range s.views {
		info := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    s.imgs[i],
			ViewType: vk.ImageViewType2d,
			Format:   pixelFmt(s.pf),
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(aspect),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(s.d.dev, &info, nil, &view); res != vk.Success {
			for j := 0; j < i; j++ {
				s.views[j].Destroy()
			}
			s.views = nil
			return checkResult(res)
		}
		s.views[i] = &imageView{
			d:       s.d,
			handle:  view,
			img:     s.imgs[i],
			aspect:  aspect,
			layers:  1,
			levels:  1,
			sc:      s,
			scIndex: i,
		}
	}
	return nil
}

// syncSetup creates the semaphores used to synchronize
// acquisition and presentation of s's views. It sets the
// acqSems, presSems, viewSync and syncUsed fields of s. The
// caller must ensure that no semaphore is in use (i.e. no image
// is acquired) before calling this method.
func (s *swapchain) syncSetup() error {
	if len(s.viewSync) != len(s.views) {
		s.viewSync = make([]int, len(s.views))
	}
	nslot := 1 + len(s.views) - s.minImg
	if len(s.syncUsed) != nslot {
		s.syncUsed = make([]bool, nslot)
	}

	grow := func(sems *[]vk.Semaphore, n int) error {
		i := len(*sems)
		switch {
		case i < n:
			info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
			for ; i < n; i++ {
				var sem vk.Semaphore
				if res := vk.CreateSemaphore(s.d.dev, &info, nil, &sem); res != vk.Success {
					return checkResult(res)
				}
				*sems = append(*sems, sem)
			}
		case i > n:
			for ; i > n; i-- {
				vk.DestroySemaphore(s.d.dev, (*sems)[i-1], nil)
			}
			*sems = (*sems)[:n]
		}
		return nil
	}
	if err := grow(&s.acqSems, nslot); err != nil {
		return err
	}
	if err := grow(&s.presSems, len(s.views)); err != nil {
		return err
	}
	return nil
}

// Views returns the list of image views that comprise the
// swapchain.
func (s *swapchain) Views() []driver.ImageView {
	views := make([]driver.ImageView, len(s.views))
	copy(views, s.views)
	return views
}

// Next returns the index of the next writable image view.
func (s *swapchain) Next(cb driver.CmdBuffer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return -1, driver.ErrSwapchain
	}
	if s.curImg > len(s.views)-s.minImg {
		return -1, driver.ErrNoBackbuffer
	}
	slot := -1
	for i := range s.syncUsed {
		if !s.syncUsed[i] {
			slot = i
			break
		}
	}
	if slot == -1 {
		// curImg's bound above should make this unreachable.
		panic("vk: no swapchain sync data to use")
	}

	c := cb.(*cmdBuffer)
	if err := c.Begin(); err != nil {
		return -1, err
	}
	var idx uint32
	res := vk.AcquireNextImageKHR(s.d.dev, s.sc, ^uint64(0), s.acqSems[slot], nil, &idx)
	switch res {
	case vk.Success, vk.SuboptimalKhr:
		s.curImg++
		s.viewSync[idx] = slot
		s.syncUsed[slot] = true
		c.sc = s
		c.scView = int(idx)
		c.scAcquire = s.acqSems[slot]
		c.scPres = false
		c.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncAfter:    driver.SColorOutput,
				AccessAfter:  driver.AColorWrite,
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  driver.LColorTarget,
			IView:        s.views[idx],
		}})
		if res == vk.SuboptimalKhr {
			s.broken = true
			return int(idx), driver.ErrSwapchain
		}
		return int(idx), nil
	case vk.ErrorOutOfDateKhr:
		s.broken = true
		return -1, driver.ErrSwapchain
	default:
		if err := checkResult(res); err != nil {
			return -1, err
		}
		return -1, errUnknown
	}
}

// Present presents the image view identified by index.
func (s *swapchain) Present(index int, cb driver.CmdBuffer) error {
	if s.broken {
		return driver.ErrSwapchain
	}
	c := cb.(*cmdBuffer)
	if err := c.Begin(); err != nil {
		return err
	}
	c.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SColorOutput,
			AccessBefore: driver.AColorWrite,
		},
		LayoutBefore: driver.LColorTarget,
		LayoutAfter:  driver.LPresent,
		IView:        s.views[index],
	}})
	c.sc = s
	c.scView = index
	c.scPres = true
	return nil
}

// presentSemaphore returns the semaphore that Commit must signal
// once the submission containing the Present-recorded transition
// has been queued, and that the present request itself waits on.
func (s *swapchain) presentSemaphore(index int) (vk.Semaphore, error) {
	if index < 0 || index >= len(s.presSems) {
		return nil, errUnknown
	}
	return s.presSems[index], nil
}

// present enqueues the image identified by index for
// presentation, waiting on sem before the presentation engine
// reads from it. It assumes that Next and Present were already
// called for index and that the command buffer(s) they targeted
// have been submitted for execution.
func (s *swapchain) present(index int, sem vk.Semaphore) error {
	idx := uint32(index)
	info := vk.PresentInfoKHR{
		SType:              vk.StructureTypePresentInfoKhr,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sem},
		SwapchainCount:     1,
		PSwapchains:        []vk.SwapchainKHR{s.sc},
		PImageIndices:      []uint32{idx},
	}
	s.mu.Lock()
	s.d.qmus[s.d.qfam].Lock()
	res := vk.QueuePresentKHR(s.d.ques[s.d.qfam], &info)
	s.d.qmus[s.d.qfam].Unlock()
	if res == vk.Success || res == vk.SuboptimalKhr {
		s.curImg--
		s.syncUsed[s.viewSync[index]] = false
	}
	s.mu.Unlock()
	switch res {
	case vk.Success:
		return nil
	case vk.SuboptimalKhr, vk.ErrorOutOfDateKhr:
		s.broken = true
		return driver.ErrSwapchain
	default:
		if err := checkResult(res); err != nil {
			return err
		}
		return errUnknown
	}
}

// Recreate recreates the swapchain, e.g. in response to a
// driver.ErrSwapchain error or a window resize.
func (s *swapchain) Recreate() error {
	vk.QueueWaitIdle(s.d.ques[s.d.qfam])
	if err := s.initSwapchain(len(s.views)); err != nil {
		return err
	}
	if err := s.newViews(); err != nil {
		return err
	}
	if err := s.syncSetup(); err != nil {
		return err
	}
	s.curImg = 0
	for i := range s.syncUsed {
		s.syncUsed[i] = false
	}
	s.broken = false
	return nil
}

// Format returns the image views' PixelFmt.
func (s *swapchain) Format() driver.PixelFmt { return s.pf }

// Destroy destroys the swapchain.
func (s *swapchain) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil {
		vk.QueueWaitIdle(s.d.ques[s.d.qfam])
		for _, sem := range s.acqSems {
			vk.DestroySemaphore(s.d.dev, sem, nil)
		}
		for _, sem := range s.presSems {
			vk.DestroySemaphore(s.d.dev, sem, nil)
		}
		for _, v := range s.views {
			v.Destroy()
		}
		if s.sc != nil {
			vk.DestroySwapchainKHR(s.d.dev, s.sc, nil)
		}
		if s.sf != nil {
			vk.DestroySurfaceKHR(s.d.inst, s.sf, nil)
		}
	}
	*s = swapchain{}
}
