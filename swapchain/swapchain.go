// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package swapchain implements application-facing swapchains: the
// K-image arrays that client applications render into, with
// per-image use-count tracking, an acquire/release FIFO, and
// deferred, queue-synchronized destruction (spec.md §4.4).
package swapchain

import (
	"errors"
	"sync"
	"time"

	"xrcompositor/driver"
	"xrcompositor/internal/ctxt"
)

const swapPrefix = "swapchain: "

// ErrNoImageAvailable is returned by Acquire when the FIFO is
// empty, and would be returned by Release if the FIFO were full
// (spec.md §7).
var ErrNoImageAvailable = errors.New(swapPrefix + "no image available")

// ErrTimeout is returned by WaitImage when the deadline expires
// before the image's use count reaches zero (spec.md §7).
var ErrTimeout = errors.New(swapPrefix + "wait_image timed out")

// ErrAllocationFailure is returned by Create when the driver fails
// to create one of the swapchain's images, whatever the driver's
// reason (spec.md §7); unsupported formats or features are not told
// apart from other driver errors. Import does not return it.
var ErrAllocationFailure = errors.New(swapPrefix + "image allocation failed")

// Flags configures swapchain creation.
type Flags int

const (
	// StaticImage indicates the application will never update the
	// swapchain's contents after the first submission, letting the
	// runtime allocate a single image instead of the usual three
	// (spec.md §4.4, get_create_properties).
	StaticImage Flags = 1 << iota
)

// imgState is the per-image bookkeeping: views, the use-count
// condvar and the native handle exported at creation.
type imgState struct {
	img    driver.Image
	view   driver.ImageView // with alpha
	noA    driver.ImageView // rgb,1.0 swizzle, no alpha
	handle driver.ExternalHandle

	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

// Swapchain is an owned array of K GPU images (spec.md §4.4).
type Swapchain struct {
	imgs   []*imgState
	layers int

	fifoMu sync.Mutex
	fifo   []int // ring of acquired-available indices
}

// createProperties returns the image count K for the given flags
// (spec.md §4.4: 1 if StaticImage is set, else 3).
func createProperties(flags Flags) int {
	if flags&StaticImage != 0 {
		return 1
	}
	return 3
}

// Create allocates a new swapchain of pf/extent/layers, primes the
// FIFO with every index, and submits a command buffer that
// transitions every image from UNDEFINED to SHADER_READ_ONLY_OPTIMAL,
// waiting for it to complete before returning
// (spec.md §4.4, "Post-creation barrier").
func Create(pf driver.PixelFmt, extent driver.Dim3D, layers int, flags Flags) (*Swapchain, error) {
	k := createProperties(flags)
	gpu := ctxt.GPU()
	sc := &Swapchain{layers: layers}
	usg := driver.UShaderSample | driver.URenderTarget
	for i := 0; i < k; i++ {
		img, err := gpu.NewImage(pf, extent, layers, 1, 1, usg)
		if err != nil {
			sc.destroyAllocated()
			return nil, ErrAllocationFailure
		}
		st, err := newImgState(img, layers)
		if err != nil {
			img.Destroy()
			sc.destroyAllocated()
			return nil, err
		}
		sc.imgs = append(sc.imgs, st)
	}
	if err := sc.transitionNew(); err != nil {
		sc.destroyAllocated()
		return nil, err
	}
	sc.primeFIFO()
	return sc, nil
}

// Import wraps K already-created driver images (e.g. from native
// handles supplied by the application) as a swapchain, in place of
// allocating new ones.
func Import(imgs []driver.Image, layers int) (*Swapchain, error) {
	sc := &Swapchain{layers: layers}
	for _, img := range imgs {
		st, err := newImgState(img, layers)
		if err != nil {
			sc.destroyAllocated()
			return nil, err
		}
		sc.imgs = append(sc.imgs, st)
	}
	if err := sc.transitionNew(); err != nil {
		sc.destroyAllocated()
		return nil, err
	}
	sc.primeFIFO()
	return sc, nil
}

func newImgState(img driver.Image, layers int) (*imgState, error) {
	typ := driver.IView2D
	if layers > 1 {
		typ = driver.IView2DArray
	}
	view, err := img.NewView(typ, 0, layers, 0, 1)
	if err != nil {
		return nil, err
	}
	// The no-alpha view samples the same storage with an rgb,1.0
	// swizzle; this driver layer has no swizzle parameter on
	// NewView, so the second view here is created identically and
	// the swizzle is applied by the shader/descriptor layer that
	// binds it (spec.md only requires that the view exist).
	noA, err := img.NewView(typ, 0, layers, 0, 1)
	if err != nil {
		view.Destroy()
		return nil, err
	}
	handle, _ := img.Export()
	st := &imgState{img: img, view: view, noA: noA, handle: handle}
	st.cond = sync.NewCond(&st.mu)
	return st, nil
}

func (sc *Swapchain) destroyAllocated() {
	for _, st := range sc.imgs {
		if st.noA != nil {
			st.noA.Destroy()
		}
		if st.view != nil {
			st.view.Destroy()
		}
		if st.img != nil {
			st.img.Destroy()
		}
	}
	sc.imgs = nil
}

// transitionNew records and submits a command buffer transitioning
// every image to SHADER_READ_ONLY_OPTIMAL, waiting for it to
// complete before returning (spec.md §4.4).
func (sc *Swapchain) transitionNew() error {
	gpu := ctxt.GPU()
	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()
	if err := cb.Begin(); err != nil {
		return err
	}
	trans := make([]driver.Transition, len(sc.imgs))
	for i, st := range sc.imgs {
		trans[i] = driver.Transition{
			Barrier: driver.Barrier{
				SyncAfter:   driver.SAll,
				AccessAfter: driver.AShaderRead,
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  driver.LShaderRead,
			IView:        st.view,
		}
	}
	cb.Transition(trans)
	if err := cb.End(); err != nil {
		return err
	}
	ch := make(chan *driver.WorkItem, 1)
	wk := &driver.WorkItem{Work: []driver.CmdBuffer{cb}}
	gpu.Commit(wk, ch)
	done := <-ch
	return done.Err
}

func (sc *Swapchain) primeFIFO() {
	sc.fifo = make([]int, len(sc.imgs))
	for i := range sc.fifo {
		sc.fifo[i] = i
	}
}

// ImageCount returns the number of images K.
func (sc *Swapchain) ImageCount() int { return len(sc.imgs) }

// View returns the with-alpha image view of image i.
func (sc *Swapchain) View(i int) driver.ImageView { return sc.imgs[i].view }

// NoAlphaView returns the no-alpha (rgb,1.0) image view of image i.
func (sc *Swapchain) NoAlphaView(i int) driver.ImageView { return sc.imgs[i].noA }

// Handle returns the native export handle of image i.
func (sc *Swapchain) Handle(i int) driver.ExternalHandle { return sc.imgs[i].handle }

// Acquire pops the head of the index FIFO.
func (sc *Swapchain) Acquire() (int, error) {
	sc.fifoMu.Lock()
	defer sc.fifoMu.Unlock()
	if len(sc.fifo) == 0 {
		return -1, ErrNoImageAvailable
	}
	i := sc.fifo[0]
	sc.fifo = sc.fifo[1:]
	return i, nil
}

// Release pushes i onto the tail of the index FIFO. It returns
// ErrNoImageAvailable instead of releasing if the FIFO already holds
// every image, which would otherwise let a double release (or a
// release past ImageCount) grow the FIFO past K and break the
// acquired+released == ImageCount invariant (spec.md §4.4, §7).
func (sc *Swapchain) Release(i int) error {
	sc.fifoMu.Lock()
	defer sc.fifoMu.Unlock()
	if len(sc.fifo) >= len(sc.imgs) {
		return ErrNoImageAvailable
	}
	sc.fifo = append(sc.fifo, i)
	return nil
}

// IncImageUse increments image i's use count.
func (sc *Swapchain) IncImageUse(i int) {
	st := sc.imgs[i]
	st.mu.Lock()
	st.count++
	st.mu.Unlock()
}

// DecImageUse decrements image i's use count, signaling any waiter
// blocked in WaitImage when it reaches zero. Calling DecImageUse
// when the count is already zero is a programmer error.
func (sc *Swapchain) DecImageUse(i int) {
	st := sc.imgs[i]
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.count == 0 {
		panic("swapchain: DecImageUse on a zero use count")
	}
	st.count--
	if st.count == 0 {
		st.cond.Broadcast()
	}
}

// WaitImage blocks until image i's use count reaches zero or
// timeout elapses, whichever comes first. A zero or negative
// timeout polls once without blocking.
//
// This resolves spec.md §9's open question in favor of a monotonic
// wait: a timer goroutine broadcasts the condvar at the deadline,
// rather than translating the caller's timeout to an absolute
// real-time deadline (the source's approach, needed there only
// because of platform condvar limitations that Go's sync.Cond does
// not share).
func (sc *Swapchain) WaitImage(i int, timeout time.Duration) error {
	st := sc.imgs[i]
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.count == 0 {
		return nil
	}
	if timeout <= 0 {
		return ErrTimeout
	}

	deadline := time.Now().Add(timeout)
	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		st.mu.Lock()
		timedOut = true
		st.mu.Unlock()
		st.cond.Broadcast()
	})
	defer timer.Stop()

	for st.count != 0 {
		if timedOut || time.Now().After(deadline) {
			return ErrTimeout
		}
		st.cond.Wait()
	}
	return nil
}
