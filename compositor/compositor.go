// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package compositor implements the renderer orchestrator: the
// per-frame state machine that ties the pacer, the target, the
// layer/distortion renderer, the scratch images, and the resource
// store together (spec.md §4.9).
package compositor

import (
	"errors"
	"log"

	"xrcompositor/driver"
	"xrcompositor/internal/ctxt"
	"xrcompositor/pacer"
	"xrcompositor/render"
	"xrcompositor/resources"
	"xrcompositor/scratch"
	"xrcompositor/session"
	"xrcompositor/target"
	"xrcompositor/xmath"
)

const compPrefix = "compositor: "

// nFrame is the number of command buffers kept in flight, matching
// engine/renderer.go's Renderer.cb ring (NFrame).
const nFrame = 2

// eagerReacquireSlopNs is how far past the desired present time
// step 12's eager reacquire may run before it is worth a warning
// (spec.md §4.9 step 12: "warn if the wait exceeds 1 ms beyond the
// desired present time").
const eagerReacquireSlopNs = 1_000_000

// ErrFrameDropped is returned by RenderFrame when the target was not
// ready and the frame's marks were emulated and discarded (spec.md
// §4.9 step 3). It is not a failure: the caller should simply
// proceed to the next frame.
var ErrFrameDropped = errors.New(compPrefix + "frame dropped: target not ready")

// ViewInput is one eye's application-facing state for a frame: pose,
// field of view, and the layer list already resolved by whatever
// composes application swapchains into layers. Everything else a
// render.View needs (scratch images, target rect, timewarp matrix)
// is derived by the Compositor itself.
type ViewInput struct {
	WorldPose xmath.Pose
	EyePose   xmath.Pose
	FOV       render.FOV
	Layers    []render.Layer

	TargetViewportRect driver.Viewport
	TargetPreTransform xmath.Mat4
}

// FrameInput is the application-facing state for one frame.
type FrameInput struct {
	Views []ViewInput

	// FastPath requests the single-projection-layer fast path when
	// every view also qualifies (spec.md §4.5).
	FastPath bool
	// DoTimewarp requests that each view's VertexRot/UnormView
	// recorders apply the timewarp correction.
	DoTimewarp bool
}

// Stats summarizes one RenderFrame call for callers that want to
// surface live statistics (config.Pacing.LiveStats).
type Stats struct {
	FrameID     uint64
	Dropped     bool
	Recreated   bool
	GPUNanos    float64
	GPUTimingOK bool
}

// Compositor drives the per-frame state machine described in
// spec.md §4.9, adapted from engine/renderer.go's Renderer/Onscreen
// pairing: where that type owns a fixed scene and a single
// swapchain, Compositor owns a Target (onscreen or offscreen) plus
// the scratch/render/resources trio this module builds in its
// place.
type Compositor struct {
	targ       target.Target
	targetInfo target.CreateInfo
	pace       *pacer.Pacer
	res        *resources.Store
	scr        []*scratch.Set
	sessions   *session.System

	useCompute bool

	cb   [nFrame]driver.CmdBuffer
	free chan driver.CmdBuffer

	acquired      bool
	acquiredIndex int
}

// Config parameterizes New.
type Config struct {
	Target     target.Target
	TargetInfo target.CreateInfo
	Pacer      *pacer.Pacer
	Resources  *resources.Store
	// Scratch holds one scratch.Set per view slot, created with
	// scratch.NewSingle (§4.3's non-arrayed scratch image). A
	// multiview-array scratch.NewStereo set would let one draw cover
	// both eyes at once, but DispatchData's per-view ScratchImage/
	// SRGBView shape is simplest to drive from one independent set
	// per view; see DESIGN.md.
	Scratch  []*scratch.Set
	Sessions *session.System
	UseCompute bool
}

// New creates a Compositor from already-constructed subsystems; it
// does not own their lifetime beyond Close's command-buffer ring.
func New(cfg Config) (*Compositor, error) {
	c := &Compositor{
		targ:       cfg.Target,
		targetInfo: cfg.TargetInfo,
		pace:       cfg.Pacer,
		res:        cfg.Resources,
		scr:        cfg.Scratch,
		sessions:   cfg.Sessions,
		useCompute: cfg.UseCompute,
	}
	c.free = make(chan driver.CmdBuffer, nFrame)
	for i := range c.cb {
		cb, err := ctxt.GPU().NewCmdBuffer()
		if err != nil {
			c.Close()
			return nil, err
		}
		c.cb[i] = cb
		c.free <- cb
	}
	if err := c.targ.CreateImages(c.targetInfo); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close destroys the command buffers the Compositor created. It
// does not destroy the Target, Store, Scratch, or System it was
// given, since those are shared with whatever constructed them.
func (c *Compositor) Close() {
	if c == nil {
		return
	}
	for _, cb := range c.cb {
		if cb != nil {
			cb.Destroy()
		}
	}
	*c = Compositor{}
}

// drainQueue is the frame loop's queue-idle step (spec.md §5's
// "queue_wait_idle"), which the trimmed driver.GPU has no dedicated
// call for. It does not block: it takes back only the command
// buffers that are in c.free at the time of the call and returns
// them, and it does not wait for buffers still held elsewhere (such
// as the one the current frame uses) or for GPU work to complete.
func (c *Compositor) drainQueue() error {
	taken := make([]driver.CmdBuffer, 0, nFrame)
	for i := 0; i < nFrame; i++ {
		select {
		case cb := <-c.free:
			taken = append(taken, cb)
		default:
		}
	}
	for _, cb := range taken {
		c.free <- cb
	}
	return nil
}

// RenderFrame runs one iteration of the 12-step sequence in spec.md
// §4.9. nowNs is the caller's current monotonic time; a real runtime
// would sleep until the predicted wake-up time between steps 1 and
// 2, which RenderFrame does not do (it is driven synchronously by
// the caller, e.g. cmd/compgen's loop or a test).
//
// A device-lost error (driver.ErrFatal) surfaces to the session
// layer as an EventLost broadcast before being returned (spec.md
// §7: "errors that invalidate the device... must surface as
// VULKAN_ERROR to the session layer, which then emits a LOST event
// on the broadcast sink").
func (c *Compositor) RenderFrame(nowNs int64, in FrameInput) (stats Stats, err error) {
	defer func() {
		if errors.Is(err, driver.ErrFatal) && c.sessions != nil {
			c.sessions.BroadcastEvent(session.Event{Type: session.EventLost})
		}
	}()
	return c.renderFrame(nowNs, in)
}

func (c *Compositor) renderFrame(nowNs int64, in FrameInput) (Stats, error) {
	pred := c.pace.Predict(nowNs) // step 1: predict, "waited"
	stats := Stats{FrameID: pred.FrameID}

	c.pace.MarkPoint(pacer.WakeUp, pred.FrameID, nowNs) // step 2: wake
	c.targ.MarkBegin(pred.FrameID, nowNs)

	if !c.targ.CheckReady() { // step 3: not ready, drop
		c.pace.MarkPoint(pacer.Begin, pred.FrameID, nowNs)
		c.pace.MarkPoint(pacer.SubmitBegin, pred.FrameID, nowNs)
		c.pace.MarkPoint(pacer.SubmitEnd, pred.FrameID, nowNs)
		c.targ.SubmitBegin(pred.FrameID, nowNs)
		c.targ.SubmitEnd(pred.FrameID, nowNs)
		stats.Dropped = true
		return stats, ErrFrameDropped
	}

	if err := c.targ.Flush(); err != nil { // step 4
		return stats, err
	}
	c.targ.UpdateTimings()

	cb := <-c.free
	defer func() { c.free <- cb }()

	if !c.acquired { // step 5
		idx, err := target.AcquireRetry(c.targ, c.targetInfo, c.drainQueue, cb)
		if err != nil {
			return stats, err
		}
		c.acquiredIndex = idx
		c.acquired = true
		stats.Recreated = true
	}
	targetIndex := c.acquiredIndex
	c.acquired = false // consumed by this frame's Present below

	data, err := c.buildDispatchData(in, targetIndex) // step 6
	if err != nil {
		return stats, err
	}

	c.pace.MarkPoint(pacer.Begin, pred.FrameID, nowNs)
	if err := cb.Begin(); err != nil {
		return stats, err
	}
	c.res.Timestamps().Reset()
	cb.WriteTimestamp(c.res.Timestamps().Pool(), 0, driver.SNone)
	if err := render.Dispatch(cb, c.res, &data, c.useCompute); err != nil { // step 7
		return stats, err
	}
	cb.WriteTimestamp(c.res.Timestamps().Pool(), 1, driver.SAll)
	if err := cb.End(); err != nil {
		return stats, err
	}

	sems := c.targ.Semaphores()
	c.pace.MarkPoint(pacer.SubmitBegin, pred.FrameID, nowNs)
	c.targ.SubmitBegin(pred.FrameID, nowNs)
	wk := &driver.WorkItem{
		Work: []driver.CmdBuffer{cb},
		Wait: []driver.SemaphoreWait{{Sem: sems.PresentComplete, Stage: driver.SColorOutput}},
		Signal: []driver.SemaphoreSignal{{
			Sem:   sems.RenderComplete,
			Value: pred.FrameID,
			Stage: driver.SColorOutput,
		}},
	}
	done := make(chan *driver.WorkItem, 1)
	ctxt.GPU().Commit(wk, done)
	committed := <-done
	c.pace.MarkPoint(pacer.SubmitEnd, pred.FrameID, nowNs)
	c.targ.SubmitEnd(pred.FrameID, nowNs)
	if committed.Err != nil {
		return stats, committed.Err
	}

	// step 8: present.
	if err := target.PresentRetry(c.targ, c.targetInfo, c.drainQueue, cb, targetIndex, pred.FrameID, pred.DesiredPresentNs, pred.PresentSlopNs); err != nil {
		return stats, err
	}

	// step 9 (optional peek/mirror blit) is out of scope: nothing in
	// this module names a mirror-window consumer.

	if err := c.drainQueue(); err != nil { // step 10
		return stats, err
	}

	if dur, ok := c.res.Timestamps().GPUNanos(); ok { // step 11
		stats.GPUNanos, stats.GPUTimingOK = dur, true
		start := nowNs
		end := start + int64(dur)
		c.pace.InfoGPU(pred.FrameID, start, end, nowNs)
		c.targ.InfoGPU(pred.FrameID, start, end, nowNs)
	}
	c.pace.InfoPresent(pred.FrameID, pred.DesiredPresentNs, nowNs, pred.DesiredPresentNs, 0, nowNs)

	idx, err := c.targ.Acquire(cb) // step 12: eager reacquire
	if err == nil {
		c.acquiredIndex = idx
		c.acquired = true
	} else if !errors.Is(err, target.ErrOutOfDate) && !errors.Is(err, target.ErrSuboptimal) {
		log.Printf(compPrefix+"eager reacquire failed: %v", err)
	}
	if nowNs > pred.DesiredPresentNs+eagerReacquireSlopNs {
		log.Printf(compPrefix+"frame %d: eager reacquire ran %.2fms past desired present time",
			pred.FrameID, float64(nowNs-pred.DesiredPresentNs)/1e6)
	}

	return stats, nil
}
