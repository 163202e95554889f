// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package compositor

import (
	"errors"
	"testing"

	"xrcompositor/driver"
	"xrcompositor/pacer"
	"xrcompositor/session"
	"xrcompositor/target"
)

// fakeTarget is a minimal target.Target whose CheckReady is
// controllable, enough to exercise RenderFrame's drop-frame path
// (spec.md §4.9 step 3) without a GPU.
type fakeTarget struct {
	ready    bool
	flushErr error
}

func (f *fakeTarget) CheckReady() bool                      { return f.ready }
func (f *fakeTarget) CreateImages(info target.CreateInfo) error { return nil }
func (f *fakeTarget) HasImages() bool                        { return true }
func (f *fakeTarget) ImageCount() int                        { return 1 }
func (f *fakeTarget) Handle(i int) driver.Image               { return nil }
func (f *fakeTarget) View(i int) driver.ImageView              { return nil }
func (f *fakeTarget) Acquire(cb driver.CmdBuffer) (int, error) { return 0, nil }
func (f *fakeTarget) Present(cb driver.CmdBuffer, index int, signalValue uint64, desiredPresentNs, slopNs int64) error {
	return nil
}
func (f *fakeTarget) Flush() error {
	if f.flushErr != nil {
		return f.flushErr
	}
	return nil
}
func (f *fakeTarget) MarkBegin(id uint64, ns int64)                        {}
func (f *fakeTarget) SubmitBegin(id uint64, ns int64)                      {}
func (f *fakeTarget) SubmitEnd(id uint64, ns int64)                        {}
func (f *fakeTarget) InfoGPU(id uint64, startNs, endNs, whenNs int64)      {}
func (f *fakeTarget) UpdateTimings()                                       {}
func (f *fakeTarget) SurfaceTransform() target.SurfaceTransform           { return target.TransformIdentity }
func (f *fakeTarget) Semaphores() target.Semaphores                       { return target.Semaphores{} }
func (f *fakeTarget) Destroy()                                             {}

func TestRenderFrameDropsWhenTargetNotReady(t *testing.T) {
	c := &Compositor{
		targ: &fakeTarget{ready: false},
		pace: pacer.New(11_111_111),
	}
	stats, err := c.RenderFrame(0, FrameInput{})
	if !errors.Is(err, ErrFrameDropped) {
		t.Fatalf("RenderFrame error = %v, want ErrFrameDropped", err)
	}
	if !stats.Dropped {
		t.Error("stats.Dropped = false, want true")
	}
}

func TestRenderFrameBroadcastsLostOnDeviceLost(t *testing.T) {
	sys := session.NewSystem()
	s := &session.Session{}
	sys.AddSession(s)

	c := &Compositor{
		targ:     &fakeTarget{ready: true, flushErr: driver.ErrFatal},
		pace:     pacer.New(11_111_111),
		sessions: sys,
	}
	_, err := c.RenderFrame(0, FrameInput{})
	if !errors.Is(err, driver.ErrFatal) {
		t.Fatalf("RenderFrame error = %v, want driver.ErrFatal", err)
	}
	ev := s.PollEvents()
	if ev.Type != session.EventLost {
		t.Errorf("PollEvents = %+v, want Type = EventLost", ev)
	}
}

func TestViewportExtentRoundTrip(t *testing.T) {
	vp := driver.Viewport{Width: 640, Height: 480}
	ext := viewportExtent(vp)
	if ext.Width != 640 || ext.Height != 480 || ext.Depth != 1 {
		t.Errorf("viewportExtent = %+v, want {640 480 1}", ext)
	}
	back := viewportFromExtent(ext)
	if back.Width != 640 || back.Height != 480 || back.Zfar != 1 {
		t.Errorf("viewportFromExtent = %+v, want width/height 640/480, Zfar 1", back)
	}
}
