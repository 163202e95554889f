// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package wsi

import (
	"testing"
	"unsafe"
)

// fakeXCBWindow satisfies both Window and xcbWindow without any
// real XCB connection, exercising WindowXCB's duck typing.
type fakeXCBWindow struct {
	w, h int
	id   uint32
}

func (f *fakeXCBWindow) Width() int       { return f.w }
func (f *fakeXCBWindow) Height() int      { return f.h }
func (f *fakeXCBWindow) XCBWindow() uint32 { return f.id }

// fakeWin32Window is the Win32 analogue.
type fakeWin32Window struct {
	w, h int
	hwnd unsafe.Pointer
}

func (f *fakeWin32Window) Width() int            { return f.w }
func (f *fakeWin32Window) Height() int           { return f.h }
func (f *fakeWin32Window) HWND() unsafe.Pointer { return f.hwnd }

// plainWindow implements only Window, as a host window backed by a
// windowing system this package has no handle accessor for.
type plainWindow struct{ w, h int }

func (p *plainWindow) Width() int  { return p.w }
func (p *plainWindow) Height() int { return p.h }

func TestWindowXCBDuckTypes(t *testing.T) {
	win := &fakeXCBWindow{w: 640, h: 480, id: 42}
	if got := WindowXCB(win); got != 42 {
		t.Errorf("WindowXCB = %d, want 42", got)
	}
}

func TestWindowXCBFallsBackToZero(t *testing.T) {
	win := &plainWindow{w: 640, h: 480}
	if got := WindowXCB(win); got != 0 {
		t.Errorf("WindowXCB = %d, want 0 for a non-XCB window", got)
	}
}

func TestHwndWin32DuckTypes(t *testing.T) {
	var sentinel int
	win := &fakeWin32Window{w: 1280, h: 720, hwnd: unsafe.Pointer(&sentinel)}
	if got := HwndWin32(win); got != unsafe.Pointer(&sentinel) {
		t.Errorf("HwndWin32 = %p, want %p", got, unsafe.Pointer(&sentinel))
	}
}

func TestHwndWin32FallsBackToNil(t *testing.T) {
	win := &plainWindow{w: 1280, h: 720}
	if got := HwndWin32(win); got != nil {
		t.Errorf("HwndWin32 = %p, want nil for a non-Win32 window", got)
	}
}

func TestPlatformInUseTracksSetCalls(t *testing.T) {
	SetXCB(unsafe.Pointer(&struct{}{}))
	if PlatformInUse() != XCB {
		t.Errorf("PlatformInUse = %v, want XCB", PlatformInUse())
	}
	SetWin32(unsafe.Pointer(&struct{}{}))
	if PlatformInUse() != Win32 {
		t.Errorf("PlatformInUse = %v, want Win32", PlatformInUse())
	}
	SetWayland(unsafe.Pointer(&struct{}{}))
	if PlatformInUse() != Wayland {
		t.Errorf("PlatformInUse = %v, want Wayland", PlatformInUse())
	}
}

func TestConnAndHinstRoundTrip(t *testing.T) {
	var conn, hinst int
	SetXCB(unsafe.Pointer(&conn))
	if ConnXCB() != unsafe.Pointer(&conn) {
		t.Error("ConnXCB did not return the value passed to SetXCB")
	}
	SetWin32(unsafe.Pointer(&hinst))
	if HinstWin32() != unsafe.Pointer(&hinst) {
		t.Error("HinstWin32 did not return the value passed to SetWin32")
	}
}
