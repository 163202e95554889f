// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package wsi is the bridge between a host application's window and
// the GPU driver's presentation backend (driver/vk's swapchain
// surface creation). The compositor core has no window system of
// its own to create, map, or pump events for (spec.md §1: "the core
// only requires a Target abstraction"; windowing and presentation
// backends are explicitly out of scope) — whatever process embeds
// this module owns the window, and registers its native handle here
// so driver/vk can build a VkSurfaceKHR from it.
package wsi

import (
	"sync/atomic"
	"unsafe"
)

// Window is the single capability the GPU driver's presentation
// backend needs from a host-supplied window: its current drawable
// size, read whenever a swapchain is (re)created
// (driver/vk/present.go's fallback when the surface reports no
// current extent). A Window also satisfies one of the platform
// handle interfaces below (xcbWindow or win32Window) so its native
// id can be extracted without this package needing to own window
// creation.
type Window interface {
	Width() int
	Height() int
}

// Platform identifies which native windowing system's handles are
// currently registered with this package.
type Platform int32

const (
	// Dummy means no native handles are registered; driver/vk treats
	// this the same as "no presentation support".
	Dummy Platform = iota
	XCB
	Win32
	Wayland
)

var platform atomic.Int32

// PlatformInUse reports which windowing system SetXCB/SetWin32/
// SetWayland most recently registered.
func PlatformInUse() Platform { return Platform(platform.Load()) }

// xcbWindow is implemented by a host's Window when it is backed by
// an XCB window, letting WindowXCB read the native id by duck typing
// instead of this package asserting against a concrete type it
// would otherwise have to define and construct itself.
type xcbWindow interface {
	XCBWindow() uint32
}

// win32Window is the Win32 analogue of xcbWindow.
type win32Window interface {
	HWND() unsafe.Pointer
}

var (
	xcbConn    unsafe.Pointer
	win32Hinst unsafe.Pointer
	waylandDpy unsafe.Pointer
)

// SetXCB registers the process-wide XCB connection a host
// application has opened (the C xcb_connection_t*), switching
// PlatformInUse to XCB.
func SetXCB(conn unsafe.Pointer) {
	xcbConn = conn
	platform.Store(int32(XCB))
}

// ConnXCB returns the connection registered by SetXCB.
// It must not be called if XCB is not the platform in use.
func ConnXCB() unsafe.Pointer { return xcbConn }

// WindowXCB returns the XCB window id of win, or 0 if win does not
// implement xcbWindow.
func WindowXCB(win Window) uint32 {
	if w, ok := win.(xcbWindow); ok {
		return w.XCBWindow()
	}
	return 0
}

// SetWin32 registers the process-wide HINSTANCE a host application
// was created with, switching PlatformInUse to Win32.
func SetWin32(hinst unsafe.Pointer) {
	win32Hinst = hinst
	platform.Store(int32(Win32))
}

// HinstWin32 returns the instance handle registered by SetWin32.
// It must not be called if Win32 is not the platform in use.
func HinstWin32() unsafe.Pointer { return win32Hinst }

// HwndWin32 returns the HWND of win, or nil if win does not
// implement win32Window.
func HwndWin32(win Window) unsafe.Pointer {
	if w, ok := win.(win32Window); ok {
		return w.HWND()
	}
	return nil
}

// SetWayland registers the process-wide wl_display a host
// application has connected to, switching PlatformInUse to Wayland.
// driver/vk has no Wayland surface creation path yet (see
// driver/vk/present.go), so this exists only to complete the
// Platform enumeration and to let a host's detection code be uniform
// across platforms.
func SetWayland(dpy unsafe.Pointer) {
	waylandDpy = dpy
	platform.Store(int32(Wayland))
}

// DisplayWayland returns the display registered by SetWayland.
func DisplayWayland() unsafe.Pointer { return waylandDpy }
