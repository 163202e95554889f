// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build !linux

package driver

// closeExternalHandle is a no-op on platforms whose exported
// handle type is owned by the consumer once Export returns
// (Win32 HANDLE, AHardwareBuffer).
func closeExternalHandle(h *ExternalHandle) error { return nil }
