// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import "golang.org/x/sys/unix"

// closeExternalHandle closes the Linux file descriptor backing
// h, if any was set.
func closeExternalHandle(h *ExternalHandle) error {
	if h.FD <= 0 {
		return nil
	}
	return unix.Close(h.FD)
}
