// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package uid generates process-unique identifiers.
//
// A uid is used to key caches of imported resources, so that the
// reallocation of a heap address (or the recycling of a native
// handle) cannot produce a false cache hit: identifiers are never
// reused and never zero.
package uid

import "sync/atomic"

var next atomic.Uint64

// New returns a new process-unique identifier.
// The returned value is never zero and strictly greater than any
// value previously returned by New in this process.
func New() uint64 {
	return next.Add(1)
}
