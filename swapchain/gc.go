// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package swapchain

import (
	"sync/atomic"

	"xrcompositor/driver"
	"xrcompositor/internal/ctxt"
)

// gcNode is one entry of the lock-free garbage-collection stack
// that destruction requests are pushed onto (spec.md §4.4,
// "requested destructs are pushed to a lock-free garbage-collection
// stack").
type gcNode struct {
	sc   *Swapchain
	next *gcNode
}

var gcTop atomic.Pointer[gcNode]

// Destroy requests destruction of sc. It does not block: the
// swapchain is pushed onto a lock-free stack and the actual
// release of GPU memory happens on a later call to Drain, from the
// compositor thread (spec.md §4.4, §5 — "drained only by compositor
// thread").
func Destroy(sc *Swapchain) {
	n := &gcNode{sc: sc}
	for {
		top := gcTop.Load()
		n.next = top
		if gcTop.CompareAndSwap(top, n) {
			return
		}
	}
}

// Drain pops every swapchain currently queued for destruction and
// releases their GPU resources, waiting for the device queue to go
// idle exactly once before destroying any view or image (spec.md
// §4.4: "must wait on queue-idle (once) before destroying views and
// images").
func Drain() {
	var top *gcNode
	for {
		t := gcTop.Load()
		if gcTop.CompareAndSwap(t, nil) {
			top = t
			break
		}
	}
	if top == nil {
		return
	}
	waitQueueIdle()
	for n := top; n != nil; n = n.next {
		n.sc.destroyAllocated()
	}
}

// waitQueueIdle blocks until every command buffer previously
// committed on the compositor's queue has finished executing. The
// driver abstraction has no direct "queue wait idle" call, so this
// submits an empty command buffer and waits for its own completion
// signal: submissions on a given queue execute in the order they
// were committed, so this empty submission cannot complete before
// everything already queued ahead of it has.
func waitQueueIdle() {
	gpu := ctxt.GPU()
	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		return
	}
	defer cb.Destroy()
	if err := cb.Begin(); err != nil {
		return
	}
	if err := cb.End(); err != nil {
		return
	}
	ch := make(chan *driver.WorkItem, 1)
	gpu.Commit(&driver.WorkItem{Work: []driver.CmdBuffer{cb}}, ch)
	<-ch
}
