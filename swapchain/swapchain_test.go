// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package swapchain

import (
	"sync"
	"testing"
	"time"
)

func TestCreatePropertiesStaticImage(t *testing.T) {
	if k := createProperties(StaticImage); k != 1 {
		t.Errorf("createProperties(StaticImage) = %d, want 1", k)
	}
	if k := createProperties(0); k != 3 {
		t.Errorf("createProperties(0) = %d, want 3", k)
	}
}

func newTestImgState() *imgState {
	st := &imgState{}
	st.cond = sync.NewCond(&st.mu)
	return st
}

func TestWaitImageNoBlockWhenUnused(t *testing.T) {
	sc := &Swapchain{imgs: []*imgState{newTestImgState()}}
	done := make(chan error, 1)
	go func() { done <- sc.WaitImage(0, time.Second) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitImage = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitImage blocked despite zero use count")
	}
}

func TestWaitImageTimeout(t *testing.T) {
	sc := &Swapchain{imgs: []*imgState{newTestImgState()}}
	sc.IncImageUse(0)
	err := sc.WaitImage(0, 20*time.Millisecond)
	if err != ErrTimeout {
		t.Errorf("WaitImage = %v, want ErrTimeout", err)
	}
}

func TestWaitImageWokenByDec(t *testing.T) {
	sc := &Swapchain{imgs: []*imgState{newTestImgState()}}
	sc.IncImageUse(0)
	done := make(chan error, 1)
	go func() { done <- sc.WaitImage(0, time.Second) }()
	time.Sleep(10 * time.Millisecond)
	sc.DecImageUse(0)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitImage = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitImage did not wake on DecImageUse")
	}
}

func TestDecImageUseOnZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("DecImageUse on zero count did not panic")
		}
	}()
	sc := &Swapchain{imgs: []*imgState{newTestImgState()}}
	sc.DecImageUse(0)
}

func TestAcquireReleaseFIFO(t *testing.T) {
	sc := &Swapchain{imgs: []*imgState{newTestImgState(), newTestImgState(), newTestImgState()}}
	sc.primeFIFO()
	for i := 0; i < 3; i++ {
		idx, err := sc.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if idx != i {
			t.Errorf("Acquire = %d, want %d", idx, i)
		}
	}
	if _, err := sc.Acquire(); err != ErrNoImageAvailable {
		t.Errorf("Acquire on empty FIFO = %v, want ErrNoImageAvailable", err)
	}
	if err := sc.Release(1); err != nil {
		t.Fatalf("Release: %v", err)
	}
	idx, err := sc.Acquire()
	if err != nil || idx != 1 {
		t.Errorf("Acquire after Release = (%d, %v), want (1, nil)", idx, err)
	}
}

func TestReleaseRejectsWhenFIFOFull(t *testing.T) {
	sc := &Swapchain{imgs: []*imgState{newTestImgState(), newTestImgState()}}
	sc.primeFIFO()
	if err := sc.Release(0); err != ErrNoImageAvailable {
		t.Errorf("Release on a full FIFO = %v, want ErrNoImageAvailable", err)
	}
	if len(sc.fifo) != len(sc.imgs) {
		t.Errorf("len(fifo) = %d after rejected Release, want %d", len(sc.fifo), len(sc.imgs))
	}

	if _, err := sc.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := sc.Release(0); err != nil {
		t.Errorf("Release after a matching Acquire: %v", err)
	}
	if err := sc.Release(0); err != ErrNoImageAvailable {
		t.Errorf("double Release = %v, want ErrNoImageAvailable", err)
	}
}
