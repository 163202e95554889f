// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package pacer

import "testing"

const period = 1_000_0000 // 10ms, arbitrary test period in ns (1e7)

func TestPredictAllocatesMonotonicIDs(t *testing.T) {
	p := New(period)
	p1 := p.Predict(0)
	p2 := p.Predict(int64(p1.DesiredPresentNs))
	if p2.FrameID != p1.FrameID+1 {
		t.Errorf("FrameID = %d, want %d", p2.FrameID, p1.FrameID+1)
	}
	if p2.DesiredPresentNs <= p1.DesiredPresentNs {
		t.Errorf("DesiredPresentNs did not advance: %d -> %d", p1.DesiredPresentNs, p2.DesiredPresentNs)
	}
}

func TestMarkPointStateMachine(t *testing.T) {
	p := New(period)
	pred := p.Predict(0)

	// Out-of-order marks are dropped, not applied.
	p.MarkPoint(Begin, pred.FrameID, 100)
	slot := &p.ring[pred.FrameID%frameRing]
	if slot.state != statePredicted {
		t.Fatalf("Begin mark applied out of order: state=%v", slot.state)
	}

	p.MarkPoint(WakeUp, pred.FrameID, 100)
	p.MarkPoint(Begin, pred.FrameID, 200)
	p.MarkPoint(SubmitBegin, pred.FrameID, 300)
	p.MarkPoint(SubmitEnd, pred.FrameID, 400)
	if slot.state != stateSubmitted {
		t.Errorf("state = %v, want stateSubmitted", slot.state)
	}
}

func TestMarkPointDroppedForOverrunFrame(t *testing.T) {
	p := New(period)
	pred := p.Predict(0)
	// Overrun the ring: predict frameRing more frames so the slot
	// is reused by a newer id.
	for i := 0; i < frameRing; i++ {
		p.Predict(int64(i+1) * period)
	}
	// The mark for the stale id must be a no-op: it must not panic
	// and must not corrupt the slot's now-current frame.
	p.MarkPoint(WakeUp, pred.FrameID, 123)
	slot := &p.ring[pred.FrameID%frameRing]
	if slot.id == pred.FrameID {
		t.Fatal("ring slot was not overwritten by later predict calls")
	}
}

func TestInfoGPURecordsMetrics(t *testing.T) {
	p := New(period)
	pred := p.Predict(0)
	p.MarkPoint(WakeUp, pred.FrameID, 0)
	p.MarkPoint(Begin, pred.FrameID, 1000)
	p.MarkPoint(SubmitBegin, pred.FrameID, 2000)
	p.MarkPoint(SubmitEnd, pred.FrameID, 3000)
	p.InfoGPU(pred.FrameID, 3500, 4500, 4500)
	if p.stats[metricGPU].n != 1 {
		t.Errorf("metricGPU sample count = %d, want 1", p.stats[metricGPU].n)
	}
	if p.stats[metricGPU].vals[0] != 1000 {
		t.Errorf("metricGPU sample = %d, want 1000", p.stats[metricGPU].vals[0])
	}
}

func TestStatBufSummarize(t *testing.T) {
	var b statBuf
	for _, v := range []int64{5, 1, 3, 2, 4} {
		b.push(v)
	}
	med, mean, worst := b.summarize()
	if med != 3 {
		t.Errorf("median = %d, want 3", med)
	}
	if mean != 3 {
		t.Errorf("mean = %d, want 3", mean)
	}
	if worst != 5 {
		t.Errorf("worst = %d, want 5", worst)
	}
}
