// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package pacer implements the frame pacer: a predict/mark/info
// state machine that estimates wake-up, present, and display times
// for the compositor's per-frame pipeline and surfaces timing
// statistics (spec.md §4.2).
package pacer

import (
	"log"
	"time"

	"xrcompositor/config"
)

const pacerPrefix = "pacer: "

// Mark identifies a point in a frame's lifetime that MarkPoint
// records. Marks must arrive in this order for a given frame id;
// any other order, or a mark for an id that no longer occupies its
// ring slot, is silently dropped (spec.md §4.2).
type Mark int

const (
	WakeUp Mark = iota
	Begin
	SubmitBegin
	SubmitEnd
)

// state is a frame's position in the WAKE_UP/BEGIN/SUBMIT_BEGIN/
// SUBMIT_END state machine.
type state int

const (
	statePredicted state = iota
	stateWoken
	stateBegan
	stateSubmitting
	stateSubmitted
)

// frameRing is the number of frame slots kept, matching spec.md
// §3's "ring of size 8" for the Frame record.
const frameRing = 8

// frame is the per-frame timing record (spec.md §3).
type frame struct {
	id        uint64
	valid     bool
	state     state
	predWake  int64
	predPres  int64
	predDisp  int64
	predPeriod int64
	woke      int64
	began     int64
	subBegin  int64
	subEnd    int64
	gpuStart  int64
	gpuEnd    int64
}

// Prediction is the result of Predict.
type Prediction struct {
	FrameID            uint64
	WakeUpNs           int64
	DesiredPresentNs   int64
	PresentSlopNs      int64
	PredictedDisplayNs int64
	PredictedPeriodNs  int64
	MinDisplayPeriodNs int64
}

// presentSlopNs is the fixed slop applied to the desired present
// time (spec.md §4.2).
const presentSlopNs = 500_000

// Pacer implements the predict/mark/info state machine. It is
// driven exclusively from the single compositor thread: no
// internal locking is used (spec.md §4.2, §5).
type Pacer struct {
	periodNs        int64
	presentOffsetNs int64
	minBudgetNs     int64

	lastID      uint64
	lastPresent int64
	ring        [frameRing]frame

	stats      [numMetrics]statBuf
	liveStats  bool
}

// New creates a Pacer for a display refreshing at the given period,
// reading its tunables from the environment via config.Pacer.
func New(periodNs int64) *Pacer {
	cfg := config.Pacer()
	return &Pacer{
		periodNs:        periodNs,
		presentOffsetNs: int64(cfg.PresentToDisplayOffset * 1e6),
		minBudgetNs:     int64(cfg.MinTime * 1e6),
		liveStats:       cfg.LiveStats,
	}
}

// UpdateVblank informs the pacer of an observed vblank/display
// refresh instant, in nanoseconds.
func (p *Pacer) UpdateVblank(whenNs int64) {
	// The fake/estimating pacer (this one, matching
	// u_pacing_compositor_fake.c) does not filter the vblank
	// signal into the period estimate; a hardware-timed pacer
	// would refine periodNs here. Recorded for API completeness.
	_ = whenNs
}

// UpdatePresentOffset overrides the present-to-display offset.
func (p *Pacer) UpdatePresentOffset(ns int64) {
	if ns < 1_000_000 {
		ns = 1_000_000
	} else if ns > 40_000_000 {
		ns = 40_000_000
	}
	p.presentOffsetNs = ns
}

// Predict allocates the next frame id and computes its timing
// prediction (spec.md §4.2, steps 1-5).
func (p *Pacer) Predict(nowNs int64) Prediction {
	id := p.lastID + 1
	p.lastID = id

	budget := p.periodNs / 5 // 20% of period
	if budget < p.minBudgetNs {
		budget = p.minBudgetNs
	}

	desired := p.lastPresent + p.periodNs
	for nowNs+budget > desired {
		desired += p.periodNs
	}
	wake := desired - budget
	display := desired + p.presentOffsetNs

	slot := &p.ring[id%frameRing]
	*slot = frame{
		id:         id,
		valid:      true,
		state:      statePredicted,
		predWake:   wake,
		predPres:   desired,
		predDisp:   display,
		predPeriod: p.periodNs,
	}

	return Prediction{
		FrameID:            id,
		WakeUpNs:           wake,
		DesiredPresentNs:   desired,
		PresentSlopNs:      presentSlopNs,
		PredictedDisplayNs: display,
		PredictedPeriodNs:  p.periodNs,
		MinDisplayPeriodNs: p.periodNs,
	}
}

// MarkPoint records that frame id reached the state identified by
// mark, at the given time. A mark for an id that does not occupy
// its ring slot (i.e., the frame was overrun) is silently dropped.
func (p *Pacer) MarkPoint(mark Mark, id uint64, whenNs int64) {
	slot := &p.ring[id%frameRing]
	if !slot.valid || slot.id != id {
		return
	}
	switch mark {
	case WakeUp:
		if slot.state != statePredicted {
			return
		}
		slot.woke = whenNs
		slot.state = stateWoken
	case Begin:
		if slot.state != stateWoken {
			return
		}
		slot.began = whenNs
		slot.state = stateBegan
		p.record(metricCPU, whenNs-slot.woke)
	case SubmitBegin:
		if slot.state != stateBegan {
			return
		}
		slot.subBegin = whenNs
		slot.state = stateSubmitting
		p.record(metricDraw, whenNs-slot.began)
	case SubmitEnd:
		if slot.state != stateSubmitting {
			return
		}
		slot.subEnd = whenNs
		slot.state = stateSubmitted
		p.record(metricSubmit, whenNs-slot.subBegin)
		p.lastPresent = slot.predPres
	}
}

// InfoPresent records the actual present timing for frame id.
// earliest/margin are accepted for API completeness with spec.md's
// signature; they do not currently feed the estimator (this is the
// "fake"/estimating pacer, matching u_pacing_compositor_fake.c).
func (p *Pacer) InfoPresent(id uint64, desiredNs, actualNs, earliestNs, marginNs, whenNs int64) {
	_ = earliest(earliestNs)
	_ = marginNs
	_ = whenNs
	_ = desiredNs
	_ = actualNs
}

func earliest(n int64) int64 { return n }

// InfoGPU records GPU start/end timestamps for frame id and folds
// the gpu/gpu_delay/total metrics into the statistics buffers.
func (p *Pacer) InfoGPU(id uint64, startNs, endNs, whenNs int64) {
	_ = whenNs
	slot := &p.ring[id%frameRing]
	if !slot.valid || slot.id != id {
		return
	}
	slot.gpuStart = startNs
	slot.gpuEnd = endNs
	p.record(metricGPU, endNs-startNs)
	p.record(metricGPUDelay, startNs-slot.subBegin)
	p.record(metricTotal, endNs-slot.woke)
}

func (p *Pacer) record(m metric, ns int64) {
	buf := &p.stats[m]
	buf.push(ns)
	if buf.full() {
		if p.liveStats {
			med, mean, worst := buf.summarize()
			log.Printf(pacerPrefix+"%s: median=%s mean=%s worst=%s",
				m, time.Duration(med), time.Duration(mean), time.Duration(worst))
		}
		buf.reset()
	}
}
