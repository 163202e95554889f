// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package session implements the session event fan-out described in
// spec.md §4.8: a System broadcasts events to every Session
// registered with it, and each Session queues the events it receives
// for its owner to poll at its own pace.
package session

import (
	"log"
	"sync"

	"xrcompositor/xmath"
)

const sessPrefix = "session: "

// EventType is the tag of an Event's active field.
type EventType int

// Event tags, per spec.md §4.8 and
// original_source/xrt_session.h's xrt_session_event_type (the
// fuller set: spec.md's prose names the first eight; NONE is the
// sentinel poll_events returns for an empty queue).
const (
	EventNone EventType = iota
	EventStateChanged
	EventOverlayChanged
	EventLossPending
	EventLost
	EventDisplayRefreshRateChanged
	EventReferenceSpaceChangePending
	EventPerfChanged
	EventPassthroughStateChanged
)

// PerfDomain and PerfNotifyLevel classify a PerfChanged event, per
// xrt_session.h's xrt_perf_domain/xrt_perf_notify_level (the pack's
// original_source does not carry their enumerator lists, so a
// representative set covering the compositor's own GPU/CPU/thermal
// axes is used here).
type PerfDomain int

const (
	PerfDomainGPU PerfDomain = iota
	PerfDomainCPU
	PerfDomainThermal
)

type PerfNotifyLevel int

const (
	PerfLevelNormal PerfNotifyLevel = iota
	PerfLevelWarning
	PerfLevelImpaired
)

// ReferenceSpaceType names the anchor a
// ReferenceSpaceChangePending event is about.
type ReferenceSpaceType int

const (
	ReferenceSpaceView ReferenceSpaceType = iota
	ReferenceSpaceLocal
	ReferenceSpaceStage
)

// StateChanged carries xrt_session_event_state_change's payload.
type StateChanged struct {
	Visible bool
	Focused bool
}

// OverlayChanged carries xrt_session_event_overlay's payload.
type OverlayChanged struct {
	PrimaryFocused bool
}

// LossPending carries xrt_session_event_loss_pending's payload.
type LossPending struct {
	LossTimeNs int64
}

// DisplayRefreshRateChanged carries
// xrt_session_event_display_refresh_rate_change's payload.
type DisplayRefreshRateChanged struct {
	From, To float32
}

// ReferenceSpaceChangePending carries
// xrt_session_event_reference_space_change_pending's payload.
type ReferenceSpaceChangePending struct {
	RefType         ReferenceSpaceType
	TimestampNs     int64
	PoseInPrevSpace xmath.Pose
	PoseValid       bool
}

// PerfChanged carries xrt_session_event_perf_change's payload.
type PerfChanged struct {
	Domain    PerfDomain
	SubDomain int
	FromLevel PerfNotifyLevel
	ToLevel   PerfNotifyLevel
}

// PassthroughStateChanged carries
// xrt_session_event_passthrough_state_change's payload.
type PassthroughStateChanged struct {
	Enabled bool
}

// Event is the tagged union System.BroadcastEvent deep-copies to
// every registered session's sink, and Session.PollEvents returns
// one of at a time. Only the field matching Type is meaningful.
type Event struct {
	Type EventType

	StateChanged                StateChanged
	OverlayChanged              OverlayChanged
	LossPending                 LossPending
	DisplayRefreshRateChanged   DisplayRefreshRateChanged
	ReferenceSpaceChangePending ReferenceSpaceChangePending
	PerfChanged                 PerfChanged
	PassthroughStateChanged     PassthroughStateChanged
}

// noneEvent is what PollEvents returns when a session's queue is
// empty.
var noneEvent = Event{Type: EventNone}

// Session queues events pushed to it by its System and lets its
// owner poll them out in FIFO order (spec.md §4.8).
type Session struct {
	mu     sync.Mutex
	queue  []Event
	system *System
}

// pushEvent appends e to s's queue under s's own lock. System's
// BroadcastEvent calls it after releasing the system's lock (it
// pushes to a copy of the session list), so the two locks are never
// held together.
func (s *Session) pushEvent(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
}

// PollEvents returns the oldest queued event and removes it from the
// queue, or EventNone if the queue is empty.
func (s *Session) PollEvents() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return noneEvent
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e
}

// PushEvent appends e directly to s's queue, bypassing any System.
// It exists for producers that target a single session rather than
// broadcasting (e.g. a per-session loss-pending timer).
func (s *Session) PushEvent(e Event) {
	s.pushEvent(e)
}

// detach clears s's back-pointer to its System. Called by
// System.RemoveSession so a removed session never observes further
// broadcasts (spec.md §9: "treat as an observer relation... set it
// to none in remove_session").
func (s *Session) detach() {
	s.mu.Lock()
	s.system = nil
	s.mu.Unlock()
}

// System owns the dynamic array of sessions a broadcast fans out to.
type System struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewSystem creates an empty System.
func NewSystem() *System {
	return &System{}
}

// AddSession registers s with sys; subsequent BroadcastEvent calls
// deliver to it.
func (sys *System) AddSession(s *Session) {
	sys.mu.Lock()
	s.system = sys
	sys.sessions = append(sys.sessions, s)
	sys.mu.Unlock()
}

// RemoveSession unregisters s, shifting the tail of the session list
// down to fill the gap (spec.md §4.8). It is a no-op if s is not
// currently registered.
func (sys *System) RemoveSession(s *Session) {
	sys.mu.Lock()
	for i, cur := range sys.sessions {
		if cur == s {
			copy(sys.sessions[i:], sys.sessions[i+1:])
			sys.sessions = sys.sessions[:len(sys.sessions)-1]
			break
		}
	}
	sys.mu.Unlock()
	s.detach()
}

// BroadcastEvent locks the session list and pushes a copy of e to
// every registered session's queue. A push failure on any one
// session is logged and does not prevent delivery to the rest
// (spec.md §4.8); since Session.pushEvent here cannot itself fail,
// the failure case is reserved for a future sink that can (e.g. one
// backed by a bounded channel), and is modeled with a recover so a
// panicking sink cannot take down the broadcast.
func (sys *System) BroadcastEvent(e Event) {
	sys.mu.Lock()
	targets := make([]*Session, len(sys.sessions))
	copy(targets, sys.sessions)
	sys.mu.Unlock()

	for _, s := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf(sessPrefix+"broadcast to session failed: %v", r)
				}
			}()
			s.pushEvent(e)
		}()
	}
}

// SessionCount reports how many sessions are currently registered.
func (sys *System) SessionCount() int {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	return len(sys.sessions)
}
