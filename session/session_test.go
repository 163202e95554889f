// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package session

import "testing"

// TestBroadcastFanOut reproduces spec.md §8 scenario S7: a system
// with two sessions, broadcast once, each session polls the same
// event exactly once, and a third poll on either returns NONE.
func TestBroadcastFanOut(t *testing.T) {
	sys := NewSystem()
	var a, b Session
	sys.AddSession(&a)
	sys.AddSession(&b)

	ev := Event{Type: EventLost}
	sys.BroadcastEvent(ev)

	if got := a.PollEvents(); got.Type != EventLost {
		t.Errorf("a.PollEvents().Type = %v, want EventLost", got.Type)
	}
	if got := b.PollEvents(); got.Type != EventLost {
		t.Errorf("b.PollEvents().Type = %v, want EventLost", got.Type)
	}
	if got := a.PollEvents(); got.Type != EventNone {
		t.Errorf("a second PollEvents().Type = %v, want EventNone", got.Type)
	}
	if got := b.PollEvents(); got.Type != EventNone {
		t.Errorf("b second PollEvents().Type = %v, want EventNone", got.Type)
	}
}

func TestPollEventsFIFOOrder(t *testing.T) {
	var s Session
	s.PushEvent(Event{Type: EventStateChanged})
	s.PushEvent(Event{Type: EventLost})
	if got := s.PollEvents(); got.Type != EventStateChanged {
		t.Errorf("first poll = %v, want EventStateChanged", got.Type)
	}
	if got := s.PollEvents(); got.Type != EventLost {
		t.Errorf("second poll = %v, want EventLost", got.Type)
	}
}

func TestRemoveSessionStopsFutureBroadcasts(t *testing.T) {
	sys := NewSystem()
	var a, b Session
	sys.AddSession(&a)
	sys.AddSession(&b)
	sys.RemoveSession(&a)

	if n := sys.SessionCount(); n != 1 {
		t.Fatalf("SessionCount = %d, want 1", n)
	}
	sys.BroadcastEvent(Event{Type: EventLost})
	if got := a.PollEvents(); got.Type != EventNone {
		t.Errorf("removed session received a broadcast: %v", got.Type)
	}
	if got := b.PollEvents(); got.Type != EventLost {
		t.Errorf("remaining session missed broadcast: %v", got.Type)
	}
}

func TestRemoveSessionShiftsTailDown(t *testing.T) {
	sys := NewSystem()
	var a, b, c Session
	sys.AddSession(&a)
	sys.AddSession(&b)
	sys.AddSession(&c)
	sys.RemoveSession(&b)

	if n := sys.SessionCount(); n != 2 {
		t.Fatalf("SessionCount = %d, want 2", n)
	}
	sys.BroadcastEvent(Event{Type: EventLossPending})
	if got := a.PollEvents(); got.Type != EventLossPending {
		t.Errorf("a missed broadcast: %v", got.Type)
	}
	if got := c.PollEvents(); got.Type != EventLossPending {
		t.Errorf("c missed broadcast after b's removal: %v", got.Type)
	}
}
