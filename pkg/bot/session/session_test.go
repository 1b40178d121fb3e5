package session

import (
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 23, 12, 0, 0, 0, time.UTC)}
	return NewManager(clock.Now, 5*time.Minute), clock
}

func TestManagerStartOverwrite(t *testing.T) {
	manager, clock := newTestManager()

	manager.Start(1, 10, FlowAddWish, StepTitle)
	clock.now = clock.now.Add(time.Minute)
	manager.Start(1, 10, FlowCompliment, StepText)

	state, ok := manager.Get(1)
	if !ok {
		t.Fatalf("expected state to exist")
	}
	if state.Flow != FlowCompliment || state.Step != StepText {
		t.Fatalf("expected compliment flow, got %+v", state)
	}
	expected := clock.now.Add(5 * time.Minute)
	if !state.ExpiresAt.Equal(expected) {
		t.Fatalf("expected expires at %v, got %v", expected, state.ExpiresAt)
	}
}

func TestManagerAdvanceKeepsDraft(t *testing.T) {
	manager, clock := newTestManager()
	manager.Start(1, 10, FlowAddEvent, StepTitle)

	if _, ok := manager.Advance(1, StepDate, func(d *Draft) { d.Title = "Dinner" }); !ok {
		t.Fatalf("expected advance to succeed")
	}
	clock.now = clock.now.Add(4 * time.Minute)
	state, ok := manager.Advance(1, StepClock, func(d *Draft) { d.Day = "2026-01-24" })
	if !ok {
		t.Fatalf("expected advance to succeed")
	}
	if state.Draft.Title != "Dinner" || state.Draft.Day != "2026-01-24" || state.Step != StepClock {
		t.Fatalf("unexpected state %+v", state)
	}

	// Advancing extended the expiry.
	clock.now = clock.now.Add(4 * time.Minute)
	if _, ok := manager.Get(1); !ok {
		t.Fatalf("expected state to survive after advance")
	}
}

func TestManagerGetAfterExpiration(t *testing.T) {
	manager, clock := newTestManager()
	manager.Start(1, 10, FlowAnswer, StepText)

	clock.now = clock.now.Add(5 * time.Minute)
	if _, ok := manager.Get(1); ok {
		t.Fatalf("expected state to expire")
	}
	if manager.Len() != 0 {
		t.Fatalf("expected expired state to be dropped")
	}
	if _, ok := manager.Advance(1, StepText, nil); ok {
		t.Fatalf("expected advance to fail without state")
	}
}

func TestManagerClear(t *testing.T) {
	manager, _ := newTestManager()
	manager.Start(1, 10, FlowAddIdea, StepText)

	if !manager.Clear(1) {
		t.Fatalf("expected clear to report a flow")
	}
	if manager.Clear(1) {
		t.Fatalf("expected second clear to report nothing")
	}
}

func TestManagerSweepExpired(t *testing.T) {
	manager, clock := newTestManager()
	manager.Start(1, 10, FlowAddMovie, StepText)
	clock.now = clock.now.Add(3 * time.Minute)
	manager.Start(2, 20, FlowAddMovie, StepText)

	clock.now = clock.now.Add(2 * time.Minute)
	if removed := manager.SweepExpired(); removed != 1 {
		t.Fatalf("expected one expired state, got %d", removed)
	}
	if _, ok := manager.Get(2); !ok {
		t.Fatalf("expected fresh state to remain")
	}
}
