// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/loop"
)

const (
	toolbarSlide = 100 * time.Millisecond
	surfaceSlide = 200 * time.Millisecond
)

type revealHarness struct {
	clock   *clock.FakeClock
	loop    *loop.Loop
	toolbar *Toolbar
	driver  *recordingDriver
	reveal  *Reveal
	events  []Event
}

func newRevealHarness(t *testing.T, preparer Preparer) *revealHarness {
	t.Helper()
	h := &revealHarness{
		clock:  clock.Fake(epoch),
		loop:   loop.New(),
		driver: &recordingDriver{},
	}
	h.toolbar = NewToolbar(ToolbarConfig{
		Clock:     h.clock,
		Poster:    h.loop,
		Logger:    testLogger(),
		Animation: anim.Options{Duration: toolbarSlide},
	})
	h.reveal = NewReveal(RevealConfig{
		Name:      "status",
		Clock:     h.clock,
		Poster:    h.loop,
		Logger:    testLogger(),
		Container: h.toolbar,
		Driver:    h.driver,
		Preparer:  preparer,
		Animation: anim.Options{Duration: surfaceSlide, Easing: anim.Linear},
		Geometry:  Rect{X: 0, Y: 1, Width: 60, Height: 20},
	})
	h.toolbar.Add(h.reveal)
	h.reveal.Subscribe(func(event Event) { h.events = append(h.events, event) })
	return h
}

func (h *revealHarness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.loop.Drain()
}

func (h *revealHarness) mapToolbar(t *testing.T) {
	t.Helper()
	h.toolbar.Show()
	h.advance(toolbarSlide)
	if !h.toolbar.Mapped() {
		t.Fatal("toolbar not mapped after its slide")
	}
}

func (h *revealHarness) eventKinds() []EventKind {
	kinds := make([]EventKind, len(h.events))
	for i, event := range h.events {
		kinds[i] = event.Kind
	}
	return kinds
}

func requireState(t *testing.T, reveal *Reveal, want RevealState) {
	t.Helper()
	if got := reveal.State(); got != want {
		t.Fatalf("state: got %v, want %v", got, want)
	}
}

func requireCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("driver calls: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("driver calls: got %v, want %v", got, want)
		}
	}
}

// --- show/hide sequencing ---

func TestShowWithMappedContainer(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.mapToolbar(t)

	h.reveal.Show()
	requireState(t, h.reveal, Showing)
	requireCalls(t, h.driver.calls, "show-begin")
	if clip, ok := h.reveal.Clip(); !ok || clip != (Rect{X: 0, Y: 1, Width: 60, Height: 20}) {
		t.Errorf("clip while showing: got (%v, %v)", clip, ok)
	}

	h.advance(surfaceSlide / 2)
	if _, y := h.reveal.Position(); y != 1-10 {
		t.Errorf("y half way: got %d, want %d", y, 1-10)
	}

	h.advance(surfaceSlide / 2)
	requireState(t, h.reveal, Shown)
	requireCalls(t, h.driver.calls, "show-begin", "focus", "show-end")
	if _, ok := h.reveal.Clip(); ok {
		t.Error("still clipped after show completed")
	}
	if kinds := h.eventKinds(); len(kinds) != 2 || kinds[0] != EventShowBegin || kinds[1] != EventShowCompleted {
		t.Errorf("events: got %v", kinds)
	}
}

func TestShowWaitsForContainer(t *testing.T) {
	h := newRevealHarness(t, nil)

	h.reveal.Show()
	requireState(t, h.reveal, ShowRequested)
	if !h.toolbar.Visible() {
		t.Fatal("container not asked to show")
	}
	if len(h.driver.calls) != 0 || h.reveal.Animating() {
		t.Fatalf("surface started before its container: calls=%v animating=%v", h.driver.calls, h.reveal.Animating())
	}

	h.advance(toolbarSlide)
	requireState(t, h.reveal, Showing)
	requireCalls(t, h.driver.calls, "show-begin")

	h.advance(surfaceSlide)
	requireState(t, h.reveal, Shown)

	// The container subscription was one-shot.
	h.toolbar.Hide()
	h.advance(surfaceSlide)
	h.toolbar.Show()
	h.advance(toolbarSlide)
	requireState(t, h.reveal, Hidden)
}

func TestHideAfterShown(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.mapToolbar(t)
	h.reveal.Show()
	h.advance(surfaceSlide)
	h.driver.calls = nil

	h.reveal.SetGeometry(Rect{X: 0, Y: 1, Width: 60, Height: 20})
	h.reveal.Hide()
	requireState(t, h.reveal, Hiding)
	requireCalls(t, h.driver.calls, "hide-begin")

	h.advance(surfaceSlide)
	requireState(t, h.reveal, Hidden)
	requireCalls(t, h.driver.calls, "hide-begin", "hide-end")
	if geometry := h.reveal.Geometry(); geometry.X != 0 || geometry.Y != 1 {
		t.Errorf("layout after hide: got %v, want restored to 0,1", geometry)
	}
}

func TestRepeatedRequestsAreIdempotent(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.mapToolbar(t)

	h.reveal.Show()
	h.reveal.Show()
	h.advance(surfaceSlide / 4)
	h.reveal.Show()
	requireCalls(t, h.driver.calls, "show-begin")

	h.advance(surfaceSlide)
	h.reveal.Show()
	requireCalls(t, h.driver.calls, "show-begin", "focus", "show-end")

	h.driver.calls = nil
	h.reveal.Hide()
	h.reveal.Hide()
	h.advance(surfaceSlide / 4)
	h.reveal.Hide()
	requireCalls(t, h.driver.calls, "hide-begin")
	h.advance(surfaceSlide)
	h.reveal.Hide()
	requireCalls(t, h.driver.calls, "hide-begin", "hide-end")
}

func TestHideDuringShowFinalizesShowFirst(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.mapToolbar(t)
	h.reveal.Show()
	h.advance(surfaceSlide / 2)

	h.reveal.Hide()
	requireState(t, h.reveal, Hiding)
	// show-end goes out for the cut-short show; focus does not.
	requireCalls(t, h.driver.calls, "show-begin", "show-end", "hide-begin")

	completed := h.events[1]
	if completed.Kind != EventShowCompleted || !completed.Interrupted {
		t.Fatalf("second event: got %+v, want interrupted show-completed", completed)
	}

	h.advance(surfaceSlide)
	requireState(t, h.reveal, Hidden)
}

func TestShowDuringHideFinalizesHideFirst(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.mapToolbar(t)
	h.reveal.Show()
	h.advance(surfaceSlide)
	h.reveal.HideWithParent()
	h.advance(surfaceSlide / 2)
	h.driver.calls = nil

	h.reveal.Show()
	requireState(t, h.reveal, Showing)
	requireCalls(t, h.driver.calls, "hide-end", "show-begin")
	if !h.toolbar.Mapped() {
		t.Fatal("interrupted hide-with-parent hid the container")
	}
	h.advance(surfaceSlide)
	requireState(t, h.reveal, Shown)
}

func TestHideCancelsPendingShow(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.reveal.Show()
	requireState(t, h.reveal, ShowRequested)

	h.reveal.Hide()
	requireState(t, h.reveal, Hidden)
	h.advance(toolbarSlide)
	requireState(t, h.reveal, Hidden)
	if len(h.driver.calls) != 0 {
		t.Errorf("driver calls for a cancelled show: %v", h.driver.calls)
	}
	if kinds := h.eventKinds(); len(kinds) != 1 || kinds[0] != EventShowAborted {
		t.Errorf("events: got %v, want [show-aborted]", kinds)
	}
}

func TestHideWithParent(t *testing.T) {
	h := newRevealHarness(t, nil)
	other := NewReveal(RevealConfig{
		Name:      "launcher",
		Clock:     h.clock,
		Poster:    h.loop,
		Logger:    testLogger(),
		Container: h.toolbar,
		Animation: anim.Options{Duration: surfaceSlide},
	})
	h.toolbar.Add(other)
	h.mapToolbar(t)

	h.reveal.Show()
	other.Show()
	h.advance(surfaceSlide)

	h.reveal.HideWithParent()
	h.advance(surfaceSlide)
	if !h.toolbar.Mapped() {
		t.Fatal("container hidden while another surface is visible")
	}

	other.HideWithParent()
	h.advance(surfaceSlide)
	if h.toolbar.Mapped() {
		t.Fatal("container still shown after its last surface hid with parent")
	}
}

func TestForceHideSkipsDriver(t *testing.T) {
	h := newRevealHarness(t, nil)
	h.mapToolbar(t)
	h.reveal.Show()
	h.advance(surfaceSlide / 2)
	h.driver.calls = nil

	h.reveal.ForceHide()
	requireState(t, h.reveal, Hidden)
	if h.reveal.Animating() {
		t.Fatal("animation still running after ForceHide")
	}
	h.advance(surfaceSlide)
	if len(h.driver.calls) != 0 {
		t.Errorf("driver calls after ForceHide: %v", h.driver.calls)
	}
	last := h.events[len(h.events)-1]
	if last.Kind != EventHideCompleted || !last.Forced {
		t.Errorf("last event: got %+v, want forced hide-completed", last)
	}
}

// --- preparation ---

func TestPreparerRunsBetweenContainerAndSlide(t *testing.T) {
	var pending func(error)
	h := newRevealHarness(t, func(done func(error)) { pending = done })

	h.reveal.Show()
	h.advance(toolbarSlide)
	requireState(t, h.reveal, ShowRequested)
	if pending == nil {
		t.Fatal("preparer not called once the container was shown")
	}

	pending(nil)
	requireState(t, h.reveal, Showing)

	// A second completion is ignored.
	pending(nil)
	requireCalls(t, h.driver.calls, "show-begin")
}

func TestPreparerFailureAbortsShow(t *testing.T) {
	failure := errors.New("panel refused")
	h := newRevealHarness(t, func(done func(error)) { done(failure) })
	h.mapToolbar(t)

	h.reveal.Show()
	requireState(t, h.reveal, Hidden)
	last := h.events[len(h.events)-1]
	if last.Kind != EventShowAborted || !errors.Is(last.Err, failure) {
		t.Errorf("last event: got %+v, want show-aborted with the failure", last)
	}
}

func TestLatePreparationAfterHideIsIgnored(t *testing.T) {
	var pending func(error)
	h := newRevealHarness(t, func(done func(error)) { pending = done })
	h.mapToolbar(t)

	h.reveal.Show()
	h.reveal.Hide()
	pending(nil)
	requireState(t, h.reveal, Hidden)
	if len(h.driver.calls) != 0 {
		t.Errorf("driver calls: %v", h.driver.calls)
	}
}

// --- invariants under arbitrary sequences ---

func TestRandomSequencesKeepOneAnimation(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		h := newRevealHarness(t, nil)
		random := rand.New(rand.NewSource(seed))

		inFlight := 0
		h.reveal.Subscribe(func(event Event) {
			switch event.Kind {
			case EventShowBegin, EventHideBegin:
				inFlight++
			case EventShowCompleted:
				inFlight--
			case EventHideCompleted:
				if !event.Forced || inFlight > 0 {
					inFlight--
				}
			}
			if inFlight < 0 || inFlight > 1 {
				t.Fatalf("seed %d: %d transitions in flight after %v", seed, inFlight, event.Kind)
			}
		})

		for step := 0; step < 200; step++ {
			switch random.Intn(6) {
			case 0, 1:
				h.reveal.Show()
			case 2, 3:
				h.reveal.Hide()
			case 4:
				h.advance(time.Duration(random.Intn(150)) * time.Millisecond)
			case 5:
				if random.Intn(10) == 0 {
					h.reveal.ForceHide()
				} else {
					h.toolbar.Toggle()
				}
			}

			state := h.reveal.State()
			animating := h.reveal.Animating()
			if animating != (state == Showing || state == Hiding) {
				t.Fatalf("seed %d step %d: state %v with animating=%v", seed, step, state, animating)
			}
		}
	}
}
