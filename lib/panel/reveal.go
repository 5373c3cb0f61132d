// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/loop"
)

// RevealState is the show/hide state of a surface.
type RevealState int

const (
	// Hidden: off screen, no animation.
	Hidden RevealState = iota

	// ShowRequested: waiting for the parent container to be shown or
	// for the preparation step.
	ShowRequested

	// Showing: the slide-in is running.
	Showing

	// Shown: fully on screen.
	Shown

	// HideRequested: hide accepted, hide notifications being sent; the
	// slide-out starts before the hide call returns.
	HideRequested

	// Hiding: the slide-out is running.
	Hiding
)

func (s RevealState) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case ShowRequested:
		return "show-requested"
	case Showing:
		return "showing"
	case Shown:
		return "shown"
	case HideRequested:
		return "hide-requested"
	case Hiding:
		return "hiding"
	default:
		return "unknown"
	}
}

// Visible reports whether any part of the surface may be on screen.
func (s RevealState) Visible() bool {
	return s == Showing || s == Shown || s == HideRequested || s == Hiding
}

// Container is the parent a surface slides out of: the toolbar.
type Container interface {
	// Mapped reports whether the container is fully shown.
	Mapped() bool

	// Show starts showing the container.
	Show()

	// Hide starts hiding the container.
	Hide()

	// OnShown registers fn to run once, the next time the container
	// finishes showing.
	OnShown(fn func()) (cancel func())

	// AnyVisible reports whether a surface other than except is
	// visible in the container.
	AnyVisible(except *Reveal) bool
}

// Driver receives the surface-specific side effects of a reveal. A
// remote surface forwards them to its panel process; a local one
// mostly ignores them.
type Driver interface {
	// ShowBegin runs before the slide-in starts.
	ShowBegin()

	// Focus runs when the slide-in completes, before ShowEnd.
	Focus()

	// ShowEnd runs after the slide-in completes, including when it is
	// cut short by a hide.
	ShowEnd()

	// HideBegin runs before the slide-out starts.
	HideBegin()

	// HideEnd runs after the slide-out completes, including when it
	// is cut short by a show.
	HideEnd()
}

// Preparer is an asynchronous step between the container becoming
// visible and the slide-in starting. done must be called on the loop,
// at most once; it may be called before the Preparer returns. A
// non-nil error aborts the show.
type Preparer func(done func(error))

// EventKind names a reveal event.
type EventKind int

const (
	// EventShowBegin: the slide-in is about to start.
	EventShowBegin EventKind = iota

	// EventShowCompleted: the slide-in finished or was finalised early.
	EventShowCompleted

	// EventHideBegin: the slide-out is about to start.
	EventHideBegin

	// EventHideCompleted: the slide-out finished, was finalised early,
	// or the surface was force hidden.
	EventHideCompleted

	// EventShowAborted: a show ended before its animation started,
	// because preparation failed or a hide cancelled it.
	EventShowAborted
)

func (k EventKind) String() string {
	switch k {
	case EventShowBegin:
		return "show-begin"
	case EventShowCompleted:
		return "show-completed"
	case EventHideBegin:
		return "hide-begin"
	case EventHideCompleted:
		return "hide-completed"
	case EventShowAborted:
		return "show-aborted"
	default:
		return "unknown"
	}
}

// Event is published to a Reveal's subscribers, in order, on the loop.
type Event struct {
	Kind EventKind

	// Interrupted is set on a completion that was finalised early
	// because a request in the opposite direction arrived.
	Interrupted bool

	// Forced is set on the HideCompleted of ForceHide.
	Forced bool

	// Err is the preparation failure of a ShowAborted, if any.
	Err error
}

// RevealConfig holds a Reveal's collaborators. Container, Driver and
// Preparer are optional.
type RevealConfig struct {
	Name      string
	Clock     clock.Clock
	Poster    loop.Poster
	Logger    *slog.Logger
	Container Container
	Driver    Driver
	Preparer  Preparer
	Animation anim.Options
	Geometry  Rect
}

// Reveal is the show/hide state machine of one surface. It owns the
// surface's single slide animation, so at most one transition is ever
// in flight: a request in the opposite direction finalises the
// running one synchronously before starting its own.
type Reveal struct {
	name      string
	logger    *slog.Logger
	container Container
	driver    Driver
	preparer  Preparer

	state RevealState

	// slide runs from 0 (hidden) to 1 (shown).
	slide *anim.Animation

	// layout is where the surface sits when shown. captured is the
	// geometry at the start of the running transition; it clips
	// painting while sliding and is restored as the layout position
	// when a hide completes.
	layout   Rect
	captured Rect
	clipping bool

	cancelParentWait func()

	// prepareSerial invalidates preparation results that arrive after
	// the show they belong to was cancelled.
	prepareSerial uint64

	// finalizing is set while an in-flight transition is being
	// completed early; it is scoped to that one call.
	finalizing bool

	// hideParent is set by HideWithParent and consumed by the hide
	// completion.
	hideParent bool

	subscribers    map[uint64]func(Event)
	nextSubscriber uint64
}

type noopDriver struct{}

func (noopDriver) ShowBegin() {}
func (noopDriver) Focus()     {}
func (noopDriver) ShowEnd()   {}
func (noopDriver) HideBegin() {}
func (noopDriver) HideEnd()   {}

// NewReveal creates a Hidden reveal.
func NewReveal(config RevealConfig) *Reveal {
	driver := config.Driver
	if driver == nil {
		driver = noopDriver{}
	}
	return &Reveal{
		name:        config.Name,
		logger:      config.Logger.With("surface", config.Name),
		container:   config.Container,
		driver:      driver,
		preparer:    config.Preparer,
		slide:       anim.New(config.Clock, config.Poster, config.Animation, 0),
		layout:      config.Geometry,
		subscribers: make(map[uint64]func(Event)),
	}
}

// Name is the surface name used in logs.
func (r *Reveal) Name() string { return r.name }

// State returns the current state.
func (r *Reveal) State() RevealState { return r.state }

// Visible reports whether the surface may be on screen.
func (r *Reveal) Visible() bool { return r.state.Visible() }

// Animating reports whether a slide is in flight.
func (r *Reveal) Animating() bool { return r.slide.Running() }

// Progress is the slide position: 0 fully hidden, 1 fully shown.
func (r *Reveal) Progress() float64 { return r.slide.Value() }

// Geometry returns the layout geometry.
func (r *Reveal) Geometry() Rect { return r.layout }

// SetGeometry changes the layout geometry. A running slide keeps the
// geometry captured when it started.
func (r *Reveal) SetGeometry(geometry Rect) { r.layout = geometry }

// Clip returns the geometry painting must be clipped to while a slide
// is in flight.
func (r *Reveal) Clip() (Rect, bool) { return r.captured, r.clipping }

// Position returns where the surface is drawn now: the layout position
// when idle, or the captured position offset upwards by the hidden
// fraction of its height while sliding.
func (r *Reveal) Position() (x, y int) {
	if !r.clipping {
		if r.state == Hidden {
			return r.layout.X, r.layout.Y - r.layout.Height
		}
		return r.layout.X, r.layout.Y
	}
	hidden := 1 - r.slide.Value()
	return r.captured.X, r.captured.Y - int(hidden*float64(r.captured.Height)+0.5)
}

// Subscribe registers fn for every event. Subscribers run in
// registration order, synchronously, after the state change they
// report.
func (r *Reveal) Subscribe(fn func(Event)) (cancel func()) {
	r.nextSubscriber++
	key := r.nextSubscriber
	r.subscribers[key] = fn
	return func() { delete(r.subscribers, key) }
}

func (r *Reveal) publish(event Event) {
	for _, key := range sortedKeys(r.subscribers) {
		if fn, ok := r.subscribers[key]; ok {
			fn(event)
		}
	}
}

// Show reveals the surface. A no-op while ShowRequested, Showing or
// Shown. While Hiding, the hide is finalised first.
func (r *Reveal) Show() {
	switch r.state {
	case ShowRequested, Showing, Shown:
		return
	case Hiding:
		r.finalize()
	}
	if r.state != Hidden {
		// A subscriber of the finalised hide already moved us on.
		return
	}

	r.state = ShowRequested
	r.logger.Debug("show requested")

	if r.container != nil && !r.container.Mapped() {
		r.logger.Debug("waiting for container")
		r.cancelParentWait = r.container.OnShown(r.containerShown)
		r.container.Show()
		return
	}
	r.prepare()
}

func (r *Reveal) containerShown() {
	r.cancelParentWait = nil
	if r.state != ShowRequested {
		return
	}
	r.prepare()
}

func (r *Reveal) prepare() {
	if r.preparer == nil {
		r.startShow()
		return
	}
	r.prepareSerial++
	serial := r.prepareSerial
	r.preparer(func(err error) {
		if serial != r.prepareSerial || r.state != ShowRequested {
			return
		}
		r.prepareSerial++
		if err != nil {
			r.logger.Warn("show aborted", "error", err)
			r.state = Hidden
			r.publish(Event{Kind: EventShowAborted, Err: err})
			return
		}
		r.startShow()
	})
}

func (r *Reveal) startShow() {
	r.captured = r.layout
	r.clipping = true
	r.state = Showing

	r.publish(Event{Kind: EventShowBegin})
	r.driver.ShowBegin()
	if r.state != Showing {
		return
	}
	r.slide.Start(1, r.showCompleted)
}

func (r *Reveal) showCompleted() {
	interrupted := r.finalizing
	r.state = Shown
	r.clipping = false

	if !interrupted {
		r.driver.Focus()
	}
	r.driver.ShowEnd()
	r.logger.Debug("shown", "interrupted", interrupted)
	r.publish(Event{Kind: EventShowCompleted, Interrupted: interrupted})
}

// Hide hides the surface. A no-op while Hidden, HideRequested or
// Hiding. While Showing, the show is finalised first; while
// ShowRequested, the pending show is cancelled.
func (r *Reveal) Hide() {
	r.hide(false)
}

// HideWithParent hides the surface and, once the hide completes, the
// container too, unless another of its surfaces is still visible.
func (r *Reveal) HideWithParent() {
	r.hide(true)
}

func (r *Reveal) hide(withParent bool) {
	switch r.state {
	case Hidden, HideRequested, Hiding:
		return
	case ShowRequested:
		r.cancelPendingShow()
		r.state = Hidden
		r.logger.Debug("pending show cancelled")
		r.publish(Event{Kind: EventShowAborted})
		return
	case Showing:
		r.finalize()
		if r.state != Shown {
			return
		}
	}

	r.hideParent = withParent
	r.state = HideRequested
	r.captured = r.layout
	r.clipping = true

	r.publish(Event{Kind: EventHideBegin})
	r.driver.HideBegin()
	if r.state != HideRequested {
		return
	}
	r.state = Hiding
	r.slide.Start(0, r.hideCompleted)
}

func (r *Reveal) hideCompleted() {
	interrupted := r.finalizing
	withParent := r.hideParent && !interrupted
	r.hideParent = false
	r.state = Hidden
	r.clipping = false
	r.layout.X, r.layout.Y = r.captured.X, r.captured.Y

	r.driver.HideEnd()
	r.logger.Debug("hidden", "interrupted", interrupted)
	r.publish(Event{Kind: EventHideCompleted, Interrupted: interrupted})

	if withParent && r.state == Hidden && r.container != nil && !r.container.AnyVisible(r) {
		r.container.Hide()
	}
}

// finalize completes the in-flight transition synchronously, marking
// its completion as interrupted.
func (r *Reveal) finalize() {
	r.finalizing = true
	r.slide.Finish()
	r.finalizing = false
}

func (r *Reveal) cancelPendingShow() {
	if r.cancelParentWait != nil {
		r.cancelParentWait()
		r.cancelParentWait = nil
	}
	r.prepareSerial++
}

// ForceHide drops the surface to Hidden at once: no animation and no
// Driver calls. Used when the surface's remote side is gone. Subscribers
// see a forced HideCompleted unless the surface was already hidden.
func (r *Reveal) ForceHide() {
	if r.state == Hidden {
		return
	}
	if r.state == ShowRequested {
		r.cancelPendingShow()
		r.state = Hidden
		r.publish(Event{Kind: EventShowAborted})
		return
	}

	if r.clipping {
		r.layout.X, r.layout.Y = r.captured.X, r.captured.Y
	}
	r.slide.Reset(0)
	r.hideParent = false
	r.clipping = false
	r.state = Hidden
	r.logger.Debug("force hidden")
	r.publish(Event{Kind: EventHideCompleted, Forced: true})
}
