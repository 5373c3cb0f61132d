// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/loop"
)

// ToolbarConfig configures a Toolbar.
type ToolbarConfig struct {
	Clock     clock.Clock
	Poster    loop.Poster
	Logger    *slog.Logger
	Animation anim.Options

	// Exclusive makes showing one surface hide every other.
	Exclusive bool
}

// Toolbar is the container surfaces drop down from. It slides in and
// out itself and must be fully shown before any surface starts its
// own slide.
type Toolbar struct {
	logger    *slog.Logger
	slide     *anim.Animation
	exclusive bool

	mapped bool
	hiding bool

	members       []*Reveal
	cancelMembers map[*Reveal]func()

	shownHooks map[uint64]func()
	nextHook   uint64
}

// NewToolbar creates a hidden toolbar.
func NewToolbar(config ToolbarConfig) *Toolbar {
	return &Toolbar{
		logger:        config.Logger.With("component", "toolbar"),
		slide:         anim.New(config.Clock, config.Poster, config.Animation, 0),
		exclusive:     config.Exclusive,
		cancelMembers: make(map[*Reveal]func()),
		shownHooks:    make(map[uint64]func()),
	}
}

// Add makes reveal a member. Members count for AnyVisible and, in
// exclusive mode, hide each other.
func (t *Toolbar) Add(reveal *Reveal) {
	if _, ok := t.cancelMembers[reveal]; ok {
		return
	}
	t.members = append(t.members, reveal)
	t.cancelMembers[reveal] = reveal.Subscribe(func(event Event) {
		if event.Kind == EventShowBegin && t.exclusive {
			t.hideOthers(reveal)
		}
	})
}

// Remove drops reveal from the members.
func (t *Toolbar) Remove(reveal *Reveal) {
	cancel, ok := t.cancelMembers[reveal]
	if !ok {
		return
	}
	cancel()
	delete(t.cancelMembers, reveal)
	for i, member := range t.members {
		if member == reveal {
			t.members = append(t.members[:i], t.members[i+1:]...)
			break
		}
	}
}

// Members returns the member reveals in the order they were added.
func (t *Toolbar) Members() []*Reveal {
	return append([]*Reveal(nil), t.members...)
}

func (t *Toolbar) hideOthers(shown *Reveal) {
	for _, member := range t.members {
		if member != shown {
			member.Hide()
		}
	}
}

// Mapped reports whether the toolbar is fully shown.
func (t *Toolbar) Mapped() bool { return t.mapped }

// Visible reports whether any part of the toolbar may be on screen.
func (t *Toolbar) Visible() bool { return t.mapped || t.slide.Running() }

// Animating reports whether the toolbar's own slide is running.
func (t *Toolbar) Animating() bool { return t.slide.Running() }

// Progress is the slide position: 0 hidden, 1 shown.
func (t *Toolbar) Progress() float64 { return t.slide.Value() }

// Show slides the toolbar in. A no-op while shown or showing.
func (t *Toolbar) Show() {
	if t.mapped || (t.slide.Running() && !t.hiding) {
		return
	}
	t.hiding = false
	t.logger.Debug("toolbar showing")
	t.slide.Start(1, t.shown)
}

func (t *Toolbar) shown() {
	t.mapped = true
	t.logger.Debug("toolbar shown")
	hooks := t.shownHooks
	t.shownHooks = make(map[uint64]func())
	for _, key := range sortedKeys(hooks) {
		hooks[key]()
	}
}

// Hide hides every visible member and slides the toolbar out.
func (t *Toolbar) Hide() {
	if !t.Visible() || t.hiding {
		return
	}
	for _, member := range t.members {
		member.Hide()
	}
	t.mapped = false
	t.hiding = true
	t.logger.Debug("toolbar hiding")
	t.slide.Start(0, func() {
		t.hiding = false
		t.logger.Debug("toolbar hidden")
	})
}

// Toggle shows a hidden toolbar and hides a visible one.
func (t *Toolbar) Toggle() {
	if t.mapped || (t.slide.Running() && !t.hiding) {
		t.Hide()
		return
	}
	t.Show()
}

// OnShown registers fn to run once, when the toolbar next finishes
// showing.
func (t *Toolbar) OnShown(fn func()) (cancel func()) {
	t.nextHook++
	key := t.nextHook
	t.shownHooks[key] = fn
	return func() { delete(t.shownHooks, key) }
}

// AnyVisible reports whether a member other than except is visible.
func (t *Toolbar) AnyVisible(except *Reveal) bool {
	for _, member := range t.members {
		if member != except && member.Visible() {
			return true
		}
	}
	return false
}
