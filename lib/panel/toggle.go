// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import "github.com/bureau-foundation/panelshell/lib/handle"

// Origin says who changed a toggle. Hooks bound to show/hide act only
// on OriginUser; OriginSync marks the reflection of a state the
// surface already reached, so it never re-enters show/hide.
type Origin int

const (
	OriginUser Origin = iota
	OriginSync
)

func (o Origin) String() string {
	if o == OriginSync {
		return "sync"
	}
	return "user"
}

// Toggle is a two-state toolbar button.
type Toggle struct {
	name    string
	checked bool
	style   string
	tooltip string

	hooks    map[uint64]func(checked bool, origin Origin)
	nextHook uint64
}

// Name is the label given at creation.
func (t *Toggle) Name() string { return t.name }

// Checked reports the current state.
func (t *Toggle) Checked() bool { return t.checked }

// Style is the button style id, set by the panel through
// RequestButtonStyle.
func (t *Toggle) Style() string { return t.style }

// SetStyle replaces the style id.
func (t *Toggle) SetStyle(style string) { t.style = style }

// Tooltip is the hover text.
func (t *Toggle) Tooltip() string { return t.tooltip }

// SetTooltip replaces the hover text.
func (t *Toggle) SetTooltip(text string) { t.tooltip = text }

// Set changes the checked state and notifies hooks with origin. Setting
// the current state again notifies nobody.
func (t *Toggle) Set(checked bool, origin Origin) {
	if t.checked == checked {
		return
	}
	t.checked = checked
	for _, key := range sortedKeys(t.hooks) {
		if hook, ok := t.hooks[key]; ok {
			hook(checked, origin)
		}
	}
}

// Press flips the toggle as a user click does.
func (t *Toggle) Press() { t.Set(!t.checked, OriginUser) }

// OnToggled registers fn for every change of the checked state.
func (t *Toggle) OnToggled(fn func(checked bool, origin Origin)) (cancel func()) {
	if t.hooks == nil {
		t.hooks = make(map[uint64]func(bool, Origin))
	}
	t.nextHook++
	key := t.nextHook
	t.hooks[key] = fn
	return func() { delete(t.hooks, key) }
}

func (t *Toggle) hookCount() int { return len(t.hooks) }

// Toggles owns every toggle. Everyone else holds handles: a toggle
// destroyed here (its toolbar slot removed) makes every handle to it
// miss, and its destroy hooks tell binders to forget it.
type Toggles struct {
	entries      handle.Registry[*Toggle]
	destroyHooks map[handle.Handle]map[uint64]func()
	nextHook     uint64
}

// NewToggles returns an empty set.
func NewToggles() *Toggles {
	return &Toggles{destroyHooks: make(map[handle.Handle]map[uint64]func())}
}

// Create adds an unchecked toggle.
func (s *Toggles) Create(name string) handle.Handle {
	return s.entries.Insert(&Toggle{name: name})
}

// Get resolves h.
func (s *Toggles) Get(h handle.Handle) (*Toggle, bool) {
	return s.entries.Lookup(h)
}

// Len returns the number of live toggles.
func (s *Toggles) Len() int { return s.entries.Len() }

// Each calls fn for every live toggle in creation-slot order.
func (s *Toggles) Each(fn func(handle.Handle, *Toggle) bool) {
	s.entries.Each(fn)
}

// Destroy removes the toggle and runs its destroy hooks. A stale
// handle is a no-op.
func (s *Toggles) Destroy(h handle.Handle) {
	if _, ok := s.entries.Remove(h); !ok {
		return
	}
	hooks := s.destroyHooks[h]
	delete(s.destroyHooks, h)
	for _, key := range sortedKeys(hooks) {
		hooks[key]()
	}
}

// OnDestroyed registers fn to run once when h is destroyed. For a
// handle that no longer resolves, fn never runs.
func (s *Toggles) OnDestroyed(h handle.Handle, fn func()) (cancel func()) {
	if _, ok := s.entries.Lookup(h); !ok {
		return func() {}
	}
	if s.destroyHooks[h] == nil {
		s.destroyHooks[h] = make(map[uint64]func())
	}
	s.nextHook++
	key := s.nextHook
	s.destroyHooks[h][key] = fn
	return func() { delete(s.destroyHooks[h], key) }
}
