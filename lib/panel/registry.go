// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/handle"
)

// Revealer is the capability every surface has: a reveal controller
// and a name.
type Revealer interface {
	Name() string
	Reveal() *Reveal
}

// Registry binds each surface to at most one toggle and each toggle to
// at most one surface.
//
// The binding runs both ways. A user press on the toggle shows or hides
// the surface. Reveal events set the toggle's checked state with
// OriginSync, which the press hook ignores, so a reflection never
// re-enters show or hide:
//
//	show begins                 -> checked
//	show completed              -> checked
//	show completed, interrupted -> unchecked (the hide that cut it short wins)
//	hide begins                 -> unchecked
//	hide completed              -> unchecked
//	hide completed, interrupted -> checked (the show that cut it short wins)
//	show aborted                -> unchecked
//
// A press therefore always reverses the direction the surface is
// heading, whoever started the transition.
type Registry struct {
	toggles *Toggles
	logger  *slog.Logger

	bySurface map[*Reveal]*binding
	byToggle  map[handle.Handle]*binding
}

type binding struct {
	surface Revealer
	toggle  handle.Handle

	cancelToggled   func()
	cancelDestroyed func()
	cancelEvents    func()
}

// NewRegistry creates an empty registry over toggles.
func NewRegistry(toggles *Toggles, logger *slog.Logger) *Registry {
	return &Registry{
		toggles:   toggles,
		logger:    logger,
		bySurface: make(map[*Reveal]*binding),
		byToggle:  make(map[handle.Handle]*binding),
	}
}

// Toggles returns the toggle set the registry binds from.
func (r *Registry) Toggles() *Toggles { return r.toggles }

// SetButton binds toggle to surface. The surface's previous toggle is
// unhooked first, and a toggle already bound elsewhere is taken over.
// The toggle immediately reflects the surface's state. A stale toggle
// handle leaves the surface unbound.
func (r *Registry) SetButton(surface Revealer, toggle handle.Handle) {
	reveal := surface.Reveal()
	if current, ok := r.bySurface[reveal]; ok && current.toggle == toggle {
		return
	}
	r.Unbind(surface)
	if previous, ok := r.byToggle[toggle]; ok {
		r.unbind(previous)
	}

	button, ok := r.toggles.Get(toggle)
	if !ok {
		r.logger.Debug("not binding destroyed toggle", "surface", surface.Name(), "toggle", toggle.String())
		return
	}

	b := &binding{surface: surface, toggle: toggle}
	b.cancelToggled = button.OnToggled(func(checked bool, origin Origin) {
		if origin != OriginUser {
			return
		}
		if checked {
			reveal.Show()
		} else {
			reveal.Hide()
		}
	})
	b.cancelDestroyed = r.toggles.OnDestroyed(toggle, func() {
		r.logger.Debug("bound toggle destroyed", "surface", surface.Name())
		r.unbind(b)
	})
	b.cancelEvents = reveal.Subscribe(func(event Event) {
		r.reflect(b, event)
	})
	r.bySurface[reveal] = b
	r.byToggle[toggle] = b

	button.Set(reveal.State() == Shown || reveal.State() == Showing, OriginSync)
}

// Unbind removes the surface's binding, if any.
func (r *Registry) Unbind(surface Revealer) {
	if b, ok := r.bySurface[surface.Reveal()]; ok {
		r.unbind(b)
	}
}

func (r *Registry) unbind(b *binding) {
	b.cancelToggled()
	b.cancelDestroyed()
	b.cancelEvents()
	if r.bySurface[b.surface.Reveal()] == b {
		delete(r.bySurface, b.surface.Reveal())
	}
	if r.byToggle[b.toggle] == b {
		delete(r.byToggle, b.toggle)
	}
}

// Button returns the surface's toggle handle.
func (r *Registry) Button(surface Revealer) (handle.Handle, bool) {
	b, ok := r.bySurface[surface.Reveal()]
	if !ok {
		return handle.Handle{}, false
	}
	return b.toggle, true
}

// Surface returns the surface bound to toggle.
func (r *Registry) Surface(toggle handle.Handle) (Revealer, bool) {
	b, ok := r.byToggle[toggle]
	if !ok {
		return nil, false
	}
	return b.surface, true
}

// RequestButtonStyle applies a panel's requested style to its toggle.
func (r *Registry) RequestButtonStyle(surface Revealer, style string) {
	if button, ok := r.button(surface); ok {
		button.SetStyle(style)
	}
}

// RequestTooltip applies a panel's requested tooltip to its toggle.
func (r *Registry) RequestTooltip(surface Revealer, text string) {
	if button, ok := r.button(surface); ok {
		button.SetTooltip(text)
	}
}

func (r *Registry) button(surface Revealer) (*Toggle, bool) {
	b, ok := r.bySurface[surface.Reveal()]
	if !ok {
		return nil, false
	}
	return r.toggles.Get(b.toggle)
}

func (r *Registry) reflect(b *binding, event Event) {
	button, ok := r.toggles.Get(b.toggle)
	if !ok {
		return
	}
	switch event.Kind {
	case EventShowBegin:
		button.Set(true, OriginSync)
	case EventHideBegin:
		button.Set(false, OriginSync)
	case EventShowCompleted:
		button.Set(!event.Interrupted, OriginSync)
	case EventHideCompleted:
		button.Set(event.Interrupted, OriginSync)
	case EventShowAborted:
		button.Set(false, OriginSync)
	}
}
