// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

// maxTransientDepth bounds the transient-for walk. Window systems do
// not forbid cycles in the relation.
const maxTransientDepth = 64

// Placement is how the shell parents a newly mapped window.
type Placement int

const (
	// PlacementIndependent: the window belongs to no panel.
	PlacementIndependent Placement = iota

	// PlacementPanelChild: a sibling top-level of the panel's window,
	// from the same application class; parented under the panel.
	PlacementPanelChild

	// PlacementPanelTransient: a dialog or menu whose transient-for
	// chain leads to the panel's window.
	PlacementPanelTransient
)

func (p Placement) String() string {
	switch p {
	case PlacementPanelChild:
		return "panel-child"
	case PlacementPanelTransient:
		return "panel-transient"
	default:
		return "independent"
	}
}

// Embedding associates a surface with a foreign window. It never owns
// the window: destruction is observed through the window system, and
// the owner is told through onDestroyed.
type Embedding struct {
	windows     wm.System
	poster      loop.Poster
	logger      *slog.Logger
	onDestroyed func()

	window     wm.WindowID
	childClass string
	mapped     bool

	cancelDestroy func()
}

// NewEmbedding creates an unbound embedding. onDestroyed runs on the
// loop after the bound window is destroyed and the binding cleared.
func NewEmbedding(windows wm.System, poster loop.Poster, logger *slog.Logger, onDestroyed func()) *Embedding {
	return &Embedding{
		windows:     windows,
		poster:      poster,
		logger:      logger,
		onDestroyed: onDestroyed,
	}
}

// Bind associates window with the surface, replacing any previous
// binding. childClass is the class token windows must carry to count
// as the panel's own; "" matches nothing.
func (e *Embedding) Bind(window wm.WindowID, childClass string) {
	e.Clear()
	if window == wm.NoWindow {
		return
	}
	e.window = window
	e.childClass = childClass
	e.mapped = e.windows.IsMapped(window)
	e.cancelDestroy = e.windows.WatchDestroy(window, func() {
		e.poster.Post(func() { e.destroyed(window) })
	})
	e.logger.Debug("window bound", "window", window.String(), "child_class", childClass, "mapped", e.mapped)
}

// Window returns the bound window.
func (e *Embedding) Window() (wm.WindowID, bool) {
	return e.window, e.window != wm.NoWindow
}

// ChildClass returns the class token of the bound panel.
func (e *Embedding) ChildClass() string { return e.childClass }

// Mapped reports whether the bound window has mapped, which is when
// the embedded surface materialises.
func (e *Embedding) Mapped() bool { return e.window != wm.NoWindow && e.mapped }

// WindowMapped records that window mapped. Returns true when it is the
// bound window.
func (e *Embedding) WindowMapped(window wm.WindowID) bool {
	if window == wm.NoWindow || window != e.window {
		return false
	}
	e.mapped = true
	return true
}

// OwnsWindow reports whether candidate is another window of the bound
// panel's application: it differs from the bound window and its
// WM_CLASS class token equals the child class. Never true for the
// bound window itself, for an unbound embedding, or when either class
// is empty or malformed.
func (e *Embedding) OwnsWindow(candidate wm.WindowID) bool {
	if e.window == wm.NoWindow || candidate == wm.NoWindow || candidate == e.window {
		return false
	}
	if e.childClass == "" {
		return false
	}
	raw, err := e.windows.ClassProperty(candidate)
	if err != nil {
		return false
	}
	_, class, ok := wm.ParseClass(raw)
	return ok && class == e.childClass
}

// IsAncestorOfTransient reports whether candidate is a different
// window whose transient-for chain, directly or through intermediate
// windows, reaches the bound window.
func (e *Embedding) IsAncestorOfTransient(candidate wm.WindowID) bool {
	if e.window == wm.NoWindow || candidate == wm.NoWindow || candidate == e.window {
		return false
	}
	visited := map[wm.WindowID]bool{candidate: true}
	current := candidate
	for range maxTransientDepth {
		parent, ok := e.windows.TransientFor(current)
		if !ok {
			return false
		}
		if parent == e.window {
			return true
		}
		if visited[parent] {
			return false
		}
		visited[parent] = true
		current = parent
	}
	return false
}

// Classify decides the placement of a newly mapped window.
func (e *Embedding) Classify(candidate wm.WindowID) Placement {
	switch {
	case e.IsAncestorOfTransient(candidate):
		return PlacementPanelTransient
	case e.OwnsWindow(candidate):
		return PlacementPanelChild
	default:
		return PlacementIndependent
	}
}

// Clear drops the binding without notifying anyone.
func (e *Embedding) Clear() {
	if e.cancelDestroy != nil {
		e.cancelDestroy()
		e.cancelDestroy = nil
	}
	e.window = wm.NoWindow
	e.childClass = ""
	e.mapped = false
}

func (e *Embedding) destroyed(window wm.WindowID) {
	if window != e.window {
		// A notification for a binding replaced since.
		return
	}
	e.logger.Info("embedded window destroyed", "window", window.String())
	e.Clear()
	if e.onDestroyed != nil {
		e.onDestroyed()
	}
}
