// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wm

import (
	"fmt"
	"sort"
	"sync"
)

// WindowSpec describes a window to create.
type WindowSpec struct {
	// Class is the raw WM_CLASS property, usually from FormatClass.
	Class []byte

	// TransientFor optionally names the window this one is a
	// transient (dialog, menu) of.
	TransientFor WindowID

	Title  string
	Width  int
	Height int
}

// Info is a snapshot of one window.
type Info struct {
	ID           WindowID
	Class        []byte
	TransientFor WindowID
	Title        string
	Width        int
	Height       int
	Mapped       bool
}

// Table is an in-memory window system. Safe for concurrent use;
// notification callbacks run on the goroutine that caused the change,
// after the table lock is released.
type Table struct {
	mu          sync.Mutex
	windows     map[WindowID]*Info
	nextID      WindowID
	focused     WindowID
	mapWatchers map[uint64]func(WindowID)
	destroyed   map[WindowID]map[uint64]func()
	nextWatch   uint64
}

// NewTable returns an empty table. The first window id is 0x100 so
// ids never look like small integers in logs.
func NewTable() *Table {
	return &Table{
		windows:     make(map[WindowID]*Info),
		nextID:      0xff,
		mapWatchers: make(map[uint64]func(WindowID)),
		destroyed:   make(map[WindowID]map[uint64]func()),
	}
}

// Create adds an unmapped window.
func (t *Table) Create(spec WindowSpec) (WindowID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if spec.TransientFor != NoWindow {
		if _, ok := t.windows[spec.TransientFor]; !ok {
			return NoWindow, fmt.Errorf("transient-for %v: %w", spec.TransientFor, ErrNoWindow)
		}
	}
	t.nextID++
	id := t.nextID
	t.windows[id] = &Info{
		ID:           id,
		Class:        append([]byte(nil), spec.Class...),
		TransientFor: spec.TransientFor,
		Title:        spec.Title,
		Width:        spec.Width,
		Height:       spec.Height,
	}
	return id, nil
}

// Map marks id mapped and notifies map watchers. Mapping an already
// mapped window is a no-op.
func (t *Table) Map(id WindowID) error {
	t.mu.Lock()
	window, ok := t.windows[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("map %v: %w", id, ErrNoWindow)
	}
	if window.Mapped {
		t.mu.Unlock()
		return nil
	}
	window.Mapped = true
	watchers := make([]func(WindowID), 0, len(t.mapWatchers))
	for _, fn := range t.mapWatchers {
		watchers = append(watchers, fn)
	}
	t.mu.Unlock()

	for _, fn := range watchers {
		fn(id)
	}
	return nil
}

// Destroy removes id and fires its destroy watchers.
func (t *Table) Destroy(id WindowID) error {
	t.mu.Lock()
	if _, ok := t.windows[id]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("destroy %v: %w", id, ErrNoWindow)
	}
	delete(t.windows, id)
	if t.focused == id {
		t.focused = NoWindow
	}
	watchers := t.destroyed[id]
	delete(t.destroyed, id)
	t.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return nil
}

// SetTransientFor changes the transient-for relation of id. Pass
// NoWindow to clear it.
func (t *Table) SetTransientFor(id, parent WindowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	window, ok := t.windows[id]
	if !ok {
		return fmt.Errorf("set transient-for on %v: %w", id, ErrNoWindow)
	}
	if parent != NoWindow {
		if _, ok := t.windows[parent]; !ok {
			return fmt.Errorf("transient-for %v: %w", parent, ErrNoWindow)
		}
	}
	window.TransientFor = parent
	return nil
}

// SetClass replaces the raw WM_CLASS property of id.
func (t *Table) SetClass(id WindowID, raw []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	window, ok := t.windows[id]
	if !ok {
		return fmt.Errorf("set class on %v: %w", id, ErrNoWindow)
	}
	window.Class = append([]byte(nil), raw...)
	return nil
}

// Lookup returns a snapshot of id.
func (t *Table) Lookup(id WindowID) (Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	window, ok := t.windows[id]
	if !ok {
		return Info{}, false
	}
	snapshot := *window
	snapshot.Class = append([]byte(nil), window.Class...)
	return snapshot, true
}

// Windows returns snapshots of every window ordered by id.
func (t *Table) Windows() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := make([]Info, 0, len(t.windows))
	for _, window := range t.windows {
		list = append(list, *window)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Focused returns the window holding input focus.
func (t *Table) Focused() WindowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

func (t *Table) ClassProperty(id WindowID) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	window, ok := t.windows[id]
	if !ok {
		return nil, fmt.Errorf("WM_CLASS of %v: %w", id, ErrNoWindow)
	}
	return append([]byte(nil), window.Class...), nil
}

func (t *Table) TransientFor(id WindowID) (WindowID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	window, ok := t.windows[id]
	if !ok || window.TransientFor == NoWindow {
		return NoWindow, false
	}
	return window.TransientFor, true
}

func (t *Table) IsMapped(id WindowID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	window, ok := t.windows[id]
	return ok && window.Mapped
}

func (t *Table) Focus(id WindowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.windows[id]; !ok {
		return fmt.Errorf("focus %v: %w", id, ErrNoWindow)
	}
	t.focused = id
	return nil
}

func (t *Table) WatchMap(fn func(WindowID)) func() {
	t.mu.Lock()
	t.nextWatch++
	watch := t.nextWatch
	t.mapWatchers[watch] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.mapWatchers, watch)
		t.mu.Unlock()
	}
}

func (t *Table) WatchDestroy(id WindowID, fn func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.windows[id]; !ok {
		return func() {}
	}
	t.nextWatch++
	watch := t.nextWatch
	if t.destroyed[id] == nil {
		t.destroyed[id] = make(map[uint64]func())
	}
	t.destroyed[id][watch] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.destroyed[id], watch)
	}
}
