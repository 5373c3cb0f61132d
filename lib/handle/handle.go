// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handle provides generation-counted handles for objects whose
// lifetime someone else controls: remote endpoints, toolbar toggles,
// foreign windows. Holding a Handle instead of a pointer means a holder
// never keeps a dead object reachable and never needs a finalizer to
// learn that it died: once the owner removes the entry, every
// outstanding Handle to it misses on Lookup.
//
// Slots are reused. Each reuse bumps the slot's generation, so a stale
// Handle that happens to name a recycled slot still misses.
//
// A Registry is not safe for concurrent use. Panel code only touches
// registries from the event loop.
package handle

import "fmt"

// Handle names one entry of one Registry. The zero Handle never
// resolves.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.generation == 0 }

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(%d.%d)", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Registry stores values addressed by Handle.
type Registry[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (r *Registry[T]) Insert(v T) Handle {
	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	entry := &r.slots[index]
	entry.generation++
	if entry.generation == 0 {
		// Wrapped; zero is reserved for the zero Handle.
		entry.generation = 1
	}
	entry.value = v
	entry.live = true
	r.live++
	return Handle{index: index, generation: entry.generation}
}

// Lookup returns the value for h. The second result is false when the
// entry was removed, its slot was reused, or h is zero.
func (r *Registry[T]) Lookup(h Handle) (T, bool) {
	var zero T
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return zero, false
	}
	entry := &r.slots[h.index]
	if !entry.live || entry.generation != h.generation {
		return zero, false
	}
	return entry.value, true
}

// Remove deletes the entry for h and returns its value. Removing a
// stale handle is a no-op that returns false.
func (r *Registry[T]) Remove(h Handle) (T, bool) {
	value, ok := r.Lookup(h)
	if !ok {
		return value, false
	}
	entry := &r.slots[h.index]
	var zero T
	entry.value = zero
	entry.live = false
	r.free = append(r.free, h.index)
	r.live--
	return value, true
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int { return r.live }

// Each calls fn for every live entry until fn returns false.
func (r *Registry[T]) Each(fn func(Handle, T) bool) {
	for index := range r.slots {
		entry := &r.slots[index]
		if !entry.live {
			continue
		}
		if !fn(Handle{index: uint32(index), generation: entry.generation}, entry.value) {
			return
		}
	}
}
