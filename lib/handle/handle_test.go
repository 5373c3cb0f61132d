// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handle

import "testing"

func TestInsertLookupRemove(t *testing.T) {
	var registry Registry[string]
	h := registry.Insert("status")

	value, ok := registry.Lookup(h)
	if !ok || value != "status" {
		t.Fatalf("Lookup: got (%q, %v), want (status, true)", value, ok)
	}

	removed, ok := registry.Remove(h)
	if !ok || removed != "status" {
		t.Fatalf("Remove: got (%q, %v)", removed, ok)
	}
	if _, ok := registry.Lookup(h); ok {
		t.Fatal("Lookup after Remove succeeded")
	}
	if _, ok := registry.Remove(h); ok {
		t.Fatal("second Remove succeeded")
	}
	if registry.Len() != 0 {
		t.Fatalf("Len: got %d, want 0", registry.Len())
	}
}

func TestStaleHandleMissesAfterSlotReuse(t *testing.T) {
	var registry Registry[int]
	old := registry.Insert(1)
	registry.Remove(old)

	fresh := registry.Insert(2)
	if fresh.index != old.index {
		t.Fatalf("slot not reused: old %v, fresh %v", old, fresh)
	}
	if _, ok := registry.Lookup(old); ok {
		t.Fatal("stale handle resolved to recycled slot")
	}
	if value, ok := registry.Lookup(fresh); !ok || value != 2 {
		t.Fatalf("fresh Lookup: got (%d, %v)", value, ok)
	}
}

func TestZeroHandleNeverResolves(t *testing.T) {
	var registry Registry[int]
	registry.Insert(7)
	var zero Handle
	if !zero.IsZero() {
		t.Fatal("zero Handle reports non-zero")
	}
	if _, ok := registry.Lookup(zero); ok {
		t.Fatal("zero handle resolved")
	}
}

func TestEachVisitsLiveEntries(t *testing.T) {
	var registry Registry[string]
	a := registry.Insert("a")
	registry.Insert("b")
	registry.Remove(a)
	registry.Insert("c")

	seen := map[string]bool{}
	registry.Each(func(_ Handle, value string) bool {
		seen[value] = true
		return true
	})
	if len(seen) != 2 || !seen["b"] || !seen["c"] {
		t.Fatalf("Each visited %v, want b and c", seen)
	}
}
