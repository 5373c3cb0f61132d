// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"testing"

	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

type embeddingHarness struct {
	windows   *wm.Table
	embedding *Embedding
	destroyed int
	panel     wm.WindowID
}

func newEmbeddingHarness(t *testing.T) *embeddingHarness {
	t.Helper()
	h := &embeddingHarness{windows: wm.NewTable()}
	h.embedding = NewEmbedding(h.windows, loop.Inline{}, testLogger(), func() { h.destroyed++ })
	h.panel = h.create(t, wm.FormatClass("status-panel", "StatusApp"), wm.NoWindow)
	return h
}

func (h *embeddingHarness) create(t *testing.T, class []byte, transientFor wm.WindowID) wm.WindowID {
	t.Helper()
	id, err := h.windows.Create(wm.WindowSpec{Class: class, TransientFor: transientFor})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func TestOwnsWindowIsIrreflexive(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")
	if h.embedding.OwnsWindow(h.panel) {
		t.Fatal("OwnsWindow(bound window) = true")
	}
}

func TestOwnsWindowMatchesClass(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")

	sibling := h.create(t, wm.FormatClass("status-popup", "StatusApp"), wm.NoWindow)
	stranger := h.create(t, wm.FormatClass("editor", "Editor"), wm.NoWindow)
	malformed := h.create(t, []byte("StatusApp"), wm.NoWindow)

	if !h.embedding.OwnsWindow(sibling) {
		t.Error("sibling of the same class not owned")
	}
	if h.embedding.OwnsWindow(stranger) {
		t.Error("window of another class owned")
	}
	if h.embedding.OwnsWindow(malformed) {
		t.Error("window with malformed class owned")
	}
	if h.embedding.OwnsWindow(wm.WindowID(0x999)) {
		t.Error("unknown window owned")
	}
}

func TestEmptyChildClassMatchesNothing(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "")
	empty := h.create(t, nil, wm.NoWindow)
	if h.embedding.OwnsWindow(empty) {
		t.Error("empty child class matched a window without class")
	}
}

func TestIsAncestorOfTransient(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")

	dialog := h.create(t, nil, h.panel)
	menu := h.create(t, nil, dialog)
	unrelated := h.create(t, nil, wm.NoWindow)

	if !h.embedding.IsAncestorOfTransient(dialog) {
		t.Error("direct transient not recognised")
	}
	if !h.embedding.IsAncestorOfTransient(menu) {
		t.Error("indirect transient not recognised")
	}
	if h.embedding.IsAncestorOfTransient(unrelated) {
		t.Error("unrelated window recognised as transient")
	}
	if h.embedding.IsAncestorOfTransient(h.panel) {
		t.Error("bound window recognised as its own transient")
	}
}

func TestTransientCycleTerminates(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")

	a := h.create(t, nil, wm.NoWindow)
	b := h.create(t, nil, a)
	if err := h.windows.SetTransientFor(a, b); err != nil {
		t.Fatalf("SetTransientFor: %v", err)
	}
	if h.embedding.IsAncestorOfTransient(a) {
		t.Error("cycle not reaching the panel recognised as transient")
	}
}

func TestClassify(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")

	tests := []struct {
		name   string
		window wm.WindowID
		want   Placement
	}{
		{"sibling", h.create(t, wm.FormatClass("popup", "StatusApp"), wm.NoWindow), PlacementPanelChild},
		{"dialog", h.create(t, wm.FormatClass("popup", "StatusApp"), h.panel), PlacementPanelTransient},
		{"stranger", h.create(t, wm.FormatClass("editor", "Editor"), wm.NoWindow), PlacementIndependent},
		{"panel itself", h.panel, PlacementIndependent},
	}
	for _, test := range tests {
		if got := h.embedding.Classify(test.window); got != test.want {
			t.Errorf("%s: got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestBindThenDestroyLeavesNoAssociation(t *testing.T) {
	h := newEmbeddingHarness(t)
	sibling := h.create(t, wm.FormatClass("popup", "StatusApp"), wm.NoWindow)
	h.embedding.Bind(h.panel, "StatusApp")

	if err := h.windows.Destroy(h.panel); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, bound := h.embedding.Window(); bound {
		t.Fatal("binding survived window destruction")
	}
	if h.embedding.OwnsWindow(sibling) {
		t.Error("OwnsWindow still matches after the bound window was destroyed")
	}
	if h.destroyed != 1 {
		t.Errorf("destroy callbacks: got %d, want 1", h.destroyed)
	}
}

func TestRebindIgnoresOldWindowDestruction(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")
	replacement := h.create(t, wm.FormatClass("status-panel", "StatusApp"), wm.NoWindow)
	h.embedding.Bind(replacement, "StatusApp")

	h.windows.Destroy(h.panel)
	if window, _ := h.embedding.Window(); window != replacement {
		t.Fatalf("bound window: got %v, want %v", window, replacement)
	}
	if h.destroyed != 0 {
		t.Errorf("destroy callbacks: got %d, want 0", h.destroyed)
	}
}

func TestMappedMaterialisesBinding(t *testing.T) {
	h := newEmbeddingHarness(t)
	h.embedding.Bind(h.panel, "StatusApp")
	if h.embedding.Mapped() {
		t.Fatal("binding materialised before the window mapped")
	}
	h.windows.Map(h.panel)
	if !h.embedding.WindowMapped(h.panel) || !h.embedding.Mapped() {
		t.Fatal("binding not materialised after the window mapped")
	}
	if h.embedding.WindowMapped(wm.WindowID(0x999)) {
		t.Error("WindowMapped accepted another window")
	}
}
