// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellui

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/config"
	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/panel"
	"github.com/bureau-foundation/panelshell/lib/shell"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type testUI struct {
	model Model
	shell *shell.Shell
	clock *clock.FakeClock
}

func newTestUI(t *testing.T) *testUI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.Panels = []config.PanelConfig{
		{Name: "notes", Kind: config.LocalKind, Text: "remember the milk", Width: 30, Height: 3},
		{Name: "todo", Kind: config.LocalKind, Text: "water plants", Width: 30, Height: 3},
	}

	eventLoop := loop.New()
	fake := clock.Fake(epoch)
	sh, err := shell.New(shell.Options{
		Config:  cfg,
		Bus:     bus.NewMemory(logger),
		Windows: wm.NewTable(),
		Clock:   fake,
		Poster:  eventLoop,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("shell.New: %v", err)
	}
	t.Cleanup(sh.Close)

	model := NewModel(Options{
		Shell:    sh,
		Loop:     eventLoop,
		Renderer: NewRenderer(io.Discard, termenv.Ascii),
	})
	ui := &testUI{model: model, shell: sh, clock: fake}
	ui.send(t, tea.WindowSizeMsg{Width: 100, Height: 30})
	return ui
}

func (ui *testUI) send(t *testing.T, message tea.Msg) tea.Cmd {
	t.Helper()
	updated, cmd := ui.model.Update(message)
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	ui.model = model
	return cmd
}

func (ui *testUI) key(t *testing.T, keys string) tea.Cmd {
	t.Helper()
	return ui.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

// settle advances the clock past every slide and lets the model drain
// the loop.
func (ui *testUI) settle(t *testing.T) {
	t.Helper()
	for range 3 {
		ui.clock.Advance(time.Second)
		ui.send(t, wakeMsg{})
	}
}

func TestPressNumberShowsPanel(t *testing.T) {
	ui := newTestUI(t)

	if view := ui.model.View(); !strings.Contains(view, "toolbar hidden") {
		t.Errorf("initial view should show the hidden toolbar hint:\n%s", view)
	}

	cmd := ui.key(t, "1")
	if cmd == nil {
		t.Error("expected a frame tick while the toolbar slides")
	}
	ui.settle(t)

	notes, _ := ui.shell.Entry("notes")
	if state := notes.Surface.Reveal().State(); state != panel.Shown {
		t.Fatalf("notes state: got %v, want Shown", state)
	}
	if !ui.shell.Button(notes).Checked() {
		t.Error("notes button not checked")
	}

	view := ui.model.View()
	for _, want := range []string{"1 notes", "2 todo", "remember the milk"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "water plants") {
		t.Errorf("hidden panel rendered:\n%s", view)
	}
}

func TestSelectionAndPress(t *testing.T) {
	ui := newTestUI(t)

	ui.send(t, tea.KeyMsg{Type: tea.KeyRight})
	if ui.model.selected != 1 {
		t.Fatalf("selected after right: got %d, want 1", ui.model.selected)
	}
	ui.send(t, tea.KeyMsg{Type: tea.KeyRight})
	if ui.model.selected != 0 {
		t.Fatalf("selection should wrap: got %d, want 0", ui.model.selected)
	}
	ui.send(t, tea.KeyMsg{Type: tea.KeyLeft})
	ui.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	ui.settle(t)

	todo, _ := ui.shell.Entry("todo")
	if state := todo.Surface.Reveal().State(); state != panel.Shown {
		t.Fatalf("todo state: got %v, want Shown", state)
	}
}

func TestHideAll(t *testing.T) {
	ui := newTestUI(t)
	ui.key(t, "1")
	ui.settle(t)

	ui.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	ui.settle(t)

	notes, _ := ui.shell.Entry("notes")
	if state := notes.Surface.Reveal().State(); state != panel.Hidden {
		t.Errorf("notes after esc: got %v, want Hidden", state)
	}
	if ui.shell.Toolbar().Visible() {
		t.Error("toolbar visible after esc")
	}
	if ui.model.animating() {
		t.Error("model still animating after settle")
	}
}

func TestToolbarToggleKey(t *testing.T) {
	ui := newTestUI(t)
	ui.key(t, "t")
	ui.settle(t)
	if !ui.shell.Toolbar().Mapped() {
		t.Fatal("toolbar not mapped after t")
	}
	ui.key(t, "t")
	ui.settle(t)
	if ui.shell.Toolbar().Visible() {
		t.Error("toolbar still visible after second t")
	}
}

func TestPressUnknownNumberReportsStatus(t *testing.T) {
	ui := newTestUI(t)
	ui.key(t, "7")
	if view := ui.model.View(); !strings.Contains(view, "no panel at position 6") {
		t.Errorf("view missing press error:\n%s", view)
	}
}

func TestLogRecordsFade(t *testing.T) {
	ui := newTestUI(t)

	cmd := ui.send(t, logRecordMsg{Summary: "panel ready (panel=status)", Level: slog.LevelInfo})
	if cmd == nil {
		t.Fatal("log record should schedule a fade")
	}
	if view := ui.model.View(); !strings.Contains(view, "panel ready") {
		t.Errorf("view missing log record:\n%s", view)
	}

	stale := ui.model.statusSerial
	ui.send(t, logRecordMsg{Summary: "second", Level: slog.LevelWarn})
	ui.send(t, logRecordFadeMsg{Serial: stale})
	if ui.model.status != "second" {
		t.Errorf("stale fade cleared newer record: status %q", ui.model.status)
	}
	ui.send(t, logRecordFadeMsg{Serial: ui.model.statusSerial})
	if ui.model.status != "" {
		t.Errorf("status after fade: got %q", ui.model.status)
	}
}

func TestQuitAndHelp(t *testing.T) {
	ui := newTestUI(t)

	ui.key(t, "?")
	if view := ui.model.View(); !strings.Contains(view, "hide all") || !strings.Contains(view, "previous") {
		t.Errorf("full help missing bindings:\n%s", view)
	}

	cmd := ui.key(t, "q")
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
