// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellui

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/shell"
)

// frameInterval paces redraws while a slide is running.
const frameInterval = time.Second / 30

// wakeMsg reports that work was posted to the loop.
type wakeMsg struct{}

// frameMsg redraws a running slide.
type frameMsg struct{}

// Options configures a Model.
type Options struct {
	Shell *shell.Shell
	Loop  *loop.Loop

	// Renderer draws styles. Default: lipgloss.DefaultRenderer().
	Renderer *lipgloss.Renderer

	// Theme and Keys default to DefaultTheme and DefaultKeyMap.
	Theme *Theme
	Keys  *KeyMap
}

// Model is the bubbletea model of the host UI.
type Model struct {
	shell  *shell.Shell
	loop   *loop.Loop
	keys   KeyMap
	theme  Theme
	styles styles
	help   help.Model

	selected int
	width    int
	height   int
	showHelp bool
	ticking  bool

	status       string
	statusLevel  slog.Level
	statusSerial int
}

// NewRenderer returns a lipgloss renderer writing to w with a fixed
// color profile.
func NewRenderer(w io.Writer, profile termenv.Profile) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return renderer
}

// DetectProfile returns the color profile the terminal behind w
// supports, honoring NO_COLOR and CLICOLOR_FORCE.
func DetectProfile(w io.Writer) termenv.Profile {
	return termenv.NewOutput(w).EnvColorProfile()
}

// NewModel creates the model. The caller must not drain options.Loop
// once the program runs.
func NewModel(options Options) Model {
	theme := DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	keys := DefaultKeyMap
	if options.Keys != nil {
		keys = *options.Keys
	}
	renderer := options.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}
	return Model{
		shell:  options.Shell,
		loop:   options.Loop,
		keys:   keys,
		theme:  theme,
		styles: newStyles(renderer, theme),
		help:   help.New(),
	}
}

// Init implements tea.Model. Starts listening for loop wakes.
func (model Model) Init() tea.Cmd {
	return waitForWake(model.loop.Wake())
}

// waitForWake returns a tea.Cmd that blocks until the loop has work.
func waitForWake(wake <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-wake
		return wakeMsg{}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case wakeMsg:
		model.loop.Drain()
		return model, tea.Batch(waitForWake(model.loop.Wake()), model.frame())

	case frameMsg:
		model.ticking = false
		model.loop.Drain()
		return model, model.frame()

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.help.Width = message.Width
		return model, nil

	case logRecordMsg:
		model.statusSerial++
		model.status = message.Summary
		model.statusLevel = message.Level
		serial := model.statusSerial
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{Serial: serial}
		})

	case logRecordFadeMsg:
		if message.Serial == model.statusSerial {
			model.status = ""
		}
		return model, nil

	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		model.handleKey(message)
		model.loop.Drain()
		return model, model.frame()
	}
	return model, nil
}

func (model *Model) handleKey(message tea.KeyMsg) {
	entries := model.shell.Entries()
	switch {
	case key.Matches(message, model.keys.Help):
		model.showHelp = !model.showHelp
		model.help.ShowAll = model.showHelp

	case key.Matches(message, model.keys.Toolbar):
		model.shell.Toolbar().Toggle()

	case key.Matches(message, model.keys.Left):
		if len(entries) > 0 {
			model.selected = (model.selected + len(entries) - 1) % len(entries)
		}

	case key.Matches(message, model.keys.Right):
		if len(entries) > 0 {
			model.selected = (model.selected + 1) % len(entries)
		}

	case key.Matches(message, model.keys.Press):
		model.press(model.selected)

	case key.Matches(message, model.keys.PressNumber):
		model.press(int(message.String()[0] - '1'))

	case key.Matches(message, model.keys.HideAll):
		model.shell.HideAll()
	}
}

func (model *Model) press(index int) {
	if err := model.shell.PressIndex(index); err != nil {
		model.status = err.Error()
		model.statusLevel = slog.LevelWarn
		model.statusSerial++
		return
	}
	model.selected = index
}

// frame schedules the next redraw while anything is sliding.
func (model *Model) frame() tea.Cmd {
	if model.ticking || !model.animating() {
		return nil
	}
	model.ticking = true
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (model Model) animating() bool {
	if model.shell.Toolbar().Animating() {
		return true
	}
	for _, entry := range model.shell.Entries() {
		if entry.Surface.Reveal().Animating() {
			return true
		}
	}
	return false
}
