// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellui

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/panelshell/lib/panel"
	"github.com/bureau-foundation/panelshell/lib/shell"
)

// minFrameWidth keeps a panel frame readable on narrow terminals.
const minFrameWidth = 12

type styles struct {
	faint   lipgloss.Style
	button  lipgloss.Style
	checked lipgloss.Style
	header  lipgloss.Style
	tooltip lipgloss.Style
	frame   lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	info    lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer, theme Theme) styles {
	return styles{
		faint: renderer.NewStyle().Foreground(theme.FaintText),
		button: renderer.NewStyle().
			Foreground(theme.ButtonForeground).
			Background(theme.ButtonBackground).
			Padding(0, 1),
		checked: renderer.NewStyle().
			Foreground(theme.CheckedForeground).
			Background(theme.CheckedBackground).
			Bold(true).
			Padding(0, 1),
		header:  renderer.NewStyle().Foreground(theme.HeaderColor).Bold(true),
		tooltip: renderer.NewStyle().Foreground(theme.TooltipColor).Italic(true),
		frame: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.BorderColor).
			Foreground(theme.NormalText).
			Padding(0, 1),
		warn: renderer.NewStyle().Foreground(theme.StatusWarnColor),
		err:  renderer.NewStyle().Foreground(theme.StatusErrColor).Bold(true),
		info: renderer.NewStyle().Foreground(theme.NormalText),
	}
}

// View implements tea.Model.
func (model Model) View() string {
	rows := []string{model.renderToolbar()}
	if panels := model.renderPanels(); panels != "" {
		rows = append(rows, panels)
	}
	rows = append(rows, model.renderStatus())
	return strings.Join(rows, "\n")
}

func (model Model) renderToolbar() string {
	toolbar := model.shell.Toolbar()
	if !toolbar.Visible() {
		return model.styles.faint.Render("toolbar hidden, press t")
	}

	var buttons []string
	for index, entry := range model.shell.Entries() {
		toggle := model.shell.Button(entry)
		if toggle == nil {
			continue
		}
		style := model.styles.button.Foreground(model.theme.ButtonColor(toggle.Style()))
		if toggle.Checked() {
			style = model.styles.checked
		}
		if index == model.selected {
			style = style.Underline(true)
		}
		buttons = append(buttons, style.Render(fmt.Sprintf("%d %s", index+1, toggle.Name())))
	}
	line := strings.Join(buttons, " ")

	width := model.width
	if width <= 0 {
		width = ansi.StringWidth(line)
	}
	if progress := toolbar.Progress(); progress < 1 {
		// Slides in from the left.
		line = ansi.Truncate(line, int(math.Round(progress*float64(width))), "")
	}
	return ansi.Truncate(line, width, "…")
}

func (model Model) renderPanels() string {
	var frames []string
	for _, entry := range model.shell.Entries() {
		reveal := entry.Surface.Reveal()
		if !reveal.Visible() {
			continue
		}
		lines := strings.Split(model.renderFrame(entry), "\n")
		rows := len(lines)
		if reveal.State() != panel.Shown {
			// Slides down from the toolbar.
			rows = int(math.Ceil(reveal.Progress() * float64(len(lines))))
		}
		if rows <= 0 {
			continue
		}
		frames = append(frames, strings.Join(lines[:min(rows, len(lines))], "\n"))
	}
	if len(frames) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, frames...)
}

func (model Model) renderFrame(entry shell.Entry) string {
	geometry := entry.Surface.Reveal().Geometry()
	width := max(geometry.Width, minFrameWidth)
	if model.width > 0 {
		width = min(width, max(model.width-4, minFrameWidth))
	}

	lines := []string{model.styles.header.Render(entry.Surface.Name())}
	switch surface := entry.Surface.(type) {
	case *panel.LocalSurface:
		lines = append(lines, strings.Split(fmt.Sprint(surface.Content()), "\n")...)
	case *panel.RemoteSurface:
		lines = append(lines, remoteLines(surface)...)
	}
	if toggle := model.shell.Button(entry); toggle != nil && toggle.Tooltip() != "" {
		lines = append(lines, model.styles.tooltip.Render(toggle.Tooltip()))
	}
	for index, line := range lines {
		lines[index] = ansi.Truncate(line, width, "…")
	}

	return model.styles.frame.
		Width(width + 2).
		Height(max(geometry.Height, len(lines))).
		Render(strings.Join(lines, "\n"))
}

func remoteLines(surface *panel.RemoteSurface) []string {
	connection := surface.Connection()
	lines := []string{
		"service: " + surface.Descriptor().ServiceName,
		"connection: " + connection.State().String(),
	}
	if window, ok := surface.Embedding().Window(); ok {
		line := "window: " + window.String()
		if class := surface.Embedding().ChildClass(); class != "" {
			line += " (" + class + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func (model Model) renderStatus() string {
	if model.status != "" {
		style := model.styles.info
		switch {
		case model.statusLevel >= slog.LevelError:
			style = model.styles.err
		case model.statusLevel >= slog.LevelWarn:
			style = model.styles.warn
		}
		line := style.Render(model.status)
		if model.width > 0 {
			line = ansi.Truncate(line, model.width, "…")
		}
		return line
	}
	return model.help.View(model.keys)
}
