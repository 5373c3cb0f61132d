// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the host UI.
type KeyMap struct {
	// Toolbar shows or hides the toolbar.
	Toolbar key.Binding

	// Button selection.
	Left  key.Binding
	Right key.Binding

	// Press toggles the selected button. PressNumber toggles the
	// button at the typed position (1-9).
	Press       key.Binding
	PressNumber key.Binding

	// HideAll hides every panel and the toolbar.
	HideAll key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Toolbar: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toolbar"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left", "shift+tab"),
		key.WithHelp("h/←", "previous"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right", "tab"),
		key.WithHelp("l/→", "next"),
	),
	Press: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "toggle panel"),
	),
	PressNumber: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "toggle panel N"),
	),
	HideAll: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "hide all"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Toolbar, keys.PressNumber, keys.HideAll, keys.Help, keys.Quit}
}

// FullHelp implements help.KeyMap.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.Toolbar, keys.HideAll},
		{keys.Left, keys.Right, keys.Press, keys.PressNumber},
		{keys.Help, keys.Quit},
	}
}
