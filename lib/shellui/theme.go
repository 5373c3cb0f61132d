// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the host UI. All colors use lipgloss
// ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Buttons.
	ButtonForeground  lipgloss.Color
	ButtonBackground  lipgloss.Color
	CheckedForeground lipgloss.Color
	CheckedBackground lipgloss.Color

	// ButtonStyles maps style names a panel may request to the
	// button's foreground color.
	ButtonStyles map[string]lipgloss.Color

	// Panel frames.
	BorderColor     lipgloss.Color
	HeaderColor     lipgloss.Color
	TooltipColor    lipgloss.Color
	StatusWarnColor lipgloss.Color
	StatusErrColor  lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),

	ButtonForeground:  lipgloss.Color("252"),
	ButtonBackground:  lipgloss.Color("236"),
	CheckedForeground: lipgloss.Color("16"),
	CheckedBackground: lipgloss.Color("75"),

	ButtonStyles: map[string]lipgloss.Color{
		"green":  lipgloss.Color("114"),
		"yellow": lipgloss.Color("221"),
		"red":    lipgloss.Color("203"),
		"blue":   lipgloss.Color("75"),
	},

	BorderColor:     lipgloss.Color("240"),
	HeaderColor:     lipgloss.Color("111"),
	TooltipColor:    lipgloss.Color("180"),
	StatusWarnColor: lipgloss.Color("221"),
	StatusErrColor:  lipgloss.Color("203"),
}

// ButtonColor returns the foreground for a requested button style,
// falling back to ButtonForeground for unknown or empty styles.
func (theme Theme) ButtonColor(style string) lipgloss.Color {
	if color, ok := theme.ButtonStyles[style]; ok {
		return color
	}
	return theme.ButtonForeground
}
