// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import "github.com/bureau-foundation/panelshell/lib/wm"

// ConnectionState is the lifecycle of a Connection.
type ConnectionState int

const (
	// Disconnected: no endpoint. Initial state, and the state after
	// Close or a failed attempt.
	Disconnected ConnectionState = iota

	// Connecting: an endpoint is resolved and InitPanel may be in
	// flight.
	Connecting

	// Ready: InitPanel succeeded; Info is populated.
	Ready

	// Dead: the endpoint was lost. Reachable from any state with an
	// endpoint.
	Dead
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// PanelInfo is what a Ready connection knows about its panel.
type PanelInfo struct {
	Name        string
	Tooltip     string
	Stylesheet  string
	ButtonStyle string
	Window      wm.WindowID

	// ChildClass is the class token of the panel window's WM_CLASS.
	// Empty when the property was malformed; an empty ChildClass
	// matches no window.
	ChildClass string

	WindowWidth  int
	WindowHeight int
}
