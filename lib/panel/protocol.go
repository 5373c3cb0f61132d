// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import "github.com/bureau-foundation/panelshell/lib/wm"

// Calls the shell makes on a panel service.
const (
	MemberInitPanel   = "InitPanel"
	MemberShow        = "Show"
	MemberHide        = "Hide"
	MemberShowBegin   = "ShowBegin"
	MemberShowEnd     = "ShowEnd"
	MemberHideBegin   = "HideBegin"
	MemberHideEnd     = "HideEnd"
	MemberSetSize     = "SetSize"
	MemberSetPosition = "SetPosition"
	MemberPing        = "Ping"
)

// Signals a panel service emits.
const (
	SignalRequestFocus       = "RequestFocus"
	SignalRequestShow        = "RequestShow"
	SignalRequestHide        = "RequestHide"
	SignalRequestButtonStyle = "RequestButtonStyle"
	SignalRequestTooltip     = "RequestTooltip"
	SignalSetSize            = "SetSize"
	SignalSetPosition        = "SetPosition"
)

// InitArgs is the body of InitPanel. X and Y are present only for
// position-aware panels.
type InitArgs struct {
	Width  int  `cbor:"width"`
	Height int  `cbor:"height"`
	X      *int `cbor:"x,omitempty"`
	Y      *int `cbor:"y,omitempty"`
}

// InitReply is the InitPanel reply body.
type InitReply struct {
	Name         string      `cbor:"name"`
	Window       wm.WindowID `cbor:"window"`
	Tooltip      string      `cbor:"tooltip,omitempty"`
	Stylesheet   string      `cbor:"stylesheet,omitempty"`
	ButtonStyle  string      `cbor:"button_style,omitempty"`
	WindowWidth  int         `cbor:"window_width"`
	WindowHeight int         `cbor:"window_height"`
}

// SizeArgs carries SetSize in both directions.
type SizeArgs struct {
	Width  int `cbor:"width"`
	Height int `cbor:"height"`
}

// PositionArgs carries SetPosition in both directions.
type PositionArgs struct {
	X int `cbor:"x"`
	Y int `cbor:"y"`
}

// ButtonStyleArgs is the RequestButtonStyle payload.
type ButtonStyleArgs struct {
	Style string `cbor:"style"`
}

// TooltipArgs is the RequestTooltip payload.
type TooltipArgs struct {
	Text string `cbor:"text"`
}
