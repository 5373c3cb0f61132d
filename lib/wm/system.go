// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wm

import (
	"errors"
	"strconv"
)

// WindowID is an opaque window handle. Zero is never a valid window.
type WindowID uint32

// NoWindow is the zero WindowID.
const NoWindow WindowID = 0

func (id WindowID) String() string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}

// ErrNoWindow is returned for operations on unknown or destroyed
// windows.
var ErrNoWindow = errors.New("wm: no such window")

// System is the window-system surface panel code depends on.
type System interface {
	// ClassProperty returns the raw WM_CLASS bytes of id.
	ClassProperty(id WindowID) ([]byte, error)

	// TransientFor returns the window id is transient for, if any.
	TransientFor(id WindowID) (WindowID, bool)

	// IsMapped reports whether id exists and is mapped.
	IsMapped(id WindowID) bool

	// Focus gives id input focus.
	Focus(id WindowID) error

	// WatchMap calls fn for every window that becomes mapped.
	WatchMap(fn func(WindowID)) (cancel func())

	// WatchDestroy calls fn once when id is destroyed. If id does not
	// exist, fn is never called and cancel is a no-op.
	WatchDestroy(id WindowID, fn func()) (cancel func())
}
