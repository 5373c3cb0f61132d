// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wm is the shell's abstract window system: opaque window ids,
// the legacy WM_CLASS property, the transient-for relation, focus, and
// map/destroy notifications.
//
// The shell owns a [Table]. Remote panel processes create their
// top-level windows in it through the bus ([Export] on the shell side,
// [Client] on the panel side), the same way an X client creates windows
// on the display server. Windows created by a bus peer are destroyed
// when that peer disconnects, so a crashed panel process always
// produces destroy notifications for its windows.
//
// Panel code depends only on the [System] interface and never polls:
// destruction is observed through WatchDestroy.
package wm
