// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package panelservice is the panel process side of the panel
// protocol. A [Panel] exports a bus service that answers the shell's
// InitPanel call by creating and mapping a window in the host's window
// table, tracks the shell's show and hide notifications, and emits the
// requests a panel may make of its button (focus, show, hide, style,
// tooltip, size and position).
//
// Handlers run on bus connection goroutines. Lifecycle notifications
// are reported to an optional [Config].OnEvent observer in the order
// the shell sent them.
package panelservice
