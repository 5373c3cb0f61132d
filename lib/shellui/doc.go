// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shellui is the terminal front end of the panelshell host. A
// [Model] renders the toolbar as a row of toggle buttons and each
// visible panel as a bordered frame that slides down from it, clipped
// to the panel's reveal progress.
//
// The bubbletea Update goroutine owns the shell's event loop: every
// wake of the loop arrives as a message and is drained inside Update,
// so panel state is only ever touched from that goroutine. While any
// slide is running the model also schedules frame ticks to redraw.
//
// [LogHandler] routes slog records into the program's status line.
package shellui
