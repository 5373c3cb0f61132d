// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package anim provides eased scalar animations driven by a
// [clock.Clock] and completed on an event loop.
//
// An [Animation] interpolates between two values over a fixed
// duration. Its current value is computed on demand from the clock, so
// renderers sample it whenever they draw; only completion is an event.
// Completion callbacks are posted to a [loop.Poster] and never run on
// the clock's goroutine.
//
// An Animation runs at most one transition at a time. Starting a new
// transition abandons the previous one without completing it. Callers
// that need the previous completion to run first call [Animation.Finish].
package anim
