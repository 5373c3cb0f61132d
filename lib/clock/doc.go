// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the two time operations the shell needs:
// reading the current time and scheduling a callback. Animations,
// toolbar slides and frame ticks take a Clock so tests can drive them
// deterministically with [Fake] instead of sleeping.
//
// Production code uses [Real]. Tests construct [Fake] at a fixed
// instant and call [FakeClock.Advance]; due callbacks fire
// synchronously, in deadline order, on the advancing goroutine.
package clock
