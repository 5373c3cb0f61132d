// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source injected into anything that animates or
// waits. Code under lib/ never calls time.Now or time.AfterFunc
// directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The callback runs on an
	// arbitrary goroutine (real) or on the goroutine calling Advance
	// (fake); callers that own single-threaded state must hand the
	// work to their event loop from inside f.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc callback.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the callback from running. Returns false if it already
// ran or was already stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
