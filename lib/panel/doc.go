// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package panel implements the shell's revealable surfaces and the
// out-of-process panel protocol behind the remote ones.
//
// The pieces, leaves first:
//
//   - [Connection] owns the bus endpoint to one remote panel service:
//     connect, the InitPanel handshake, death detection through the
//     endpoint's lifetime, and reconnection when the service gains a
//     new owner.
//   - [Reveal] is the show/hide state machine every surface shares. It
//     sequences the slide animation with its parent [Container] (the
//     toolbar), an optional asynchronous preparation step, and the
//     surface's [Driver] hooks.
//   - [Embedding] binds a foreign window to a surface and classifies
//     later windows as owned by the panel, transient for it, or
//     independent.
//   - [Registry] keeps exactly one [Toggle] per surface and mirrors the
//     reveal state onto it without feeding its own updates back into
//     show/hide.
//
// [RemoteSurface] composes the first three; [LocalSurface] wraps
// in-process content with a Reveal alone.
//
// Everything in this package is owned by one event loop ([loop.Loop]).
// Bus readers, window-system watchers and clock timers only post work
// to it. No method is safe to call from any other goroutine.
package panel
