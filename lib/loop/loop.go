// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package loop is the single-threaded event loop that owns all panel
// state. Socket readers, presence watchers and clock timers run on
// their own goroutines and hand work to the loop with Post; everything
// that touches a surface, connection or toolbar runs inside a posted
// function, one at a time, in posting order.
//
// A Loop is driven either by Run (standalone binaries and socket
// tests) or by calling Drain whenever Wake fires (the bubbletea UI,
// which already owns a goroutine for Update). Unit tests call Drain
// directly after each step.
package loop

import (
	"context"
	"sync"
)

// Poster accepts work for the loop. Components depend on Poster rather
// than *Loop so tests can run posted work inline.
type Poster interface {
	Post(fn func())
}

// Loop is an unbounded FIFO of functions executed on one goroutine.
// Post never blocks, so a posted function may itself post.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// New returns an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. Safe to call from any goroutine, including from
// inside a function the loop is currently running.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake delivers a value whenever work has been posted since the last
// receive. Coalesces: many posts may produce one wake.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Drain runs queued functions until the queue is empty, including
// functions posted while draining. Returns how many ran. Must only be
// called from the goroutine that owns the loop.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Len reports how many functions are queued.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Run drains the loop every time work arrives until ctx is cancelled.
// Work still queued at cancellation is dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Inline is a Poster that runs fn immediately on the caller's
// goroutine. Only for code paths that are already single-threaded,
// such as the remote panel side of a test.
type Inline struct{}

// Post runs fn.
func (Inline) Post(fn func()) { fn() }
