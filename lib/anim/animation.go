// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package anim

import (
	"time"

	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/loop"
)

// Options configures an Animation.
type Options struct {
	// Duration of one transition. Zero completes transitions on the
	// next loop iteration.
	Duration time.Duration

	// Easing defaults to OutCubic.
	Easing Easing
}

// Animation interpolates a scalar. All methods must be called on the
// loop that completions are posted to.
type Animation struct {
	clock   clock.Clock
	poster  loop.Poster
	options Options

	from, to   float64
	start      time.Time
	timer      *clock.Timer
	onComplete func()
	running    bool

	// settled is the value reported while not running.
	settled float64

	// generation invalidates completions posted by an abandoned
	// transition that raced with Cancel or Start.
	generation uint64
}

// New creates an idle animation whose value is initial.
func New(clk clock.Clock, poster loop.Poster, options Options, initial float64) *Animation {
	if options.Easing == nil {
		options.Easing = OutCubic
	}
	return &Animation{
		clock:   clk,
		poster:  poster,
		options: options,
		settled: initial,
	}
}

// Start begins a transition from the current value to target.
// onComplete runs on the loop when the transition ends normally or is
// finished early with Finish; it does not run if the transition is
// cancelled or replaced.
func (a *Animation) Start(target float64, onComplete func()) {
	from := a.Value()
	a.stop()

	a.generation++
	generation := a.generation
	a.from = from
	a.to = target
	a.start = a.clock.Now()
	a.onComplete = onComplete
	a.running = true

	a.timer = a.clock.AfterFunc(a.options.Duration, func() {
		a.poster.Post(func() {
			if a.generation != generation || !a.running {
				return
			}
			a.complete()
		})
	})
}

// Running reports whether a transition is in flight.
func (a *Animation) Running() bool { return a.running }

// Target is the value the current (or last) transition ends at.
func (a *Animation) Target() float64 {
	if a.running {
		return a.to
	}
	return a.settled
}

// Progress returns the linear progress of the running transition in
// [0,1], or 1 when idle.
func (a *Animation) Progress() float64 {
	if !a.running {
		return 1
	}
	if a.options.Duration <= 0 {
		return 1
	}
	elapsed := a.clock.Now().Sub(a.start)
	return clamp01(float64(elapsed) / float64(a.options.Duration))
}

// Value returns the eased value at the current clock time.
func (a *Animation) Value() float64 {
	if !a.running {
		return a.settled
	}
	eased := a.options.Easing(a.Progress())
	return a.from + (a.to-a.from)*eased
}

// Cancel abandons the running transition, freezing the value where it
// is, without running its completion. Returns false when idle.
func (a *Animation) Cancel() bool {
	if !a.running {
		return false
	}
	a.settled = a.Value()
	a.stop()
	return true
}

// Finish ends the running transition immediately: the value jumps to
// the target and the completion runs synchronously. Returns false
// when idle.
func (a *Animation) Finish() bool {
	if !a.running {
		return false
	}
	a.complete()
	return true
}

// Reset cancels any transition and sets the value directly.
func (a *Animation) Reset(value float64) {
	a.stop()
	a.settled = value
}

func (a *Animation) complete() {
	onComplete := a.onComplete
	a.settled = a.to
	a.stop()
	if onComplete != nil {
		onComplete()
	}
}

func (a *Animation) stop() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.running = false
	a.onComplete = nil
	a.generation++
}
