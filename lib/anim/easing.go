// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package anim

import (
	"fmt"
	"sort"
)

// Easing maps linear progress in [0,1] to eased progress in [0,1].
type Easing func(t float64) float64

var (
	// Linear moves at constant speed.
	Linear Easing = func(t float64) float64 { return t }

	// Smoothstep accelerates at the start and decelerates at the end.
	Smoothstep Easing = func(t float64) float64 { return t * t * (3 - 2*t) }

	// OutCubic starts fast and settles. The slide default.
	OutCubic Easing = func(t float64) float64 {
		t1 := t - 1
		return t1*t1*t1 + 1
	}

	// InCubic starts slow and accelerates.
	InCubic Easing = func(t float64) float64 { return t * t * t }

	// InOutQuad is a quadratic S-curve.
	InOutQuad Easing = func(t float64) float64 {
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	}
)

var easingsByName = map[string]Easing{
	"linear":      Linear,
	"smoothstep":  Smoothstep,
	"out-cubic":   OutCubic,
	"in-cubic":    InCubic,
	"in-out-quad": InOutQuad,
}

// EasingByName returns the named easing function, as used in
// configuration files.
func EasingByName(name string) (Easing, error) {
	easing, ok := easingsByName[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q (known: %v)", name, EasingNames())
	}
	return easing, nil
}

// EasingNames lists the names EasingByName accepts, sorted.
func EasingNames() []string {
	names := make([]string, 0, len(easingsByName))
	for name := range easingsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
