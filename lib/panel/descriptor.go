// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"fmt"

	"github.com/bureau-foundation/panelshell/lib/bus"
)

// Descriptor identifies a remote panel and the geometry the shell
// requests for it. Immutable once a connection is requested.
type Descriptor struct {
	// ServiceName is the bus name the panel process exports.
	ServiceName string

	Width  int
	Height int

	// X and Y are sent with InitPanel only when PositionAware is set.
	X             int
	Y             int
	PositionAware bool
}

// Validate checks the service name and requested size.
func (d Descriptor) Validate() error {
	if err := bus.ValidateName(d.ServiceName); err != nil {
		return fmt.Errorf("panel descriptor: %w", err)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("panel descriptor %q: size %dx%d must be positive", d.ServiceName, d.Width, d.Height)
	}
	return nil
}

// Rect is a surface's on-screen geometry in cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
