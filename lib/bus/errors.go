// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSessionBus means the session channel itself is unavailable:
	// no bus was configured, or its directory does not exist.
	ErrNoSessionBus = errors.New("bus: session bus unavailable")

	// ErrServiceUnknown means no live owner holds the requested name.
	ErrServiceUnknown = errors.New("bus: service has no owner")

	// ErrEndpointClosed is returned by operations on an endpoint whose
	// connection has ended.
	ErrEndpointClosed = errors.New("bus: endpoint closed")

	// ErrInvalidName rejects service names that cannot be mapped to a
	// socket file.
	ErrInvalidName = errors.New("bus: invalid service name")
)

// CallError is delivered to a reply callback when the service answered
// a call with an error frame.
type CallError struct {
	Service string
	Member  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("bus: %s.%s: %s", e.Service, e.Member, e.Message)
}
