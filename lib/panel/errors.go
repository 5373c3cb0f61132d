// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by Initiate when the connection has no
// live endpoint.
var ErrNotConnected = errors.New("panel: not connected")

// ConnectError reports that a panel service could not be reached. Err
// wraps bus.ErrNoSessionBus when the bus itself is unavailable.
type ConnectError struct {
	Service string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to panel %q: %v", e.Service, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// RemoteError reports that the panel process rejected a call or that
// its reply could not be used.
type RemoteError struct {
	Service string
	Member  string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("panel %q: %s: %v", e.Service, e.Member, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
