// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"

	"github.com/bureau-foundation/panelshell/lib/codec"
)

// Bus resolves service names to endpoints and reports presence.
type Bus interface {
	// Resolve connects to the current owner of name. Returns an error
	// wrapping ErrNoSessionBus when the bus itself is unavailable and
	// ErrServiceUnknown when nobody owns the name.
	Resolve(ctx context.Context, name string) (Endpoint, error)

	// WatchOwner calls fn every time name gains or loses an owner,
	// until cancel is called. fn runs on a bus goroutine.
	WatchOwner(name string, fn func(OwnerChange)) (cancel func(), err error)
}

// OwnerChange reports a presence transition for a service name.
type OwnerChange struct {
	Name string

	// Appeared is true when a new owner took the name and false when
	// the name was released.
	Appeared bool
}

// ReplyFunc receives the outcome of an asynchronous call: the reply
// body, or an error (a *CallError when the service rejected the call).
// It runs on the endpoint's reader goroutine and is never invoked for
// calls still in flight when the endpoint dies.
type ReplyFunc func(body codec.RawMessage, err error)

// Discard is a ReplyFunc for fire-and-forget calls.
func Discard(codec.RawMessage, error) {}

// Endpoint is a live connection to one owner of a service name.
type Endpoint interface {
	// Name is the service name this endpoint was resolved from.
	Name() string

	// Owner is the owner id announced by the service.
	Owner() string

	// Call sends member(args) and arranges for reply to receive the
	// result. Never blocks on the reply.
	Call(member string, args any, reply ReplyFunc)

	// OnSignal registers fn for every signal the service emits. fn runs
	// on the reader goroutine. The returned function unregisters it.
	OnSignal(fn func(Signal)) (cancel func())

	// Done is closed when the connection ends for any reason.
	Done() <-chan struct{}

	// Close ends the connection. Idempotent.
	Close() error
}
