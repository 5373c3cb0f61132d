// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus is the session-scoped channel between the shell and its
// remote panel processes: named services, asynchronous calls with
// completion callbacks, broadcast signals and service presence.
//
// A service is exported under a name. On the socket bus that name is a
// Unix socket in the session directory (<dir>/<name>.sock); on the
// memory bus it is an entry in a map and connections are net.Pipe
// pairs. Both carry the same frame stream, so a panel process behaves
// identically in-process and out-of-process.
//
// # Frames
//
// Every connection is a sequence of self-delimiting CBOR [Frame]
// values. The service speaks first with a hello frame carrying its
// owner id, a UUID minted when the [Service] was created. Afterwards
// the client sends call frames, the service answers each with a reply
// or error frame referencing the call's serial, and may push signal
// frames at any time.
//
// # Liveness
//
// An [Endpoint] is alive exactly as long as its connection. When the
// service process exits or unexports, the connection closes, Done is
// closed and replies for calls still in flight are never delivered.
// Callers observe death through Done rather than through errors on
// individual calls.
//
// # Presence
//
// WatchOwner reports a service name appearing (a new owner took it)
// or vanishing. The socket bus publishes a socket by renaming it into
// place only after listen(2) succeeded, so an appearance always means
// the service is ready to accept.
package bus
