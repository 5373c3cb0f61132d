// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wm

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/codec"
)

// Client manages windows in a remote Table through its bus export.
// Methods block until the reply arrives or ctx is done; they are meant
// for panel processes, never for the host's event loop.
type Client struct {
	endpoint bus.Endpoint
}

// Dial resolves the window service on b.
func Dial(ctx context.Context, b bus.Bus) (*Client, error) {
	endpoint, err := b.Resolve(ctx, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("resolving window service: %w", err)
	}
	return &Client{endpoint: endpoint}, nil
}

// NewClient wraps an already-resolved endpoint.
func NewClient(endpoint bus.Endpoint) *Client {
	return &Client{endpoint: endpoint}
}

// Done is closed when the connection to the window service ends.
// Every window this client created has been destroyed by then.
func (c *Client) Done() <-chan struct{} { return c.endpoint.Done() }

// Close disconnects, destroying every window this client created.
func (c *Client) Close() error { return c.endpoint.Close() }

// Create creates an unmapped window.
func (c *Client) Create(ctx context.Context, args CreateWindowArgs) (WindowID, error) {
	var reply WindowArgs
	if err := c.call(ctx, MemberCreateWindow, args, &reply); err != nil {
		return NoWindow, err
	}
	return reply.Window, nil
}

// Map maps a window.
func (c *Client) Map(ctx context.Context, id WindowID) error {
	return c.call(ctx, MemberMapWindow, WindowArgs{Window: id}, nil)
}

// Destroy destroys a window.
func (c *Client) Destroy(ctx context.Context, id WindowID) error {
	return c.call(ctx, MemberDestroyWindow, WindowArgs{Window: id}, nil)
}

// SetTransientFor marks id as transient for parent.
func (c *Client) SetTransientFor(ctx context.Context, id, parent WindowID) error {
	return c.call(ctx, MemberSetTransientFor, SetTransientForArgs{Window: id, Parent: parent}, nil)
}

// SetClass replaces the raw WM_CLASS property of id.
func (c *Client) SetClass(ctx context.Context, id WindowID, raw []byte) error {
	return c.call(ctx, MemberSetClass, SetClassArgs{Window: id, Class: raw}, nil)
}

// List returns every window in the remote table.
func (c *Client) List(ctx context.Context) ([]WindowRecord, error) {
	var records []WindowRecord
	if err := c.call(ctx, MemberListWindows, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type callOutcome struct {
	body codec.RawMessage
	err  error
}

func (c *Client) call(ctx context.Context, member string, args, result any) error {
	outcome := make(chan callOutcome, 1)
	c.endpoint.Call(member, args, func(body codec.RawMessage, err error) {
		outcome <- callOutcome{body: body, err: err}
	})

	var got callOutcome
	select {
	case got = <-outcome:
	case <-c.endpoint.Done():
		// A reply delivered just before the connection ended still
		// counts.
		select {
		case got = <-outcome:
		default:
			return fmt.Errorf("%s: %w", member, bus.ErrEndpointClosed)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	if got.err != nil {
		return fmt.Errorf("%s: %w", member, got.err)
	}
	if result == nil {
		return nil
	}
	if err := bus.Decode(got.body, result); err != nil {
		return fmt.Errorf("decoding %s reply: %w", member, err)
	}
	return nil
}
