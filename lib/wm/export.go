// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/codec"
)

// ServiceName is the bus name the host exports its window table under.
const ServiceName = "panelshell.windows"

// Members of the window service.
const (
	MemberCreateWindow    = "CreateWindow"
	MemberMapWindow       = "MapWindow"
	MemberDestroyWindow   = "DestroyWindow"
	MemberSetTransientFor = "SetTransientFor"
	MemberSetClass        = "SetClass"
	MemberListWindows     = "ListWindows"
)

// CreateWindowArgs is the body of a CreateWindow call.
type CreateWindowArgs struct {
	Class        []byte   `cbor:"class"`
	TransientFor WindowID `cbor:"transient_for,omitempty"`
	Title        string   `cbor:"title,omitempty"`
	Width        int      `cbor:"width"`
	Height       int      `cbor:"height"`
}

// WindowArgs names a single window.
type WindowArgs struct {
	Window WindowID `cbor:"window"`
}

// SetTransientForArgs is the body of a SetTransientFor call.
type SetTransientForArgs struct {
	Window WindowID `cbor:"window"`
	Parent WindowID `cbor:"parent"`
}

// SetClassArgs is the body of a SetClass call.
type SetClassArgs struct {
	Window WindowID `cbor:"window"`
	Class  []byte   `cbor:"class"`
}

// WindowRecord is one entry of a ListWindows reply.
type WindowRecord struct {
	Window       WindowID `cbor:"window"`
	Class        []byte   `cbor:"class"`
	TransientFor WindowID `cbor:"transient_for,omitempty"`
	Title        string   `cbor:"title,omitempty"`
	Width        int      `cbor:"width"`
	Height       int      `cbor:"height"`
	Mapped       bool     `cbor:"mapped"`
}

// Export builds a bus service that lets other processes create and
// manage windows in table. Windows are owned by the peer that created
// them: when that peer disconnects, its surviving windows are
// destroyed, so a crashed panel process looks exactly like a panel
// that destroyed its window.
func Export(table *Table, logger *slog.Logger) *bus.Service {
	exporter := &tableExporter{
		table:  table,
		logger: logger,
		owned:  make(map[uint64]map[WindowID]struct{}),
	}

	service := bus.NewService(ServiceName, logger)
	service.Handle(MemberCreateWindow, exporter.handleCreate)
	service.Handle(MemberMapWindow, exporter.handleMap)
	service.Handle(MemberDestroyWindow, exporter.handleDestroy)
	service.Handle(MemberSetTransientFor, exporter.handleSetTransientFor)
	service.Handle(MemberSetClass, exporter.handleSetClass)
	service.Handle(MemberListWindows, exporter.handleList)
	service.OnDisconnect(exporter.peerGone)
	return service
}

type tableExporter struct {
	table  *Table
	logger *slog.Logger

	mu    sync.Mutex
	owned map[uint64]map[WindowID]struct{}
}

func (e *tableExporter) handleCreate(_ context.Context, peer *bus.Peer, body codec.RawMessage) (any, error) {
	var args CreateWindowArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding CreateWindow: %w", err)
	}
	id, err := e.table.Create(WindowSpec{
		Class:        args.Class,
		TransientFor: args.TransientFor,
		Title:        args.Title,
		Width:        args.Width,
		Height:       args.Height,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.owned[peer.ID()] == nil {
		e.owned[peer.ID()] = make(map[WindowID]struct{})
	}
	e.owned[peer.ID()][id] = struct{}{}
	e.mu.Unlock()

	e.logger.Debug("window created", "window", id.String(), "peer", peer.ID(), "title", args.Title)
	return WindowArgs{Window: id}, nil
}

func (e *tableExporter) handleMap(_ context.Context, _ *bus.Peer, body codec.RawMessage) (any, error) {
	var args WindowArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding MapWindow: %w", err)
	}
	return nil, e.table.Map(args.Window)
}

func (e *tableExporter) handleDestroy(_ context.Context, peer *bus.Peer, body codec.RawMessage) (any, error) {
	var args WindowArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding DestroyWindow: %w", err)
	}
	e.mu.Lock()
	delete(e.owned[peer.ID()], args.Window)
	e.mu.Unlock()
	return nil, e.table.Destroy(args.Window)
}

func (e *tableExporter) handleSetTransientFor(_ context.Context, _ *bus.Peer, body codec.RawMessage) (any, error) {
	var args SetTransientForArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding SetTransientFor: %w", err)
	}
	return nil, e.table.SetTransientFor(args.Window, args.Parent)
}

func (e *tableExporter) handleSetClass(_ context.Context, _ *bus.Peer, body codec.RawMessage) (any, error) {
	var args SetClassArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding SetClass: %w", err)
	}
	return nil, e.table.SetClass(args.Window, args.Class)
}

func (e *tableExporter) handleList(context.Context, *bus.Peer, codec.RawMessage) (any, error) {
	windows := e.table.Windows()
	records := make([]WindowRecord, 0, len(windows))
	for _, window := range windows {
		records = append(records, WindowRecord{
			Window:       window.ID,
			Class:        window.Class,
			TransientFor: window.TransientFor,
			Title:        window.Title,
			Width:        window.Width,
			Height:       window.Height,
			Mapped:       window.Mapped,
		})
	}
	return records, nil
}

func (e *tableExporter) peerGone(peer *bus.Peer) {
	e.mu.Lock()
	windows := e.owned[peer.ID()]
	delete(e.owned, peer.ID())
	e.mu.Unlock()

	for id := range windows {
		if err := e.table.Destroy(id); err != nil && !errors.Is(err, ErrNoWindow) {
			e.logger.Warn("destroying window of departed peer", "window", id.String(), "error", err)
			continue
		}
		e.logger.Debug("destroyed window of departed peer", "window", id.String(), "peer", peer.ID())
	}
}
