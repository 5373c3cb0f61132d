// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/panelshell/lib/codec"
)

// HandlerFunc processes one call. body is the CBOR argument (empty when
// the caller passed none). A non-nil result is encoded into the reply
// body; a non-nil error becomes an error frame carrying err.Error().
//
// Calls from one peer are handled sequentially, in the order they were
// sent, on that peer's connection goroutine.
type HandlerFunc func(ctx context.Context, peer *Peer, body codec.RawMessage) (any, error)

// Service is the exporting side of a bus name: a member dispatch table
// plus the set of connected peers that signals are broadcast to.
//
// Register members with Handle before exporting the service.
type Service struct {
	name   string
	owner  string
	logger *slog.Logger

	handlers map[string]HandlerFunc

	mu              sync.Mutex
	peers           map[uint64]*Peer
	nextPeer        uint64
	closed          bool
	disconnectHooks []func(*Peer)
	active          sync.WaitGroup
}

// Peer is one connected client of a Service.
type Peer struct {
	id      uint64
	conn    net.Conn
	writeMu sync.Mutex
	encoder *codec.Encoder
}

// ID is unique among the peers of one Service.
func (p *Peer) ID() uint64 { return p.id }

func (p *Peer) write(frame Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.encoder.Encode(frame)
}

// NewService creates a service for name with a fresh owner id. Panics
// on an invalid name: names are compile-time constants or validated
// configuration.
func NewService(name string, logger *slog.Logger) *Service {
	if err := ValidateName(name); err != nil {
		panic(err.Error())
	}
	owner := uuid.NewString()
	return &Service{
		name:     name,
		owner:    owner,
		logger:   logger.With("service", name, "owner", owner),
		handlers: make(map[string]HandlerFunc),
		peers:    make(map[uint64]*Peer),
	}
}

// Name returns the exported service name.
func (s *Service) Name() string { return s.name }

// Owner returns the owner id sent in every hello frame.
func (s *Service) Owner() string { return s.owner }

// Handle registers handler for member. Panics on duplicates.
func (s *Service) Handle(member string, handler HandlerFunc) {
	if _, exists := s.handlers[member]; exists {
		panic(fmt.Sprintf("bus.Service: duplicate handler for member %q", member))
	}
	s.handlers[member] = handler
}

// OnDisconnect registers fn to run after a peer's connection ends.
func (s *Service) OnDisconnect(fn func(*Peer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectHooks = append(s.disconnectHooks, fn)
}

// PeerCount returns the number of connected peers.
func (s *Service) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Emit broadcasts a signal to every connected peer. Delivery failures
// to individual peers are logged and otherwise ignored: that peer's
// connection is about to end anyway.
func (s *Service) Emit(member string, payload any) error {
	body, err := encodeBody(payload)
	if err != nil {
		return fmt.Errorf("encoding %s signal: %w", member, err)
	}

	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, peer := range s.peers {
		peers = append(peers, peer)
	}
	s.mu.Unlock()

	frame := Frame{Kind: FrameSignal, Member: member, Body: body}
	for _, peer := range peers {
		if err := peer.write(frame); err != nil {
			s.logger.Debug("signal delivery failed", "member", member, "peer", peer.id, "error", err)
		}
	}
	return nil
}

// ServeConn runs the protocol for one accepted connection until it
// ends. The connection is closed on return.
func (s *Service) ServeConn(ctx context.Context, conn net.Conn) {
	peer, ok := s.attach(conn)
	if !ok {
		conn.Close()
		return
	}
	defer s.detach(peer)

	if err := peer.write(Frame{Kind: FrameHello, Owner: s.owner}); err != nil {
		s.logger.Debug("hello write failed", "peer", peer.id, "error", err)
		return
	}

	peerContext, cancel := context.WithCancel(ctx)
	defer cancel()

	decoder := codec.NewDecoder(conn)
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("peer read failed", "peer", peer.id, "error", err)
			}
			return
		}
		if frame.Kind != FrameCall {
			s.logger.Debug("ignoring non-call frame from peer", "peer", peer.id, "kind", frame.Kind.String())
			continue
		}
		if err := peer.write(s.dispatch(peerContext, peer, frame)); err != nil {
			s.logger.Debug("reply write failed", "peer", peer.id, "member", frame.Member, "error", err)
			return
		}
	}
}

func (s *Service) dispatch(ctx context.Context, peer *Peer, call Frame) Frame {
	handler, exists := s.handlers[call.Member]
	if !exists {
		return Frame{Kind: FrameError, ReplyTo: call.Serial, Error: fmt.Sprintf("unknown member %q", call.Member)}
	}

	result, err := handler(ctx, peer, call.Body)
	if err != nil {
		s.logger.Debug("call failed", "member", call.Member, "peer", peer.id, "error", err)
		return Frame{Kind: FrameError, ReplyTo: call.Serial, Error: err.Error()}
	}

	body, err := encodeBody(result)
	if err != nil {
		return Frame{Kind: FrameError, ReplyTo: call.Serial, Error: fmt.Sprintf("internal: encoding result: %v", err)}
	}
	return Frame{Kind: FrameReply, ReplyTo: call.Serial, Body: body}
}

func (s *Service) attach(conn net.Conn) (*Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.nextPeer++
	peer := &Peer{id: s.nextPeer, conn: conn, encoder: codec.NewEncoder(conn)}
	s.peers[peer.id] = peer
	s.active.Add(1)
	return peer, true
}

func (s *Service) detach(peer *Peer) {
	peer.conn.Close()

	s.mu.Lock()
	delete(s.peers, peer.id)
	hooks := append([]func(*Peer){}, s.disconnectHooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(peer)
	}
	s.active.Done()
}

// Close disconnects every peer, refuses new ones and waits for the
// connection goroutines to finish.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for _, peer := range s.peers {
		peer.conn.Close()
	}
	s.mu.Unlock()
	s.active.Wait()
}
