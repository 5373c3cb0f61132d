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

	"github.com/bureau-foundation/panelshell/lib/codec"
)

// helloTimeout bounds how long a freshly dialled service may take to
// announce itself. A service that accepts but never speaks is treated
// as absent.
const helloTimeout = 5 * time.Second

// writeTimeout bounds a single frame write. A peer that stops reading
// for longer is dropped.
const writeTimeout = 2 * time.Second

// outboxSize is how many frames an endpoint queues for its writer
// before it gives up on a peer that is not reading.
const outboxSize = 256

// endpoint is the client half of a bus connection.
type endpoint struct {
	name   string
	owner  string
	conn   net.Conn
	logger *slog.Logger

	encoder *codec.Encoder
	outbox  chan Frame

	mu             sync.Mutex
	serial         uint64
	pending        map[uint64]pendingCall
	signalHandlers map[uint64]func(Signal)
	nextHandler    uint64

	done      chan struct{}
	closeOnce sync.Once
}

type pendingCall struct {
	member string
	reply  ReplyFunc
}

// newEndpoint reads the service's hello from conn and starts the
// reader and writer. Waiting for the hello ends at helloTimeout or
// when ctx is done, whichever comes first. On error conn is closed.
func newEndpoint(ctx context.Context, name string, conn net.Conn, logger *slog.Logger) (*endpoint, error) {
	decoder := codec.NewDecoder(conn)

	deadline := time.Now().Add(helloTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	var hello Frame
	err := decoder.Decode(&hello)
	stop()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading hello from %s: %w", name, err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if hello.Kind != FrameHello {
		conn.Close()
		return nil, fmt.Errorf("service %s opened with %s frame, want hello", name, hello.Kind)
	}

	e := &endpoint{
		name:           name,
		owner:          hello.Owner,
		conn:           conn,
		logger:         logger.With("service", name, "owner", hello.Owner),
		encoder:        codec.NewEncoder(conn),
		outbox:         make(chan Frame, outboxSize),
		pending:        make(map[uint64]pendingCall),
		signalHandlers: make(map[uint64]func(Signal)),
		done:           make(chan struct{}),
	}
	go e.readLoop(decoder)
	go e.writeLoop()
	return e, nil
}

func (e *endpoint) Name() string  { return e.name }
func (e *endpoint) Owner() string { return e.owner }

func (e *endpoint) Done() <-chan struct{} { return e.done }

func (e *endpoint) Call(member string, args any, reply ReplyFunc) {
	if reply == nil {
		reply = Discard
	}
	body, err := encodeBody(args)
	if err != nil {
		reply(nil, fmt.Errorf("encoding %s arguments: %w", member, err))
		return
	}

	e.mu.Lock()
	select {
	case <-e.done:
		e.mu.Unlock()
		e.logger.Debug("call on closed endpoint dropped", "member", member)
		return
	default:
	}
	e.serial++
	serial := e.serial
	e.pending[serial] = pendingCall{member: member, reply: reply}
	e.mu.Unlock()

	select {
	case e.outbox <- Frame{Kind: FrameCall, Serial: serial, Member: member, Body: body}:
	case <-e.done:
	default:
		e.logger.Warn("service is not reading, dropping endpoint", "member", member, "queued", outboxSize)
		e.shutdown()
	}
}

func (e *endpoint) OnSignal(fn func(Signal)) func() {
	e.mu.Lock()
	e.nextHandler++
	id := e.nextHandler
	e.signalHandlers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.signalHandlers, id)
		e.mu.Unlock()
	}
}

func (e *endpoint) Close() error {
	e.shutdown()
	return nil
}

// writeLoop sends queued frames in order. Call never writes itself, so
// a slow service cannot stall the caller.
func (e *endpoint) writeLoop() {
	for {
		select {
		case frame := <-e.outbox:
			_ = e.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := e.encoder.Encode(frame); err != nil {
				// The pending entry is dropped with the rest.
				e.logger.Debug("call write failed", "member", frame.Member, "error", err)
				e.shutdown()
				return
			}
		case <-e.done:
			return
		}
	}
}

func (e *endpoint) shutdown() {
	e.closeOnce.Do(func() {
		e.conn.Close()
		e.mu.Lock()
		dropped := len(e.pending)
		e.pending = nil
		close(e.done)
		e.mu.Unlock()
		e.logger.Debug("endpoint closed", "dropped_calls", dropped)
	})
}

func (e *endpoint) readLoop(decoder *codec.Decoder) {
	defer e.shutdown()
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				e.logger.Debug("endpoint read failed", "error", err)
			}
			return
		}

		switch frame.Kind {
		case FrameReply, FrameError:
			e.mu.Lock()
			call, ok := e.pending[frame.ReplyTo]
			delete(e.pending, frame.ReplyTo)
			e.mu.Unlock()
			if !ok {
				e.logger.Debug("reply for unknown serial", "reply_to", frame.ReplyTo)
				continue
			}
			if frame.Kind == FrameError {
				call.reply(nil, &CallError{Service: e.name, Member: call.member, Message: frame.Error})
			} else {
				call.reply(frame.Body, nil)
			}

		case FrameSignal:
			e.mu.Lock()
			handlers := make([]func(Signal), 0, len(e.signalHandlers))
			for _, handler := range e.signalHandlers {
				handlers = append(handlers, handler)
			}
			e.mu.Unlock()
			signal := Signal{Member: frame.Member, Body: frame.Body}
			for _, handler := range handlers {
				handler(signal)
			}

		default:
			e.logger.Debug("unexpected frame from service", "kind", frame.Kind.String())
		}
	}
}
