// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/codec"
	"github.com/bureau-foundation/panelshell/lib/loop"
)

const testTimeout = 5 * time.Second

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// settleUntil drains the loop until cond holds, waiting for work
// posted by endpoint goroutines.
func settleUntil(t *testing.T, eventLoop *loop.Loop, cond func() bool, what string) {
	t.Helper()
	deadline := time.After(testTimeout) //nolint:realclock test hang prevention
	for {
		eventLoop.Drain()
		if cond() {
			return
		}
		select {
		case <-eventLoop.Wake():
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

// --- fake bus ---

type fakeBus struct {
	mu         sync.Mutex
	noSession  bool
	owners     map[string]int
	endpoints  []*fakeEndpoint
	watchers   map[string][]func(bus.OwnerChange)
	onResolved func(*fakeEndpoint)

	// gate, when set, holds every Resolve until it is closed, even
	// past the resolve's context.
	gate chan struct{}
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		owners:   make(map[string]int),
		watchers: make(map[string][]func(bus.OwnerChange)),
	}
}

// start gives name a new owner and reports it to watchers.
func (b *fakeBus) start(name string) {
	b.mu.Lock()
	b.owners[name]++
	watchers := append([]func(bus.OwnerChange){}, b.watchers[name]...)
	b.mu.Unlock()
	for _, fn := range watchers {
		fn(bus.OwnerChange{Name: name, Appeared: true})
	}
}

// stop removes the owner of name, killing its endpoints.
func (b *fakeBus) stop(name string) {
	b.mu.Lock()
	delete(b.owners, name)
	var dying []*fakeEndpoint
	for _, endpoint := range b.endpoints {
		if endpoint.name == name {
			dying = append(dying, endpoint)
		}
	}
	watchers := append([]func(bus.OwnerChange){}, b.watchers[name]...)
	b.mu.Unlock()
	for _, endpoint := range dying {
		endpoint.Close()
	}
	for _, fn := range watchers {
		fn(bus.OwnerChange{Name: name, Appeared: false})
	}
}

func (b *fakeBus) Resolve(_ context.Context, name string) (bus.Endpoint, error) {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	if b.noSession {
		b.mu.Unlock()
		return nil, fmt.Errorf("opening bus: %w", bus.ErrNoSessionBus)
	}
	generation, ok := b.owners[name]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%q: %w", name, bus.ErrServiceUnknown)
	}
	endpoint := &fakeEndpoint{
		name:  name,
		owner: fmt.Sprintf("%s-owner-%d", name, generation),
		done:  make(chan struct{}),
	}
	b.endpoints = append(b.endpoints, endpoint)
	onResolved := b.onResolved
	b.mu.Unlock()
	if onResolved != nil {
		onResolved(endpoint)
	}
	return endpoint, nil
}

func (b *fakeBus) WatchOwner(name string, fn func(bus.OwnerChange)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.noSession {
		return nil, bus.ErrNoSessionBus
	}
	b.watchers[name] = append(b.watchers[name], fn)
	index := len(b.watchers[name]) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.watchers[name][index] = func(bus.OwnerChange) {}
	}, nil
}

// hold makes Resolve wait until the returned release is called.
func (b *fakeBus) hold() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.gate = nil
		b.mu.Unlock()
		close(gate)
	}
}

// latest returns the most recently resolved endpoint.
func (b *fakeBus) latest(t *testing.T) *fakeEndpoint {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.endpoints) == 0 {
		t.Fatal("no endpoint resolved")
	}
	return b.endpoints[len(b.endpoints)-1]
}

// openEndpoints counts resolved endpoints not yet closed.
func (b *fakeBus) openEndpoints() int {
	b.mu.Lock()
	endpoints := append([]*fakeEndpoint(nil), b.endpoints...)
	b.mu.Unlock()
	open := 0
	for _, endpoint := range endpoints {
		if !endpoint.isClosed() {
			open++
		}
	}
	return open
}

func (b *fakeBus) resolveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.endpoints)
}

// countingPoster posts to a loop and counts the posts, so tests can
// wait for work a goroutine has not handed over yet.
type countingPoster struct {
	loop   *loop.Loop
	posted atomic.Int64
}

func (p *countingPoster) Post(fn func()) {
	p.loop.Post(fn)
	p.posted.Add(1)
}

// --- fake endpoint ---

type fakeCall struct {
	member string
	args   any
	reply  bus.ReplyFunc
}

type fakeEndpoint struct {
	name  string
	owner string

	mu      sync.Mutex
	calls   []fakeCall
	signals map[int]func(bus.Signal)
	next    int
	closed  bool
	done    chan struct{}

	// onCall runs for every call, with the member name, before it is
	// recorded.
	onCall func(member string)
}

func (e *fakeEndpoint) Name() string  { return e.name }
func (e *fakeEndpoint) Owner() string { return e.owner }

func (e *fakeEndpoint) Call(member string, args any, reply bus.ReplyFunc) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	onCall := e.onCall
	e.calls = append(e.calls, fakeCall{member: member, args: args, reply: reply})
	e.mu.Unlock()
	if onCall != nil {
		onCall(member)
	}
}

func (e *fakeEndpoint) OnSignal(fn func(bus.Signal)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signals == nil {
		e.signals = make(map[int]func(bus.Signal))
	}
	e.next++
	key := e.next
	e.signals[key] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.signals, key)
	}
}

func (e *fakeEndpoint) Done() <-chan struct{} { return e.done }

func (e *fakeEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.done)
	}
	return nil
}

func (e *fakeEndpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// members lists the members of every call so far.
func (e *fakeEndpoint) members() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	members := make([]string, len(e.calls))
	for i, call := range e.calls {
		members[i] = call.member
	}
	return members
}

func (e *fakeEndpoint) count(member string) int {
	n := 0
	for _, got := range e.members() {
		if got == member {
			n++
		}
	}
	return n
}

// lastCall returns the most recent call of member.
func (e *fakeEndpoint) lastCall(t *testing.T, member string) fakeCall {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.calls) - 1; i >= 0; i-- {
		if e.calls[i].member == member {
			return e.calls[i]
		}
	}
	t.Fatalf("no %s call recorded (calls: %v)", member, e.calls)
	return fakeCall{}
}

// reply answers the most recent call of member, the way a bus reader
// goroutine would.
func (e *fakeEndpoint) reply(t *testing.T, member string, result any, err error) {
	t.Helper()
	call := e.lastCall(t, member)
	var body codec.RawMessage
	if result != nil {
		data, marshalErr := codec.Marshal(result)
		if marshalErr != nil {
			t.Fatalf("encoding %s reply: %v", member, marshalErr)
		}
		body = data
	}
	call.reply(body, err)
}

// emit delivers a signal to every handler.
func (e *fakeEndpoint) emit(t *testing.T, member string, payload any) {
	t.Helper()
	var body codec.RawMessage
	if payload != nil {
		data, err := codec.Marshal(payload)
		if err != nil {
			t.Fatalf("encoding %s signal: %v", member, err)
		}
		body = data
	}
	e.mu.Lock()
	handlers := make([]func(bus.Signal), 0, len(e.signals))
	for _, fn := range e.signals {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(bus.Signal{Member: member, Body: body})
	}
}

// --- recording driver and listener ---

type recordingDriver struct {
	calls []string
}

func (d *recordingDriver) ShowBegin() { d.calls = append(d.calls, "show-begin") }
func (d *recordingDriver) Focus()     { d.calls = append(d.calls, "focus") }
func (d *recordingDriver) ShowEnd()   { d.calls = append(d.calls, "show-end") }
func (d *recordingDriver) HideBegin() { d.calls = append(d.calls, "hide-begin") }
func (d *recordingDriver) HideEnd()   { d.calls = append(d.calls, "hide-end") }

type recordingListener struct {
	events      []string
	reconnected []PanelInfo
	style       string
	tooltip     string
	width       int
	height      int
	x, y        int
}

func (l *recordingListener) RequestFocus() { l.events = append(l.events, "focus") }
func (l *recordingListener) RequestShow()  { l.events = append(l.events, "show") }
func (l *recordingListener) RequestHide()  { l.events = append(l.events, "hide") }
func (l *recordingListener) RequestButtonStyle(style string) {
	l.events = append(l.events, "style")
	l.style = style
}
func (l *recordingListener) RequestTooltip(text string) {
	l.events = append(l.events, "tooltip")
	l.tooltip = text
}
func (l *recordingListener) SetSize(width, height int) {
	l.events = append(l.events, "size")
	l.width, l.height = width, height
}
func (l *recordingListener) SetPosition(x, y int) {
	l.events = append(l.events, "position")
	l.x, l.y = x, y
}
func (l *recordingListener) RemoteDied() { l.events = append(l.events, "died") }
func (l *recordingListener) Reconnected(info PanelInfo) {
	l.events = append(l.events, "reconnected")
	l.reconnected = append(l.reconnected, info)
}

func (l *recordingListener) has(event string) bool {
	for _, got := range l.events {
		if got == event {
			return true
		}
	}
	return false
}
