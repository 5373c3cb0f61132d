// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/codec"
	"github.com/bureau-foundation/panelshell/lib/handle"
	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

// resolveTimeout bounds a Resolve: dialing the service and waiting for
// its hello frame.
const resolveTimeout = 5 * time.Second

// ConnectionListener receives a connection's inbound signals and
// lifecycle reports, always on the loop.
type ConnectionListener interface {
	RequestFocus()
	RequestShow()
	RequestHide()
	RequestButtonStyle(style string)
	RequestTooltip(text string)
	SetSize(width, height int)
	SetPosition(x, y int)

	// RemoteDied reports that the endpoint was lost. The connection is
	// Dead and its info cleared by the time this runs.
	RemoteDied()

	// Reconnected reports a completed re-initialisation after the
	// service gained a new owner.
	Reconnected(info PanelInfo)
}

// ConnectionConfig holds a Connection's collaborators.
type ConnectionConfig struct {
	Descriptor Descriptor
	Bus        bus.Bus
	Windows    wm.System
	Poster     loop.Poster
	Logger     *slog.Logger
	Listener   ConnectionListener
}

// Connection is the shell's side of one remote panel service.
type Connection struct {
	descriptor Descriptor
	bus        bus.Bus
	windows    wm.System
	poster     loop.Poster
	logger     *slog.Logger
	listener   ConnectionListener

	state ConnectionState
	info  PanelInfo

	// endpoints holds at most one live endpoint. The handle is the
	// only reference the rest of the connection keeps: a lookup miss
	// means the endpoint is gone, whatever its goroutines still do.
	endpoints     handle.Registry[bus.Endpoint]
	current       handle.Handle
	cancelSignals func()

	cancelWatch func()

	// initiated is set once an InitPanel succeeded; only then does a
	// new service owner trigger a reconnect.
	initiated  bool
	lastWidth  int
	lastHeight int

	// initSerial discards InitPanel replies overtaken by a newer
	// Initiate or by the loss of the endpoint they were sent on.
	initSerial uint64

	// resolveSerial discards Resolve results overtaken by a newer
	// Connect or by a Disconnect.
	resolveSerial uint64
	cancelResolve context.CancelFunc
}

// NewConnection creates a Disconnected connection.
func NewConnection(config ConnectionConfig) *Connection {
	return &Connection{
		descriptor: config.Descriptor,
		bus:        config.Bus,
		windows:    config.Windows,
		poster:     config.Poster,
		logger:     config.Logger.With("panel", config.Descriptor.ServiceName),
		listener:   config.Listener,
		lastWidth:  config.Descriptor.Width,
		lastHeight: config.Descriptor.Height,
	}
}

// Descriptor returns the descriptor the connection was created with.
func (c *Connection) Descriptor() Descriptor { return c.descriptor }

// State returns the current lifecycle state.
func (c *Connection) State() ConnectionState { return c.state }

// Info returns the panel info. Valid only when State is Ready.
func (c *Connection) Info() (PanelInfo, bool) {
	return c.info, c.state == Ready
}

// Owner returns the owner id of the live endpoint, or "".
func (c *Connection) Owner() string {
	if endpoint, ok := c.endpoints.Lookup(c.current); ok {
		return endpoint.Owner()
	}
	return ""
}

// Connect resolves the service to a live endpoint. The resolve runs
// off the loop, bounded by resolveTimeout; done runs on the loop with
// nil once the endpoint is attached, or with a *ConnectError, leaving
// the connection Disconnected. A connection that already has a live
// endpoint calls done(nil) before Connect returns. A newer Connect, a
// Disconnect or a Close supersedes a pending one: its done never runs
// and the endpoint it resolved is closed.
func (c *Connection) Connect(done func(error)) {
	if _, ok := c.endpoints.Lookup(c.current); ok {
		done(nil)
		return
	}
	c.cancelPendingResolve()
	c.state = Connecting
	c.info = PanelInfo{}

	c.resolveSerial++
	serial := c.resolveSerial
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	c.cancelResolve = cancel
	go func() {
		endpoint, err := c.bus.Resolve(ctx, c.descriptor.ServiceName)
		c.poster.Post(func() {
			cancel()
			c.resolved(serial, endpoint, err, done)
		})
	}()
}

func (c *Connection) resolved(serial uint64, endpoint bus.Endpoint, err error, done func(error)) {
	if serial != c.resolveSerial {
		if endpoint != nil {
			endpoint.Close()
		}
		return
	}
	c.cancelResolve = nil
	if _, ok := c.endpoints.Lookup(c.current); ok {
		// A new owner was adopted while this resolve was in flight.
		if endpoint != nil {
			endpoint.Close()
		}
		done(nil)
		return
	}
	if err != nil {
		c.state = Disconnected
		done(&ConnectError{Service: c.descriptor.ServiceName, Err: err})
		return
	}
	c.attach(endpoint)
	c.logger.Debug("panel endpoint resolved", "owner", endpoint.Owner())
	done(nil)
}

// cancelPendingResolve abandons an in-flight Connect.
func (c *Connection) cancelPendingResolve() {
	c.resolveSerial++
	if c.cancelResolve != nil {
		c.cancelResolve()
		c.cancelResolve = nil
	}
}

func (c *Connection) attach(endpoint bus.Endpoint) {
	h := c.endpoints.Insert(endpoint)
	c.current = h

	c.cancelSignals = endpoint.OnSignal(func(signal bus.Signal) {
		c.poster.Post(func() { c.dispatchSignal(h, signal) })
	})
	go func() {
		<-endpoint.Done()
		c.poster.Post(func() { c.endpointLost(h) })
	}()
}

// Initiate sends InitPanel with the requested size (plus position for
// position-aware descriptors). done runs on the loop with the panel
// info once the reply arrives and the window's class has been read, or
// with a *RemoteError; a failed InitPanel also drops the endpoint,
// leaving the connection Disconnected for a fresh attempt. Without a
// live endpoint done runs before Initiate returns, with
// ErrNotConnected. If the endpoint dies first, done never runs: the
// death is reported through the listener instead.
func (c *Connection) Initiate(width, height int, done func(PanelInfo, error)) {
	endpoint, ok := c.endpoints.Lookup(c.current)
	if !ok {
		done(PanelInfo{}, &ConnectError{Service: c.descriptor.ServiceName, Err: ErrNotConnected})
		return
	}

	c.lastWidth, c.lastHeight = width, height
	c.state = Connecting
	c.info = PanelInfo{}
	c.initSerial++
	serial := c.initSerial
	h := c.current

	args := InitArgs{Width: width, Height: height}
	if c.descriptor.PositionAware {
		x, y := c.descriptor.X, c.descriptor.Y
		args.X, args.Y = &x, &y
	}
	endpoint.Call(MemberInitPanel, args, func(body codec.RawMessage, err error) {
		c.poster.Post(func() { c.initReplied(h, serial, body, err, done) })
	})
}

func (c *Connection) initReplied(h handle.Handle, serial uint64, body codec.RawMessage, callErr error, done func(PanelInfo, error)) {
	if serial != c.initSerial {
		c.logger.Debug("discarding superseded InitPanel reply")
		return
	}
	if _, ok := c.endpoints.Lookup(h); !ok || h != c.current {
		return
	}

	fail := func(err error) {
		c.logger.Warn("panel initialisation failed", "error", err)
		c.drop()
		c.state = Disconnected
		done(PanelInfo{}, err)
	}

	if callErr != nil {
		fail(&RemoteError{Service: c.descriptor.ServiceName, Member: MemberInitPanel, Err: callErr})
		return
	}
	var reply InitReply
	if err := bus.Decode(body, &reply); err != nil {
		fail(&RemoteError{Service: c.descriptor.ServiceName, Member: MemberInitPanel, Err: fmt.Errorf("decoding reply: %w", err)})
		return
	}
	if reply.Window == wm.NoWindow {
		fail(&RemoteError{Service: c.descriptor.ServiceName, Member: MemberInitPanel, Err: errors.New("reply carries no window")})
		return
	}

	info := PanelInfo{
		Name:         reply.Name,
		Tooltip:      reply.Tooltip,
		Stylesheet:   reply.Stylesheet,
		ButtonStyle:  reply.ButtonStyle,
		Window:       reply.Window,
		ChildClass:   c.childClass(reply.Window),
		WindowWidth:  reply.WindowWidth,
		WindowHeight: reply.WindowHeight,
	}
	c.info = info
	c.state = Ready
	c.initiated = true
	c.logger.Info("panel ready",
		"name", info.Name,
		"window", info.Window.String(),
		"child_class", info.ChildClass,
	)
	done(info, nil)
}

// childClass reads WM_CLASS from the window system and returns its
// class token, or "" when the property is missing or malformed.
func (c *Connection) childClass(window wm.WindowID) string {
	raw, err := c.windows.ClassProperty(window)
	if err != nil {
		c.logger.Warn("reading panel window class", "window", window.String(), "error", err)
		return ""
	}
	_, class, ok := wm.ParseClass(raw)
	if !ok {
		c.logger.Warn("malformed WM_CLASS on panel window, sub-windows will not be adopted",
			"window", window.String(), "raw", fmt.Sprintf("%q", raw))
		return ""
	}
	return class
}

// WatchOwnerChanges subscribes to presence changes of the service.
// When a new owner appears after a successful initialisation, the
// connection drops any endpoint to the previous owner (reporting
// RemoteDied), reconnects, re-initiates with the last requested size
// and reports Reconnected. Calling it again is a no-op.
func (c *Connection) WatchOwnerChanges() error {
	if c.cancelWatch != nil {
		return nil
	}
	cancel, err := c.bus.WatchOwner(c.descriptor.ServiceName, func(change bus.OwnerChange) {
		if !change.Appeared {
			// Loss is observed through the endpoint itself.
			return
		}
		c.poster.Post(c.ownerAppeared)
	})
	if err != nil {
		return &ConnectError{Service: c.descriptor.ServiceName, Err: err}
	}
	c.cancelWatch = cancel
	return nil
}

func (c *Connection) ownerAppeared() {
	if c.cancelWatch == nil || !c.initiated {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()
		endpoint, err := c.bus.Resolve(ctx, c.descriptor.ServiceName)
		c.poster.Post(func() { c.ownerResolved(endpoint, err) })
	}()
}

func (c *Connection) ownerResolved(endpoint bus.Endpoint, err error) {
	if err != nil {
		c.logger.Warn("panel owner appeared but could not be reached", "error", err)
		return
	}
	if c.cancelWatch == nil || !c.initiated {
		// Disconnected or closed while resolving.
		endpoint.Close()
		return
	}

	if old, ok := c.endpoints.Lookup(c.current); ok {
		if old.Owner() == endpoint.Owner() {
			// Presence event for the owner we already talk to.
			endpoint.Close()
			return
		}
		c.endpointLost(c.current)
	}

	c.logger.Info("panel service has a new owner, reconnecting", "owner", endpoint.Owner())
	c.attach(endpoint)
	c.state = Connecting
	c.Initiate(c.lastWidth, c.lastHeight, func(info PanelInfo, err error) {
		if err != nil {
			return
		}
		if c.listener != nil {
			c.listener.Reconnected(info)
		}
	})
}

// endpointLost handles the end of the endpoint named by h: the
// connection becomes Dead, its info is cleared, and the listener is
// told. A stale h (an endpoint the connection already dropped) is
// ignored.
func (c *Connection) endpointLost(h handle.Handle) {
	if _, ok := c.endpoints.Remove(h); !ok {
		return
	}
	if h != c.current {
		return
	}
	c.current = handle.Handle{}
	if c.cancelSignals != nil {
		c.cancelSignals()
		c.cancelSignals = nil
	}
	c.state = Dead
	c.info = PanelInfo{}
	c.logger.Warn("panel process died")
	if c.listener != nil {
		c.listener.RemoteDied()
	}
}

// drop forgets the live endpoint without reporting death.
func (c *Connection) drop() {
	endpoint, ok := c.endpoints.Remove(c.current)
	c.current = handle.Handle{}
	if c.cancelSignals != nil {
		c.cancelSignals()
		c.cancelSignals = nil
	}
	if ok {
		endpoint.Close()
	}
}

// Disconnect drops the endpoint without reporting death. The
// connection returns to Disconnected and may be connected again; an
// owner watch stays in place but only acts after the next successful
// initialisation.
func (c *Connection) Disconnect() {
	c.cancelPendingResolve()
	c.drop()
	c.state = Disconnected
	c.info = PanelInfo{}
	c.initiated = false
}

// Close disconnects and stops watching for owners.
func (c *Connection) Close() {
	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}
	c.Disconnect()
}

func (c *Connection) dispatchSignal(h handle.Handle, signal bus.Signal) {
	if h != c.current || c.listener == nil {
		return
	}
	if _, ok := c.endpoints.Lookup(h); !ok {
		return
	}

	switch signal.Member {
	case SignalRequestFocus:
		c.listener.RequestFocus()
	case SignalRequestShow:
		c.listener.RequestShow()
	case SignalRequestHide:
		c.listener.RequestHide()
	case SignalRequestButtonStyle:
		var args ButtonStyleArgs
		if c.decodeSignal(signal, &args) {
			c.listener.RequestButtonStyle(args.Style)
		}
	case SignalRequestTooltip:
		var args TooltipArgs
		if c.decodeSignal(signal, &args) {
			c.listener.RequestTooltip(args.Text)
		}
	case SignalSetSize:
		var args SizeArgs
		if c.decodeSignal(signal, &args) {
			c.listener.SetSize(args.Width, args.Height)
		}
	case SignalSetPosition:
		var args PositionArgs
		if c.decodeSignal(signal, &args) {
			c.listener.SetPosition(args.X, args.Y)
		}
	default:
		c.logger.Debug("ignoring unknown panel signal", "member", signal.Member)
	}
}

func (c *Connection) decodeSignal(signal bus.Signal, v any) bool {
	if err := signal.Decode(v); err != nil {
		c.logger.Warn("malformed panel signal", "member", signal.Member, "error", err)
		return false
	}
	return true
}

// notify sends a fire-and-forget call. Without a live endpoint the
// notification is dropped: nobody is listening.
func (c *Connection) notify(member string, args any) {
	endpoint, ok := c.endpoints.Lookup(c.current)
	if !ok {
		return
	}
	endpoint.Call(member, args, bus.Discard)
}

// Show asks the panel process to show its content.
func (c *Connection) Show() { c.notify(MemberShow, nil) }

// Hide asks the panel process to hide its content.
func (c *Connection) Hide() { c.notify(MemberHide, nil) }

// NotifyShowBegin tells the panel its reveal animation is starting.
func (c *Connection) NotifyShowBegin() { c.notify(MemberShowBegin, nil) }

// NotifyShowEnd tells the panel it is fully revealed and focused.
func (c *Connection) NotifyShowEnd() { c.notify(MemberShowEnd, nil) }

// NotifyHideBegin tells the panel its hide animation is starting.
func (c *Connection) NotifyHideBegin() { c.notify(MemberHideBegin, nil) }

// NotifyHideEnd tells the panel it is fully hidden.
func (c *Connection) NotifyHideEnd() { c.notify(MemberHideEnd, nil) }

// NotifySetSize tells the panel its allotted size changed.
func (c *Connection) NotifySetSize(width, height int) {
	c.lastWidth, c.lastHeight = width, height
	c.notify(MemberSetSize, SizeArgs{Width: width, Height: height})
}

// NotifySetPosition tells the panel its position changed.
func (c *Connection) NotifySetPosition(x, y int) {
	c.notify(MemberSetPosition, PositionArgs{X: x, Y: y})
}

// Ping checks that the panel process answers. done runs on the loop
// with the outcome; it never runs if the endpoint dies first.
func (c *Connection) Ping(done func(error)) {
	endpoint, ok := c.endpoints.Lookup(c.current)
	if !ok {
		done(&ConnectError{Service: c.descriptor.ServiceName, Err: ErrNotConnected})
		return
	}
	endpoint.Call(MemberPing, nil, func(_ codec.RawMessage, err error) {
		c.poster.Post(func() {
			if err != nil {
				done(&RemoteError{Service: c.descriptor.ServiceName, Member: MemberPing, Err: err})
				return
			}
			done(nil)
		})
	})
}
