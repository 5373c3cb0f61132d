// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panelservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/codec"
	"github.com/bureau-foundation/panelshell/lib/panel"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

// EventKind identifies a notification received from the shell.
type EventKind int

const (
	EventInit EventKind = iota
	EventShow
	EventHide
	EventShowBegin
	EventShowEnd
	EventHideBegin
	EventHideEnd
	EventSetSize
	EventSetPosition
)

var eventNames = [...]string{
	EventInit:        "init",
	EventShow:        "show",
	EventHide:        "hide",
	EventShowBegin:   "show-begin",
	EventShowEnd:     "show-end",
	EventHideBegin:   "hide-begin",
	EventHideEnd:     "hide-end",
	EventSetSize:     "set-size",
	EventSetPosition: "set-position",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification from the shell. Width and Height are set
// for EventInit and EventSetSize; X and Y for EventSetPosition and for
// EventInit when the shell sent a position.
type Event struct {
	Kind   EventKind
	Width  int
	Height int
	X      int
	Y      int
}

// Config configures a Panel.
type Config struct {
	// ServiceName is the bus name the panel is exported under.
	ServiceName string

	// Name, Tooltip, Stylesheet and ButtonStyle are returned from
	// InitPanel.
	Name        string
	Tooltip     string
	Stylesheet  string
	ButtonStyle string

	// Instance and Class form the WM_CLASS of the panel window.
	// Class defaults to "panelshell-panel" and Instance to Name.
	Instance string
	Class    string

	// Title is the panel window's title.
	Title string

	Logger *slog.Logger

	// OnEvent observes shell notifications. Optional. Runs on a bus
	// goroutine and must not block.
	OnEvent func(Event)
}

// DefaultClass is the WM_CLASS class of panel windows when Config
// leaves it empty.
const DefaultClass = "panelshell-panel"

// ErrNotInitialised is returned by operations that need the panel
// window before InitPanel has created it.
var ErrNotInitialised = errors.New("panel not initialised")

// Panel is an exported panel service.
type Panel struct {
	config  Config
	logger  *slog.Logger
	windows *wm.Client
	service *bus.Service

	mu      sync.Mutex
	window  wm.WindowID
	width   int
	height  int
	x, y    int
	visible bool
	shown   bool
	dialogs []wm.WindowID
}

// New creates a panel whose windows are created through windows. The
// returned panel's Service must be exported on a bus before the shell
// can reach it.
func New(config Config, windows *wm.Client) *Panel {
	if config.Class == "" {
		config.Class = DefaultClass
	}
	if config.Instance == "" {
		config.Instance = config.Name
	}
	if config.Title == "" {
		config.Title = config.Name
	}

	p := &Panel{
		config:  config,
		logger:  config.Logger.With("panel", config.ServiceName),
		windows: windows,
		service: bus.NewService(config.ServiceName, config.Logger),
	}

	p.service.Handle(panel.MemberInitPanel, p.handleInit)
	p.service.Handle(panel.MemberShow, p.handleVisibility(EventShow, true))
	p.service.Handle(panel.MemberHide, p.handleVisibility(EventHide, false))
	p.service.Handle(panel.MemberShowBegin, p.handleLifecycle(EventShowBegin))
	p.service.Handle(panel.MemberShowEnd, p.handleLifecycle(EventShowEnd))
	p.service.Handle(panel.MemberHideBegin, p.handleLifecycle(EventHideBegin))
	p.service.Handle(panel.MemberHideEnd, p.handleLifecycle(EventHideEnd))
	p.service.Handle(panel.MemberSetSize, p.handleSetSize)
	p.service.Handle(panel.MemberSetPosition, p.handleSetPosition)
	p.service.Handle(panel.MemberPing, func(context.Context, *bus.Peer, codec.RawMessage) (any, error) {
		return nil, nil
	})
	return p
}

// Service is the bus service to export.
func (p *Panel) Service() *bus.Service { return p.service }

// Window returns the panel window, or wm.NoWindow before InitPanel.
func (p *Panel) Window() wm.WindowID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window
}

// Size returns the size last allotted by the shell.
func (p *Panel) Size() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Position returns the position last sent by the shell.
func (p *Panel) Position() (x, y int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y
}

// Visible reports whether the shell last asked the content to show.
func (p *Panel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Shown reports whether the panel is between ShowEnd and HideBegin.
func (p *Panel) Shown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

func (p *Panel) handleInit(ctx context.Context, _ *bus.Peer, body codec.RawMessage) (any, error) {
	var args panel.InitArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding InitPanel: %w", err)
	}
	if args.Width <= 0 || args.Height <= 0 {
		return nil, fmt.Errorf("invalid panel size %dx%d", args.Width, args.Height)
	}

	p.mu.Lock()
	window := p.window
	p.width, p.height = args.Width, args.Height
	if args.X != nil && args.Y != nil {
		p.x, p.y = *args.X, *args.Y
	}
	p.mu.Unlock()

	// A re-initialisation from a reconnecting shell keeps the window
	// while it still exists.
	if window != wm.NoWindow && !p.windowExists(ctx, window) {
		window = wm.NoWindow
	}
	if window == wm.NoWindow {
		created, err := p.windows.Create(ctx, wm.CreateWindowArgs{
			Class:  wm.FormatClass(p.config.Instance, p.config.Class),
			Title:  p.config.Title,
			Width:  args.Width,
			Height: args.Height,
		})
		if err != nil {
			return nil, fmt.Errorf("creating panel window: %w", err)
		}
		if err := p.windows.Map(ctx, created); err != nil {
			return nil, fmt.Errorf("mapping panel window: %w", err)
		}
		window = created
	}

	p.mu.Lock()
	p.window = window
	p.mu.Unlock()

	p.logger.Info("panel initialised", "window", window.String(), "width", args.Width, "height", args.Height)
	event := Event{Kind: EventInit, Width: args.Width, Height: args.Height}
	if args.X != nil && args.Y != nil {
		event.X, event.Y = *args.X, *args.Y
	}
	p.observe(event)

	return panel.InitReply{
		Name:         p.config.Name,
		Window:       window,
		Tooltip:      p.config.Tooltip,
		Stylesheet:   p.config.Stylesheet,
		ButtonStyle:  p.config.ButtonStyle,
		WindowWidth:  args.Width,
		WindowHeight: args.Height,
	}, nil
}

func (p *Panel) windowExists(ctx context.Context, window wm.WindowID) bool {
	records, err := p.windows.List(ctx)
	if err != nil {
		return false
	}
	for _, record := range records {
		if record.Window == window {
			return true
		}
	}
	return false
}

func (p *Panel) handleVisibility(kind EventKind, visible bool) bus.HandlerFunc {
	return func(context.Context, *bus.Peer, codec.RawMessage) (any, error) {
		p.mu.Lock()
		p.visible = visible
		p.mu.Unlock()
		p.observe(Event{Kind: kind})
		return nil, nil
	}
}

func (p *Panel) handleLifecycle(kind EventKind) bus.HandlerFunc {
	return func(context.Context, *bus.Peer, codec.RawMessage) (any, error) {
		p.mu.Lock()
		switch kind {
		case EventShowEnd:
			p.shown = true
		case EventHideBegin, EventHideEnd:
			p.shown = false
		}
		p.mu.Unlock()
		p.logger.Debug("panel lifecycle", "event", kind.String())
		p.observe(Event{Kind: kind})
		return nil, nil
	}
}

func (p *Panel) handleSetSize(_ context.Context, _ *bus.Peer, body codec.RawMessage) (any, error) {
	var args panel.SizeArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding SetSize: %w", err)
	}
	p.mu.Lock()
	p.width, p.height = args.Width, args.Height
	p.mu.Unlock()
	p.observe(Event{Kind: EventSetSize, Width: args.Width, Height: args.Height})
	return nil, nil
}

func (p *Panel) handleSetPosition(_ context.Context, _ *bus.Peer, body codec.RawMessage) (any, error) {
	var args panel.PositionArgs
	if err := bus.Decode(body, &args); err != nil {
		return nil, fmt.Errorf("decoding SetPosition: %w", err)
	}
	p.mu.Lock()
	p.x, p.y = args.X, args.Y
	p.mu.Unlock()
	p.observe(Event{Kind: EventSetPosition, X: args.X, Y: args.Y})
	return nil, nil
}

func (p *Panel) observe(event Event) {
	if p.config.OnEvent != nil {
		p.config.OnEvent(event)
	}
}

// RequestFocus asks the shell to focus the panel window.
func (p *Panel) RequestFocus() error {
	return p.service.Emit(panel.SignalRequestFocus, nil)
}

// RequestShow asks the shell to reveal the panel.
func (p *Panel) RequestShow() error {
	return p.service.Emit(panel.SignalRequestShow, nil)
}

// RequestHide asks the shell to hide the panel.
func (p *Panel) RequestHide() error {
	return p.service.Emit(panel.SignalRequestHide, nil)
}

// RequestButtonStyle asks the shell to restyle the panel's button.
func (p *Panel) RequestButtonStyle(style string) error {
	return p.service.Emit(panel.SignalRequestButtonStyle, panel.ButtonStyleArgs{Style: style})
}

// RequestTooltip asks the shell to change the button tooltip.
func (p *Panel) RequestTooltip(text string) error {
	return p.service.Emit(panel.SignalRequestTooltip, panel.TooltipArgs{Text: text})
}

// AnnounceSize tells the shell the panel wants a new size.
func (p *Panel) AnnounceSize(width, height int) error {
	return p.service.Emit(panel.SignalSetSize, panel.SizeArgs{Width: width, Height: height})
}

// AnnouncePosition tells the shell the panel wants a new position.
func (p *Panel) AnnouncePosition(x, y int) error {
	return p.service.Emit(panel.SignalSetPosition, panel.PositionArgs{X: x, Y: y})
}

// OpenDialog creates and maps a window transient for the panel
// window. The shell places it with the panel rather than as an
// independent window.
func (p *Panel) OpenDialog(ctx context.Context, title string, width, height int) (wm.WindowID, error) {
	parent := p.Window()
	if parent == wm.NoWindow {
		return wm.NoWindow, ErrNotInitialised
	}
	dialog, err := p.windows.Create(ctx, wm.CreateWindowArgs{
		Class:        wm.FormatClass(p.config.Instance, p.config.Class+"-dialog"),
		TransientFor: parent,
		Title:        title,
		Width:        width,
		Height:       height,
	})
	if err != nil {
		return wm.NoWindow, fmt.Errorf("creating dialog: %w", err)
	}
	if err := p.windows.Map(ctx, dialog); err != nil {
		return wm.NoWindow, fmt.Errorf("mapping dialog: %w", err)
	}

	p.mu.Lock()
	p.dialogs = append(p.dialogs, dialog)
	p.mu.Unlock()
	return dialog, nil
}

// CloseDialogs destroys every dialog opened by OpenDialog.
func (p *Panel) CloseDialogs(ctx context.Context) error {
	p.mu.Lock()
	dialogs := p.dialogs
	p.dialogs = nil
	p.mu.Unlock()

	var errs []error
	for _, dialog := range dialogs {
		if err := p.windows.Destroy(ctx, dialog); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DestroyWindow destroys the panel window. The shell observes the
// destruction and force-hides the panel. The next InitPanel creates a
// fresh window.
func (p *Panel) DestroyWindow(ctx context.Context) error {
	p.mu.Lock()
	window := p.window
	p.window = wm.NoWindow
	p.mu.Unlock()
	if window == wm.NoWindow {
		return ErrNotInitialised
	}
	return p.windows.Destroy(ctx, window)
}

// Close stops serving and disconnects every shell.
func (p *Panel) Close() {
	p.service.Close()
}
