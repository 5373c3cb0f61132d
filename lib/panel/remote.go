// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

// RemoteSurfaceConfig configures a RemoteSurface.
type RemoteSurfaceConfig struct {
	Descriptor Descriptor
	Bus        bus.Bus
	Windows    wm.System
	Clock      clock.Clock
	Poster     loop.Poster
	Logger     *slog.Logger
	Container  Container
	Animation  anim.Options

	// Registry receives the panel's button style and tooltip requests.
	// Optional.
	Registry *Registry
}

// RemoteSurface is a surface whose content lives in a panel process.
// A show connects and initialises the panel on demand, binds its
// window, and only then slides in. Losing the process, or its window,
// force-hides the surface.
type RemoteSurface struct {
	descriptor Descriptor
	windows    wm.System
	logger     *slog.Logger
	registry   *Registry

	connection *Connection
	reveal     *Reveal
	embedding  *Embedding
}

// NewRemoteSurface creates a hidden, disconnected remote surface.
func NewRemoteSurface(config RemoteSurfaceConfig) *RemoteSurface {
	logger := config.Logger.With("panel", config.Descriptor.ServiceName)
	s := &RemoteSurface{
		descriptor: config.Descriptor,
		windows:    config.Windows,
		logger:     logger,
		registry:   config.Registry,
	}
	s.connection = NewConnection(ConnectionConfig{
		Descriptor: config.Descriptor,
		Bus:        config.Bus,
		Windows:    config.Windows,
		Poster:     config.Poster,
		Logger:     config.Logger,
		Listener:   remoteListener{surface: s},
	})
	s.embedding = NewEmbedding(config.Windows, config.Poster, logger, s.windowDestroyed)
	s.reveal = NewReveal(RevealConfig{
		Name:      config.Descriptor.ServiceName,
		Clock:     config.Clock,
		Poster:    config.Poster,
		Logger:    config.Logger,
		Container: config.Container,
		Driver:    remoteDriver{surface: s},
		Preparer:  s.prepare,
		Animation: config.Animation,
		Geometry: Rect{
			X:      config.Descriptor.X,
			Y:      config.Descriptor.Y,
			Width:  config.Descriptor.Width,
			Height: config.Descriptor.Height,
		},
	})
	s.reveal.Subscribe(func(event Event) {
		if event.Kind == EventShowAborted && event.Err != nil {
			// A failed attempt leaves nothing behind; the next show
			// starts from a fresh connection.
			s.embedding.Clear()
			s.connection.Disconnect()
		}
	})
	return s
}

// Name is the panel's display name once known, else its service name.
func (s *RemoteSurface) Name() string {
	if info, ok := s.connection.Info(); ok && info.Name != "" {
		return info.Name
	}
	return s.descriptor.ServiceName
}

func (s *RemoteSurface) Reveal() *Reveal         { return s.reveal }
func (s *RemoteSurface) Embedding() *Embedding   { return s.embedding }
func (s *RemoteSurface) Connection() *Connection { return s.connection }
func (s *RemoteSurface) Descriptor() Descriptor  { return s.descriptor }

func (s *RemoteSurface) Size() (width, height int) {
	geometry := s.reveal.Geometry()
	return geometry.Width, geometry.Height
}

// SetSize resizes the surface and tells the panel.
func (s *RemoteSurface) SetSize(width, height int) {
	s.resize(width, height)
	s.connection.NotifySetSize(width, height)
}

func (s *RemoteSurface) resize(width, height int) {
	geometry := s.reveal.Geometry()
	geometry.Width, geometry.Height = width, height
	s.reveal.SetGeometry(geometry)
}

// WatchOwnerChanges arranges for the surface to reconnect when the
// panel process restarts.
func (s *RemoteSurface) WatchOwnerChanges() error {
	return s.connection.WatchOwnerChanges()
}

// Close hides the surface and drops its connection.
func (s *RemoteSurface) Close() {
	s.reveal.ForceHide()
	s.embedding.Clear()
	s.connection.Close()
}

// prepare connects and initialises the panel unless it is already
// Ready, then binds its window.
func (s *RemoteSurface) prepare(done func(error)) {
	if s.connection.State() == Ready {
		if _, bound := s.embedding.Window(); bound {
			done(nil)
			return
		}
	}

	s.connection.Connect(func(err error) {
		if err != nil {
			done(err)
			return
		}
		if s.reveal.State() != ShowRequested {
			// The show was cancelled while resolving.
			return
		}
		width, height := s.Size()
		s.connection.Initiate(width, height, func(info PanelInfo, err error) {
			if err != nil {
				done(err)
				return
			}
			s.adopt(info)
			done(nil)
		})
	})
}

// adopt binds a freshly initialised panel's window and applies its
// presentation.
func (s *RemoteSurface) adopt(info PanelInfo) {
	s.embedding.Bind(info.Window, info.ChildClass)
	if info.WindowWidth > 0 && info.WindowHeight > 0 {
		s.resize(info.WindowWidth, info.WindowHeight)
	}
	if s.registry != nil {
		if info.ButtonStyle != "" {
			s.registry.RequestButtonStyle(s, info.ButtonStyle)
		}
		if info.Tooltip != "" {
			s.registry.RequestTooltip(s, info.Tooltip)
		}
	}
}

func (s *RemoteSurface) windowDestroyed() {
	s.logger.Info("panel window went away, hiding")
	s.reveal.ForceHide()
}

func (s *RemoteSurface) focus() {
	window, ok := s.embedding.Window()
	if !ok {
		return
	}
	if err := s.windows.Focus(window); err != nil {
		s.logger.Debug("focusing panel window", "window", window.String(), "error", err)
	}
}

type remoteDriver struct {
	surface *RemoteSurface
}

func (d remoteDriver) ShowBegin() {
	d.surface.connection.Show()
	d.surface.connection.NotifyShowBegin()
}

func (d remoteDriver) Focus()     { d.surface.focus() }
func (d remoteDriver) ShowEnd()   { d.surface.connection.NotifyShowEnd() }
func (d remoteDriver) HideBegin() { d.surface.connection.NotifyHideBegin() }

func (d remoteDriver) HideEnd() {
	d.surface.connection.NotifyHideEnd()
	d.surface.connection.Hide()
}

type remoteListener struct {
	surface *RemoteSurface
}

func (l remoteListener) RequestFocus() {
	if l.surface.reveal.State() == Shown {
		l.surface.focus()
	}
}

func (l remoteListener) RequestShow() { l.surface.reveal.Show() }
func (l remoteListener) RequestHide() { l.surface.reveal.Hide() }

func (l remoteListener) RequestButtonStyle(style string) {
	if l.surface.registry != nil {
		l.surface.registry.RequestButtonStyle(l.surface, style)
	}
}

func (l remoteListener) RequestTooltip(text string) {
	if l.surface.registry != nil {
		l.surface.registry.RequestTooltip(l.surface, text)
	}
}

func (l remoteListener) SetSize(width, height int) { l.surface.resize(width, height) }

func (l remoteListener) SetPosition(x, y int) {
	geometry := l.surface.reveal.Geometry()
	geometry.X, geometry.Y = x, y
	l.surface.reveal.SetGeometry(geometry)
}

func (l remoteListener) RemoteDied() {
	l.surface.embedding.Clear()
	l.surface.reveal.ForceHide()
}

func (l remoteListener) Reconnected(info PanelInfo) {
	l.surface.adopt(info)
}
