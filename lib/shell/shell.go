// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/config"
	"github.com/bureau-foundation/panelshell/lib/handle"
	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/panel"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

// Options configures a Shell.
type Options struct {
	Config  *config.Config
	Bus     bus.Bus
	Windows *wm.Table
	Clock   clock.Clock
	Poster  loop.Poster
	Logger  *slog.Logger
}

// Entry is one toolbar button and the surface behind it.
type Entry struct {
	Label   string
	Kind    config.PanelKind
	Surface panel.Revealer
	Button  handle.Handle
}

// Placed records where the shell put a window that belongs to a panel.
type Placed struct {
	Panel     string
	Placement panel.Placement
}

// Shell is the host: toolbar, registry, surfaces and window placement.
type Shell struct {
	logger  *slog.Logger
	windows *wm.Table
	poster  loop.Poster

	toolbar  *panel.Toolbar
	toggles  *panel.Toggles
	registry *panel.Registry
	entries  []Entry

	placed       map[wm.WindowID]Placed
	cancelPlaced map[wm.WindowID]func()
	cancelMap    func()
	remotes      []*panel.RemoteSurface
}

// New builds a shell from options.Config. Remote panels are not
// contacted until first shown; their presence is watched from the
// start so a restarting panel process is picked up again.
func New(options Options) (*Shell, error) {
	cfg := options.Config
	animation, err := cfg.AnimationOptions()
	if err != nil {
		return nil, err
	}
	toolbarDuration, err := cfg.ToolbarSlideDuration()
	if err != nil {
		return nil, err
	}

	s := &Shell{
		logger:       options.Logger,
		windows:      options.Windows,
		poster:       options.Poster,
		toggles:      panel.NewToggles(),
		placed:       make(map[wm.WindowID]Placed),
		cancelPlaced: make(map[wm.WindowID]func()),
	}
	s.registry = panel.NewRegistry(s.toggles, options.Logger)
	s.toolbar = panel.NewToolbar(panel.ToolbarConfig{
		Clock:     options.Clock,
		Poster:    options.Poster,
		Logger:    options.Logger,
		Animation: anim.Options{Duration: toolbarDuration, Easing: animation.Easing},
		Exclusive: cfg.ExclusiveToolbar(),
	})

	for _, panelConfig := range cfg.Panels {
		var surface panel.Revealer
		switch panelConfig.Kind {
		case config.LocalKind:
			surface = panel.NewLocalSurface(panel.LocalSurfaceConfig{
				Name:    panelConfig.Name,
				Content: panelConfig.Text,
				Geometry: panel.Rect{
					X:      panelConfig.X,
					Y:      panelConfig.Y,
					Width:  panelConfig.Width,
					Height: panelConfig.Height,
				},
				Clock:     options.Clock,
				Poster:    options.Poster,
				Logger:    options.Logger,
				Container: s.toolbar,
				Animation: animation,
			})
		case config.RemoteKind:
			descriptor := panel.Descriptor{
				ServiceName:   panelConfig.Service,
				Width:         panelConfig.Width,
				Height:        panelConfig.Height,
				X:             panelConfig.X,
				Y:             panelConfig.Y,
				PositionAware: panelConfig.PositionAware,
			}
			if err := descriptor.Validate(); err != nil {
				s.Close()
				return nil, fmt.Errorf("panel %q: %w", panelConfig.Name, err)
			}
			remote := panel.NewRemoteSurface(panel.RemoteSurfaceConfig{
				Descriptor: descriptor,
				Bus:        options.Bus,
				Windows:    options.Windows,
				Clock:      options.Clock,
				Poster:     options.Poster,
				Logger:     options.Logger,
				Container:  s.toolbar,
				Animation:  animation,
				Registry:   s.registry,
			})
			if err := remote.WatchOwnerChanges(); err != nil {
				// Without presence the panel still works; it just will
				// not come back on its own after a restart.
				options.Logger.Warn("watching panel presence", "panel", panelConfig.Name, "error", err)
			}
			s.remotes = append(s.remotes, remote)
			surface = remote
		default:
			s.Close()
			return nil, fmt.Errorf("panel %q: unknown kind %q", panelConfig.Name, panelConfig.Kind)
		}

		s.toolbar.Add(surface.Reveal())
		button := s.toggles.Create(panelConfig.Name)
		s.registry.SetButton(surface, button)
		s.entries = append(s.entries, Entry{
			Label:   panelConfig.Name,
			Kind:    panelConfig.Kind,
			Surface: surface,
			Button:  button,
		})
	}

	s.cancelMap = options.Windows.WatchMap(func(window wm.WindowID) {
		s.poster.Post(func() { s.windowMapped(window) })
	})

	options.Logger.Info("shell ready", "panels", len(s.entries))
	return s, nil
}

func (s *Shell) Toolbar() *panel.Toolbar   { return s.toolbar }
func (s *Shell) Registry() *panel.Registry { return s.registry }
func (s *Shell) Toggles() *panel.Toggles   { return s.toggles }

// Entries returns the toolbar buttons in configuration order.
func (s *Shell) Entries() []Entry { return s.entries }

// Entry returns the entry labelled label.
func (s *Shell) Entry(label string) (Entry, bool) {
	for _, entry := range s.entries {
		if entry.Label == label {
			return entry, true
		}
	}
	return Entry{}, false
}

// Button returns the toggle of entry, or nil once it is destroyed.
func (s *Shell) Button(entry Entry) *panel.Toggle {
	toggle, ok := s.toggles.Get(entry.Button)
	if !ok {
		return nil
	}
	return toggle
}

// Press acts as a user click on the button labelled label.
func (s *Shell) Press(label string) error {
	entry, ok := s.Entry(label)
	if !ok {
		return fmt.Errorf("no panel named %q", label)
	}
	toggle := s.Button(entry)
	if toggle == nil {
		return fmt.Errorf("panel %q has no button", label)
	}
	toggle.Press()
	return nil
}

// PressIndex presses the button at position index.
func (s *Shell) PressIndex(index int) error {
	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("no panel at position %d", index)
	}
	return s.Press(s.entries[index].Label)
}

// HideAll hides every surface, then the toolbar.
func (s *Shell) HideAll() {
	s.toolbar.Hide()
}

// Placement reports where window was placed. Windows that belong to
// no panel report ("", panel.PlacementIndependent).
func (s *Shell) Placement(window wm.WindowID) Placed {
	if placed, ok := s.placed[window]; ok {
		return placed
	}
	return Placed{Placement: panel.PlacementIndependent}
}

func (s *Shell) windowMapped(window wm.WindowID) {
	for _, entry := range s.entries {
		embeddable, ok := entry.Surface.(panel.Embeddable)
		if !ok {
			continue
		}
		embedding := embeddable.Embedding()
		if embedding.WindowMapped(window) {
			s.logger.Debug("panel window mapped", "panel", entry.Label, "window", window.String())
			return
		}
		placement := embedding.Classify(window)
		if placement == panel.PlacementIndependent {
			continue
		}
		s.placed[window] = Placed{Panel: entry.Label, Placement: placement}
		s.cancelPlaced[window] = s.windows.WatchDestroy(window, func() {
			s.poster.Post(func() { s.unplace(window) })
		})
		s.logger.Info("window placed with panel",
			"panel", entry.Label,
			"window", window.String(),
			"placement", placement.String(),
		)
		return
	}
	s.logger.Debug("independent window mapped", "window", window.String())
}

func (s *Shell) unplace(window wm.WindowID) {
	if cancel, ok := s.cancelPlaced[window]; ok {
		cancel()
		delete(s.cancelPlaced, window)
	}
	delete(s.placed, window)
}

// Close hides everything, drops every panel connection and destroys
// the buttons.
func (s *Shell) Close() {
	if s.cancelMap != nil {
		s.cancelMap()
		s.cancelMap = nil
	}
	for window := range s.cancelPlaced {
		s.unplace(window)
	}
	for _, remote := range s.remotes {
		remote.Close()
	}
	for _, entry := range s.entries {
		entry.Surface.Reveal().ForceHide()
		s.registry.Unbind(entry.Surface)
		s.toggles.Destroy(entry.Button)
	}
	s.remotes = nil
}
