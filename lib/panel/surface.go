// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package panel

import (
	"log/slog"

	"github.com/bureau-foundation/panelshell/lib/anim"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/loop"
)

// Embeddable is the capability of surfaces that host a foreign window.
type Embeddable interface {
	Embedding() *Embedding
}

// Sizeable is the capability of surfaces whose size can change after
// creation.
type Sizeable interface {
	Size() (width, height int)
	SetSize(width, height int)
}

// LocalSurfaceConfig configures a LocalSurface.
type LocalSurfaceConfig struct {
	Name      string
	Content   any
	Geometry  Rect
	Clock     clock.Clock
	Poster    loop.Poster
	Logger    *slog.Logger
	Container Container
	Animation anim.Options

	// OnFocus runs when the surface finishes showing.
	OnFocus func()
}

// LocalSurface is an in-process surface around passive content.
type LocalSurface struct {
	name    string
	content any
	reveal  *Reveal
	onFocus func()
}

// NewLocalSurface creates a hidden local surface.
func NewLocalSurface(config LocalSurfaceConfig) *LocalSurface {
	s := &LocalSurface{name: config.Name, content: config.Content, onFocus: config.OnFocus}
	s.reveal = NewReveal(RevealConfig{
		Name:      config.Name,
		Clock:     config.Clock,
		Poster:    config.Poster,
		Logger:    config.Logger,
		Container: config.Container,
		Driver:    localDriver{surface: s},
		Animation: config.Animation,
		Geometry:  config.Geometry,
	})
	return s
}

func (s *LocalSurface) Name() string    { return s.name }
func (s *LocalSurface) Reveal() *Reveal { return s.reveal }

// Content returns the value the surface displays.
func (s *LocalSurface) Content() any { return s.content }

func (s *LocalSurface) Size() (width, height int) {
	geometry := s.reveal.Geometry()
	return geometry.Width, geometry.Height
}

func (s *LocalSurface) SetSize(width, height int) {
	geometry := s.reveal.Geometry()
	geometry.Width, geometry.Height = width, height
	s.reveal.SetGeometry(geometry)
}

type localDriver struct {
	noopDriver
	surface *LocalSurface
}

func (d localDriver) Focus() {
	if d.surface.onFocus != nil {
		d.surface.onFocus()
	}
}
