// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Memory is an in-process bus. Exported services are reached through
// net.Pipe connections running the same frame protocol as the socket
// bus, so in-process panels and tests exercise the real codec paths.
type Memory struct {
	logger *slog.Logger

	mu       sync.Mutex
	services map[string]*memoryExport
	watchers map[string]map[uint64]func(OwnerChange)
	nextID   uint64
}

type memoryExport struct {
	service *Service
	ctx     context.Context
	cancel  context.CancelFunc
	serving sync.WaitGroup
}

// NewMemory returns an empty in-process bus.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		logger:   logger.With("bus", "memory"),
		services: make(map[string]*memoryExport),
		watchers: make(map[string]map[uint64]func(OwnerChange)),
	}
}

// Export makes service reachable under its name, replacing any current
// owner (whose peers are disconnected). The returned function
// unexports it; calling it after a replacement only tears down this
// service's connections.
func (m *Memory) Export(service *Service) (unexport func()) {
	ctx, cancel := context.WithCancel(context.Background())
	export := &memoryExport{service: service, ctx: ctx, cancel: cancel}

	m.mu.Lock()
	previous := m.services[service.Name()]
	m.services[service.Name()] = export
	m.mu.Unlock()

	if previous != nil {
		previous.shutdown()
	}
	m.notify(service.Name(), true)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			current := m.services[service.Name()] == export
			if current {
				delete(m.services, service.Name())
			}
			m.mu.Unlock()

			export.shutdown()
			if current {
				m.notify(service.Name(), false)
			}
		})
	}
}

func (e *memoryExport) shutdown() {
	e.cancel()
	e.service.Close()
	e.serving.Wait()
}

// Resolve connects to the current owner of name.
func (m *Memory) Resolve(ctx context.Context, name string) (Endpoint, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	export, ok := m.services[name]
	if ok {
		export.serving.Add(1)
	}
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("resolving %s: %w", name, ErrServiceUnknown)
	}

	client, server := net.Pipe()
	go func() {
		defer export.serving.Done()
		export.service.ServeConn(export.ctx, server)
	}()

	endpoint, err := newEndpoint(ctx, name, client, m.logger)
	if err != nil {
		return nil, err
	}
	return endpoint, nil
}

// WatchOwner registers fn for presence changes of name. fn runs on the
// goroutine that exported or unexported the service.
func (m *Memory) WatchOwner(name string, fn func(OwnerChange)) (func(), error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	if m.watchers[name] == nil {
		m.watchers[name] = make(map[uint64]func(OwnerChange))
	}
	m.watchers[name][id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers[name], id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) notify(name string, appeared bool) {
	m.mu.Lock()
	watchers := make([]func(OwnerChange), 0, len(m.watchers[name]))
	for _, fn := range m.watchers[name] {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(OwnerChange{Name: name, Appeared: appeared})
	}
}
