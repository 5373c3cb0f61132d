// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// dialTimeout covers only the connect phase of Resolve.
const dialTimeout = 5 * time.Second

// SocketBus is a session bus rooted at a directory of Unix sockets,
// one per exported service name.
type SocketBus struct {
	dir    string
	logger *slog.Logger
}

// OpenSocketBus returns the bus rooted at dir. Returns an error
// wrapping ErrNoSessionBus when dir is empty or not a directory.
func OpenSocketBus(dir string, logger *slog.Logger) (*SocketBus, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: no bus directory configured", ErrNoSessionBus)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSessionBus, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoSessionBus, dir)
	}
	return &SocketBus{dir: dir, logger: logger.With("bus", dir)}, nil
}

// Dir returns the session directory.
func (b *SocketBus) Dir() string { return b.dir }

// SocketPath returns where the owner of name listens.
func (b *SocketBus) SocketPath(name string) string {
	return filepath.Join(b.dir, name+".sock")
}

// Resolve dials the socket for name.
func (b *SocketBus) Resolve(ctx context.Context, name string) (Endpoint, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(b.dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSessionBus, err)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", b.SocketPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("resolving %s: %w", name, ErrServiceUnknown)
		}
		return nil, fmt.Errorf("resolving %s: %w", name, err)
	}

	endpoint, err := newEndpoint(ctx, name, conn, b.logger)
	if err != nil {
		return nil, err
	}
	return endpoint, nil
}

// WatchOwner watches the session directory for name's socket appearing
// or disappearing.
func (b *SocketBus) WatchOwner(name string, fn func(OwnerChange)) (func(), error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return watchPresence(b.dir, name+".sock", func(appeared bool) {
		fn(OwnerChange{Name: name, Appeared: appeared})
	})
}

// Serve exports service on the bus until ctx is cancelled. The socket
// is bound under a temporary name and renamed into place once it is
// listening, replacing any stale socket left by a previous owner. On
// return the socket is removed (if it is still ours) and every peer is
// disconnected.
func (b *SocketBus) Serve(ctx context.Context, service *Service) error {
	finalPath := b.SocketPath(service.Name())
	stagingPath := filepath.Join(b.dir, fmt.Sprintf(".%s.%d.sock", service.Name(), os.Getpid()))
	_ = os.Remove(stagingPath)

	listener, err := net.Listen("unix", stagingPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", stagingPath, err)
	}
	// Closing the listener must not unlink finalPath: a successor may
	// already own it.
	listener.(*net.UnixListener).SetUnlinkOnClose(false)

	if err := os.Rename(stagingPath, finalPath); err != nil {
		listener.Close()
		_ = os.Remove(stagingPath)
		return fmt.Errorf("publishing %s: %w", finalPath, err)
	}
	published, err := os.Stat(finalPath)
	if err != nil {
		listener.Close()
		return fmt.Errorf("stat %s: %w", finalPath, err)
	}

	var connections sync.WaitGroup
	defer func() {
		listener.Close()
		if current, err := os.Stat(finalPath); err == nil && os.SameFile(current, published) {
			_ = os.Remove(finalPath)
		}
		service.Close()
		connections.Wait()
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	b.logger.Info("service exported", "service", service.Name(), "owner", service.Owner(), "path", finalPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			b.logger.Error("accept failed", "service", service.Name(), "error", err)
			continue
		}
		connections.Add(1)
		go func() {
			defer connections.Done()
			service.ServeConn(ctx, conn)
		}()
	}
}
