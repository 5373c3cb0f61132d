// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/term"

	"github.com/bureau-foundation/panelshell/lib/config"
)

// NewLogger creates the structured logger for a panelshell binary.
// With format "auto", a terminal gets slog.TextHandler output and a
// pipe or file gets slog.JSONHandler output.
func NewLogger(w io.Writer, logConfig config.LogConfig) (*slog.Logger, error) {
	level, err := ParseLevel(logConfig.Level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch logConfig.Format {
	case "text":
		handler = slog.NewTextHandler(w, options)
	case "json":
		handler = slog.NewJSONHandler(w, options)
	case "", "auto":
		if IsTerminal(w) {
			handler = slog.NewTextHandler(w, options)
		} else {
			handler = slog.NewJSONHandler(w, options)
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", logConfig.Format)
	}
	return slog.New(handler), nil
}

// ParseLevel parses debug, info, warn or error. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// IsTerminal reports whether w is a file descriptor attached to a
// terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(file.Fd()))
}
