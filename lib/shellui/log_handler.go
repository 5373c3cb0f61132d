// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellui

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model for display in the
// status line.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears a log record from the status line. Serial
// matches the record it fades, so a newer record is not cleared early.
type logRecordFadeMsg struct {
	Serial int
}

// logRecordFadeDelay is how long log records stay in the status line.
const logRecordFadeDelay = 5 * time.Second

// LogHandler is a slog.Handler that routes records at or above its
// level into a bubbletea program. Records arriving before SetProgram
// are dropped.
//
// Handlers derived via WithAttrs/WithGroup share the destination, so
// one SetProgram call reaches all of them.
type LogHandler struct {
	level  slog.Level
	send   *atomic.Pointer[func(tea.Msg)]
	attrs  []slog.Attr
	groups []string
}

// NewLogHandler creates a handler for records at or above level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{
		level: level,
		send:  &atomic.Pointer[func(tea.Msg)]{},
	}
}

// SetProgram directs records to program. Safe from any goroutine.
func (handler *LogHandler) SetProgram(program *tea.Program) {
	handler.setSink(program.Send)
}

func (handler *LogHandler) setSink(send func(tea.Msg)) {
	handler.send.Store(&send)
}

// Enabled reports whether records at level are delivered.
func (handler *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends
// it to the program.
func (handler *LogHandler) Handle(_ context.Context, record slog.Record) error {
	send := handler.send.Load()
	if send == nil {
		return nil
	}

	prefix := strings.Join(handler.groups, ".")
	if prefix != "" {
		prefix += "."
	}

	var parts []string
	for _, attr := range handler.attrs {
		parts = append(parts, attr.Key+"="+attr.Value.String())
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, prefix+attr.Key+"="+attr.Value.String())
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	(*send)(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

// WithAttrs returns a handler with attrs appended.
func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{
		level:  handler.level,
		send:   handler.send,
		attrs:  append(sliceClone(handler.attrs), attrs...),
		groups: sliceClone(handler.groups),
	}
}

// WithGroup returns a handler with name appended to the groups.
func (handler *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{
		level:  handler.level,
		send:   handler.send,
		attrs:  sliceClone(handler.attrs),
		groups: append(sliceClone(handler.groups), name),
	}
}

func sliceClone[T any](source []T) []T {
	if source == nil {
		return nil
	}
	result := make([]T, len(source))
	copy(result, source)
	return result
}
