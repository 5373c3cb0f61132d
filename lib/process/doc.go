// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint error handler shared by the
// panelshell binaries. main() calls run() and hands any error to
// [Fatal], which writes to stderr without going through a logger that
// may not exist yet.
package process
