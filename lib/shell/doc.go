// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell assembles the host side of panelshell from
// configuration: one toolbar, one toggle button per panel bound
// through a registry, and a local or remote surface behind each
// button. It watches the host window table and places newly mapped
// windows either with the panel that owns them or as independent
// windows.
//
// Every Shell method must be called on the loop goroutine.
package shell
