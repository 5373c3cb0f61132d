// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for panelshell packages.
//
// [SocketDir] creates a short temporary directory for a socket bus.
// Unix domain socket paths are limited to 108 bytes, which nested
// t.TempDir() paths routinely exceed.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so socket tests never hang. They are the only place tests use
// wall-clock timeouts; everything animated runs on a fake clock.
//
// [UniqueName] produces distinct service names for tests sharing a bus
// directory.
//
// All helpers fail the test instead of returning errors.
package testutil
