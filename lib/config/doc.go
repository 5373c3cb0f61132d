// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads panelshell configuration.
//
// Configuration is loaded from a single file specified by either the
// PANELSHELL_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no search path.
// Files ending in .jsonc or .json are read as JSON with comments;
// everything else is YAML.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches.
//
// ${HOME}, ${XDG_RUNTIME_DIR} and ${VAR:-default} patterns in path
// fields are expanded after loading. No other environment variables
// override config values.
//
// Key exports:
//
//   - [Config] -- bus, toolbar, animation, log and panel settings
//   - [Default] -- development defaults with no panels
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
