// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package bus

import "errors"

func watchPresence(dir, filename string, fn func(appeared bool)) (func(), error) {
	return nil, errors.New("bus: presence watching requires inotify (linux)")
}
