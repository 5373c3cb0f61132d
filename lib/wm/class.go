// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wm

import "bytes"

// ParseClass splits a raw WM_CLASS property into its two tokens:
// "instance\x00class\x00". The trailing NUL is optional. Anything else
// (no separator, an empty class, extra tokens) is malformed and
// reported with ok false; callers treat a malformed class as matching
// nothing.
func ParseClass(raw []byte) (instance, class string, ok bool) {
	raw = bytes.TrimSuffix(raw, []byte{0})
	separator := bytes.IndexByte(raw, 0)
	if separator < 0 {
		return "", "", false
	}
	classBytes := raw[separator+1:]
	if len(classBytes) == 0 || bytes.IndexByte(classBytes, 0) >= 0 {
		return "", "", false
	}
	return string(raw[:separator]), string(classBytes), true
}

// FormatClass builds a raw WM_CLASS property.
func FormatClass(instance, class string) []byte {
	raw := make([]byte, 0, len(instance)+len(class)+2)
	raw = append(raw, instance...)
	raw = append(raw, 0)
	raw = append(raw, class...)
	raw = append(raw, 0)
	return raw
}
