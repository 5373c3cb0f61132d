// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every panelshell
// protocol: bus frames exchanged between the shell and remote panel
// processes, and the payloads those frames carry.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical frame always produces identical bytes. The decoder
// ignores unknown fields, which lets a newer panel process add reply
// fields without breaking an older shell.
//
// Buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Streams (one self-delimiting CBOR item per frame, no extra framing):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that only ever travel over the bus use `cbor` struct tags.
package codec
