// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"fmt"
	"regexp"

	"github.com/bureau-foundation/panelshell/lib/codec"
)

// FrameKind identifies what a frame carries.
type FrameKind uint8

const (
	FrameHello FrameKind = iota + 1
	FrameCall
	FrameReply
	FrameError
	FrameSignal
)

func (k FrameKind) String() string {
	switch k {
	case FrameHello:
		return "hello"
	case FrameCall:
		return "call"
	case FrameReply:
		return "reply"
	case FrameError:
		return "error"
	case FrameSignal:
		return "signal"
	default:
		return fmt.Sprintf("frame(%d)", uint8(k))
	}
}

// Frame is the unit of the bus wire protocol.
type Frame struct {
	Kind FrameKind `cbor:"kind"`

	// Serial numbers call frames, per connection, starting at 1.
	Serial uint64 `cbor:"serial,omitempty"`

	// ReplyTo is the Serial of the call a reply or error answers.
	ReplyTo uint64 `cbor:"reply_to,omitempty"`

	// Member is the method name of a call or the signal name.
	Member string `cbor:"member,omitempty"`

	// Body is the CBOR-encoded argument, result or signal payload.
	Body codec.RawMessage `cbor:"body,omitempty"`

	// Error is the failure message of an error frame.
	Error string `cbor:"error,omitempty"`

	// Owner is the service's owner id, set on hello frames.
	Owner string `cbor:"owner,omitempty"`
}

// Signal is a broadcast received from a service.
type Signal struct {
	Member string
	Body   codec.RawMessage
}

// Decode unmarshals the signal payload into v.
func (s Signal) Decode(v any) error {
	return Decode(s.Body, v)
}

// Decode unmarshals a call, reply or signal body. An empty body leaves
// v untouched.
func Decode(body codec.RawMessage, v any) error {
	if len(body) == 0 {
		return nil
	}
	return codec.Unmarshal(body, v)
}

// encodeBody marshals a call argument or result. A nil value produces
// an empty body.
func encodeBody(v any) (codec.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return codec.RawMessage(data), nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,99}$`)

// ValidateName checks that name can be used as a service name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
