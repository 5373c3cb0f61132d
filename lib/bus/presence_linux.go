// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	appearMask = unix.IN_CREATE | unix.IN_MOVED_TO
	vanishMask = unix.IN_DELETE | unix.IN_MOVED_FROM
)

// watchPresence reports filename appearing in or vanishing from dir
// via inotify. The returned cancel stops the watcher and releases the
// inotify descriptor; it is safe to call more than once.
func watchPresence(dir, filename string, fn func(appeared bool)) (func(), error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, dir, appearMask|vanishMask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", dir, err)
	}

	stop := make(chan struct{})
	go presenceReadLoop(fd, filename, fn, stop)

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }, nil
}

// presenceReadLoop polls the inotify descriptor with a 100ms timeout so
// it notices cancellation promptly, and closes the descriptor on exit.
func presenceReadLoop(fd int, filename string, fn func(bool), stop <-chan struct{}) {
	defer unix.Close(fd)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-stop:
			return
		default:
		}

		descriptors := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		count, err := unix.Poll(descriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue
		}

		read, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}

		for _, event := range parseInotifyEvents(buffer[:read]) {
			if event.name != filename {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			switch {
			case event.mask&appearMask != 0:
				fn(true)
			case event.mask&vanishMask != 0:
				fn(false)
			}
		}
	}
}

type inotifyEvent struct {
	mask uint32
	name string
}

// parseInotifyEvents decodes a buffer of struct inotify_event records
// (inotify(7)): wd int32, mask uint32, cookie uint32, len uint32, then
// len bytes of NUL-padded name.
func parseInotifyEvents(buffer []byte) []inotifyEvent {
	var events []inotifyEvent
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}
		name := buffer[offset+unix.SizeofInotifyEvent : offset+eventSize]
		if end := bytes.IndexByte(name, 0); end >= 0 {
			name = name[:end]
		}
		events = append(events, inotifyEvent{mask: mask, name: string(name)})
		offset += eventSize
	}
	return events
}
