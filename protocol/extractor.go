// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "encoding/binary"

// maxFrameLength bounds a single stream frame. A frame is one request
// or response with text values; 16 MB is far beyond anything legal and
// guards against garbage length prefixes.
const maxFrameLength = 16 * 1024 * 1024

// Extractor reassembles stream-framed messages from arbitrarily
// fragmented input. Feed appends bytes; Next returns complete frames
// (header + body, the stream length prefix stripped) as they become
// available. Not safe for concurrent use.
type Extractor struct {
	buffer []byte
}

// Feed appends a fragment of the byte stream.
func (e *Extractor) Feed(data []byte) {
	e.buffer = append(e.buffer, data...)
}

// Next returns the next complete frame, or (nil, false) when the
// buffer does not yet hold one. The returned slice is a copy; the
// consumed bytes are removed from the buffer.
func (e *Extractor) Next() ([]byte, bool) {
	if len(e.buffer) < 4 {
		return nil, false
	}
	length := binary.BigEndian.Uint32(e.buffer)
	if length > maxFrameLength {
		// Poisoned stream; drop everything so the caller sees a
		// persistent failure instead of waiting forever.
		e.buffer = nil
		return nil, false
	}
	total := 4 + int(length)
	if len(e.buffer) < total {
		return nil, false
	}
	frame := make([]byte, length)
	copy(frame, e.buffer[4:total])
	e.buffer = e.buffer[total:]
	return frame, true
}

// Pending returns the number of buffered bytes not yet consumed.
func (e *Extractor) Pending() int { return len(e.buffer) }
