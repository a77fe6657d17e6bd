// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/metrolink-dev/metrolink/protocol"
)

// Transport failure modes beyond what the protocol package reports.
var (
	ErrClosed      = errors.New("transport: connection closed")
	ErrBadMagic    = protocol.ErrBadMagic
	ErrBadChecksum = errors.New("transport: checksum mismatch")
)

// Conn is one TLS connection carrying protocol messages. Created by
// Dial or delivered by a Server's connection callback; never construct
// one directly.
type Conn struct {
	tlsConn *tls.Conn

	// writeMu serializes SendMessage so a handler response and a
	// fan-out update never interleave mid-frame.
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// newConn wraps an established TLS connection.
func newConn(tlsConn *tls.Conn) *Conn {
	return &Conn{tlsConn: tlsConn}
}

// SendMessage writes the full encoding of m. The message's own header
// delimits it on the stream; no length prefix is added. Partial writes
// are completed or the connection is broken.
func (c *Conn) SendMessage(m *protocol.Message) error {
	frame := m.Encode()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.tlsConn.Write(frame); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// ReceiveMessage reads exactly one message: the fixed-size header,
// magic validation, then the advertised body. Fails on EOF, short
// reads, bad magic, or a frame that does not decode.
func (c *Conn) ReceiveMessage() (*protocol.Message, error) {
	var header [protocol.HeaderSize]byte
	if _, err := io.ReadFull(c.tlsConn, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("transport: read header: %w", err)
	}

	if binary.BigEndian.Uint32(header[:4]) != protocol.Magic {
		return nil, ErrBadMagic
	}
	bodyLength := binary.BigEndian.Uint32(header[8:12])

	frame := make([]byte, protocol.HeaderSize+int(bodyLength))
	copy(frame, header[:])
	if bodyLength > 0 {
		if _, err := io.ReadFull(c.tlsConn, frame[protocol.HeaderSize:]); err != nil {
			return nil, fmt.Errorf("transport: read body: %w", err)
		}
	}

	m, err := protocol.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("transport: decode: %w", err)
	}
	if !m.VerifyChecksum() {
		return nil, ErrBadChecksum
	}
	return m, nil
}

// Close attempts a TLS close-notify, then closes the socket.
// Idempotent: repeated calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.tlsConn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer's address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.tlsConn.RemoteAddr()
}

// LocalAddr returns the local address.
func (c *Conn) LocalAddr() net.Addr {
	return c.tlsConn.LocalAddr()
}
