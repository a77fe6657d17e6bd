// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries protocol messages over TLS. Two roles:
// Dial opens a client connection, optionally verifying the server
// against a trust anchor file; Listen accepts connections, completes
// the server-side handshake, and hands each connection to a callback.
//
// Messages travel without a stream prefix — the frame header's body
// length delimits each message, so a reader alternates between a
// fixed-size header read and a body read. One reader and one writer
// per connection are safe; concurrent writers are serialized by a
// per-connection mutex because responses and subscriber fan-out share
// the socket.
package transport
