// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol implements the Metrolink framed message format: a
// fixed 24-byte header (magic, version, type, body length, sequence id,
// session id, CRC32 checksum, all network byte order) followed by a
// body of length-prefixed key/value pairs. Values travel as text;
// binary values are encoded as comma-separated decimal octets.
//
// The package is organized around the message life cycle:
//
//   - message.go: the Message type, typed accessors, encode/decode,
//     checksum computation and verification
//   - types.go: the closed message-type enumeration
//   - factory.go: constructors for every request and response kind
//   - extractor.go: incremental frame extraction from a byte stream
//     using the 4-byte stream length prefix
package protocol
