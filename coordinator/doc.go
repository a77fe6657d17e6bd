// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinator is the central server: it accepts TLS
// connections, dispatches framed requests to business handlers backed
// by the store, tracks authenticated sessions, fans out asynchronous
// updates to subscribers, and runs the periodic background loops
// (fleet sampling, heartbeat, session cleanup).
//
// One goroutine per connection runs the synchronous request/response
// loop: requests on a connection are handled strictly in arrival
// order. Fan-out updates may interleave between responses on a
// subscribed connection; the transport serializes frames so they never
// interleave mid-frame.
package coordinator
