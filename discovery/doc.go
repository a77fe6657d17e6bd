// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery implements the UDP multicast rendezvous: clients
// send "DISCOVER" to the group address and the coordinator answers the
// sender with "ANNOUNCE central <tcp_port>". Discovery is best-effort —
// a coordinator that cannot join the group runs without it, and
// clients fall back to configured addresses.
package discovery
