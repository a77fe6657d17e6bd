// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Command metrolinkd runs the Metrolink central coordination server:
// TLS endpoint, persistence, session management, subscriber fan-out,
// and optional multicast discovery.
//
// Usage:
//
//	metrolinkd --cert server.pem --key server-key.pem [--config metrolink.yaml]
//
// Flags override values from the config file.
package main
