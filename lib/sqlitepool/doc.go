// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a fixed-size pool of SQLite connections
// with Metrolink-standard pragmas. Take blocks until a connection is
// free; Put returns it. One connection belongs to one goroutine at a
// time — the pool mediates exclusive ownership, the per-connection
// serialization the persistence layer relies on.
package sqlitepool
