// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the persistence layer for the coordinator: typed
// CRUD over users, groups, vehicles, tickets, payments, and the price
// table, on a fixed-size SQLite connection pool.
//
// Mutations that depend on a prior read (seat reservation, ticket
// purchase, group membership changes) run inside IMMEDIATE
// transactions so the read-then-write is the unit of isolation. When
// SQLite reports contention the operation retries with capped
// exponential back-off; two concurrent one-seat reservations on a
// one-seat vehicle resolve to exactly one success.
//
// The package is organized by entity:
//
//   - store.go: Store lifecycle, connection/transaction helpers
//   - schema.go: table definitions
//   - users.go, groups.go, vehicles.go, tickets.go, prices.go:
//     per-entity operations and business rules
//   - conns.go: the active_connections bookkeeping table
//   - samples.go: periodic vehicle status snapshots (CBOR + zstd)
//   - retry.go: contention detection and back-off
package store
