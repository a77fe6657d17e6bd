// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the domain types shared by the wire protocol,
// the persistence layer, and the coordinator: users, vehicles, groups,
// tickets, payments, and price entries, together with the closed
// vehicle-kind and ticket-kind enumerations whose numeric values are
// part of the wire contract.
package schema
