// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by tests: channel
// receive/send assertions with timeout safety valves, and temp-path
// helpers for on-disk SQLite databases.
package testutil
