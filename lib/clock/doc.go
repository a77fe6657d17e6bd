// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject Fake() and advance it deterministically.
// Session TTL sweeps, retry back-off sleeps, and background tickers all
// go through a Clock so tests never wait on the wall clock.
package clock
