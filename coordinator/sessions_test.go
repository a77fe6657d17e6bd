// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"testing"
	"time"

	"github.com/metrolink-dev/metrolink/lib/clock"
)

func TestSessionCreateAndResolve(t *testing.T) {
	fake := clock.Fake(time.Unix(1000, 0))
	table := newSessionTable(fake)

	token := table.create("1000000000001")
	if token != "session_1" {
		t.Errorf("token = %q, want session_1", token)
	}
	second := table.create("1000000000002")
	if second != "session_2" {
		t.Errorf("second token = %q, want session_2", second)
	}

	urn, ok := table.resolve(token)
	if !ok || urn != "1000000000001" {
		t.Errorf("resolve = %q, %v", urn, ok)
	}
	if _, ok := table.resolve("session_999"); ok {
		t.Error("unknown token resolved")
	}
	if table.count() != 2 {
		t.Errorf("count = %d, want 2", table.count())
	}
}

func TestSessionSweepExpiresIdle(t *testing.T) {
	fake := clock.Fake(time.Unix(1000, 0))
	table := newSessionTable(fake)
	ttl := time.Hour

	stale := table.create("1000000000001")
	fake.Advance(30 * time.Minute)
	fresh := table.create("1000000000002")

	// The stale session is 30 minutes old, still inside the TTL.
	if removed := table.sweep(ttl); removed != 0 {
		t.Errorf("early sweep removed %d", removed)
	}

	// 31 more minutes: stale exceeds the TTL, fresh does not.
	fake.Advance(31 * time.Minute)
	if removed := table.sweep(ttl); removed != 1 {
		t.Errorf("sweep removed %d, want 1", removed)
	}
	if _, ok := table.resolve(stale); ok {
		t.Error("stale session survived sweep")
	}
	if _, ok := table.resolve(fresh); !ok {
		t.Error("fresh session swept")
	}
}

func TestSessionResolveRefreshesActivity(t *testing.T) {
	fake := clock.Fake(time.Unix(1000, 0))
	table := newSessionTable(fake)
	ttl := time.Hour

	token := table.create("1000000000001")
	fake.Advance(50 * time.Minute)

	// Resolving refreshes last activity, so another 50 minutes still
	// stays inside the TTL window.
	if _, ok := table.resolve(token); !ok {
		t.Fatal("resolve failed")
	}
	fake.Advance(50 * time.Minute)
	if removed := table.sweep(ttl); removed != 0 {
		t.Errorf("sweep removed %d after refresh, want 0", removed)
	}
}

func TestSessionRemove(t *testing.T) {
	table := newSessionTable(clock.Fake(time.Unix(0, 0)))
	token := table.create("1000000000001")
	table.remove(token)
	if _, ok := table.resolve(token); ok {
		t.Error("removed session resolved")
	}
	// Removing twice is a no-op.
	table.remove(token)
}
