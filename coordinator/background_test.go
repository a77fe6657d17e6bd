// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/metrolink-dev/metrolink/lib/clock"
	"github.com/metrolink-dev/metrolink/lib/testutil"
	"github.com/metrolink-dev/metrolink/schema"
	"github.com/metrolink-dev/metrolink/store"
)

// startLoopsOnly builds a coordinator on a fake clock and runs just
// the background loops — no listener, no discovery.
func startLoopsOnly(t *testing.T, fake *clock.FakeClock) (*Coordinator, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{
		Path:     testutil.TempDBPath(t),
		PoolSize: 4,
		Clock:    fake,
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c := New(DefaultConfig(), st, fake, nil)
	c.startBackgroundLoops()
	t.Cleanup(func() {
		c.cancel()
		c.wg.Wait()
	})
	return c, st
}

// waitFor polls condition on the wall clock; fake-clock loops process
// ticks asynchronously.
func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionCleanupLoopExpiresSessions(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c, _ := startLoopsOnly(t, fake)

	c.sessions.create("1000000000001")
	if c.SessionCount() != 1 {
		t.Fatal("session not created")
	}

	// One sweep tick inside the TTL: the session stays.
	fake.Advance(sessionSweepInterval)
	time.Sleep(50 * time.Millisecond)
	if c.SessionCount() != 1 {
		t.Fatal("session swept before its TTL")
	}

	// Push idle time past the one-hour TTL and let a sweep fire.
	fake.Advance(time.Hour)
	waitFor(t, "session expiry", func() bool { return c.SessionCount() == 0 })
}

func TestDataCollectionLoopRecordsSamples(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c, st := startLoopsOnly(t, fake)
	_ = c
	ctx := context.Background()

	err := st.RegisterVehicle(ctx, schema.Vehicle{
		URI: "bus://1", Kind: schema.VehicleBus, Capacity: 50,
		AvailableSeats: 50, Route: "R1", Active: true,
		LastUpdate: fake.Now(),
	})
	if err != nil {
		t.Fatalf("RegisterVehicle: %v", err)
	}

	fake.Advance(60 * time.Second)
	waitFor(t, "fleet sample", func() bool {
		samples, _, err := st.LatestVehicleSample(ctx)
		return err == nil && len(samples) == 1
	})
}

func TestLoopsStopOnCancel(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	c, _ := startLoopsOnly(t, fake)

	done := make(chan struct{})
	go func() {
		c.cancel()
		c.wg.Wait()
		close(done)
	}()
	testutil.RequireClosed(t, done, 5*time.Second, "background loops exiting")
}
