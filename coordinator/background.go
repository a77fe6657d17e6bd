// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"time"
)

// sessionSweepInterval is how often expired sessions and stale
// connection rows are swept out.
const sessionSweepInterval = 300 * time.Second

// startBackgroundLoops launches the three periodic tasks. All exit
// promptly when the coordinator's context is cancelled; failures are
// logged and never abort the process.
func (c *Coordinator) startBackgroundLoops() {
	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		c.dataCollectionLoop()
	}()
	go func() {
		defer c.wg.Done()
		c.heartbeatLoop()
	}()
	go func() {
		defer c.wg.Done()
		c.sessionCleanupLoop()
	}()
}

// dataCollectionLoop snapshots the fleet into the sample table every
// data collection interval.
func (c *Coordinator) dataCollectionLoop() {
	ticker := c.clock.NewTicker(c.cfg.sampleEvery())
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			count, err := c.store.RecordVehicleSample(c.ctx)
			if err != nil {
				if c.ctx.Err() == nil {
					c.logger.Error("fleet sampling failed", "error", err)
				}
				continue
			}
			c.logger.Debug("fleet sampled", "vehicles", count)
		}
	}
}

// heartbeatLoop wakes on the heartbeat interval. The base design
// emits no traffic; the tick exists so liveness shows in the logs.
func (c *Coordinator) heartbeatLoop() {
	ticker := c.clock.NewTicker(c.cfg.heartbeatEvery())
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.logger.Debug("heartbeat",
				"active_connections", c.activeConns.Load(),
				"total_connections", c.totalConns.Load(),
				"sessions", c.sessions.count(),
				"subscribers", c.registry.count(),
			)
		}
	}
}

// sessionCleanupLoop sweeps expired sessions and prunes stale
// connection rows every sweep interval.
func (c *Coordinator) sessionCleanupLoop() {
	ticker := c.clock.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			removed := c.sessions.sweep(c.cfg.sessionTTL())
			if removed > 0 {
				c.logger.Info("sessions expired", "count", removed)
			}
			cutoff := c.clock.Now().Add(-c.cfg.sessionTTL())
			pruned, err := c.store.PruneConnections(context.Background(), cutoff)
			if err != nil {
				if c.ctx.Err() == nil {
					c.logger.Error("connection prune failed", "error", err)
				}
				continue
			}
			if pruned > 0 {
				c.logger.Info("stale connection rows pruned", "count", pruned)
			}
		}
	}
}
