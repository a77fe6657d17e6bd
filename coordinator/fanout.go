// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"log/slog"
	"sync"

	"github.com/metrolink-dev/metrolink/protocol"
	"github.com/metrolink-dev/metrolink/transport"
)

// subscriberRegistry tracks connections that completed authentication
// and therefore receive asynchronous update frames. Membership is
// bounded by the connection's lifetime: the per-connection loop
// removes its entry on exit, and broadcast drops any subscriber whose
// send fails.
type subscriberRegistry struct {
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[*transport.Conn]struct{}
}

func newSubscriberRegistry(logger *slog.Logger) *subscriberRegistry {
	return &subscriberRegistry{
		logger:      logger,
		subscribers: make(map[*transport.Conn]struct{}),
	}
}

// add registers a connection. Re-adding is a no-op.
func (r *subscriberRegistry) add(conn *transport.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[conn] = struct{}{}
}

// remove deletes a connection. Removing an absent connection is a
// no-op.
func (r *subscriberRegistry) remove(conn *transport.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, conn)
}

// count returns the current subscriber count.
func (r *subscriberRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}

// broadcast sends an update frame to every subscriber, dropping the
// ones whose send fails. Delivery is best-effort. The sends run under
// the registry lock so membership cannot change mid-iteration.
func (r *subscriberRegistry) broadcast(updateType string, data map[string]string) {
	message := protocol.NewMulticastUpdate(updateType, data)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("broadcast", "update_type", updateType, "subscribers", len(r.subscribers))

	for conn := range r.subscribers {
		if err := conn.SendMessage(message); err != nil {
			r.logger.Warn("dropping unreachable subscriber",
				"peer", conn.RemoteAddr(),
				"error", err,
			)
			delete(r.subscribers, conn)
		}
	}
}
