// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/metrolink-dev/metrolink/discovery"
	"github.com/metrolink-dev/metrolink/lib/clock"
	"github.com/metrolink-dev/metrolink/store"
	"github.com/metrolink-dev/metrolink/transport"
)

// Coordinator is the central server. Construct with New, then Start;
// Stop shuts everything down and waits for the background loops.
type Coordinator struct {
	cfg    Config
	store  *store.Store
	clock  clock.Clock
	logger *slog.Logger

	sessions *sessionTable
	registry *subscriberRegistry

	server    *transport.Server
	responder *discovery.Responder

	connCounter atomic.Int64
	activeConns atomic.Int64
	totalConns  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a coordinator. The store is owned by the caller and
// must outlive the coordinator.
func New(cfg Config, st *store.Store, ck clock.Clock, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if ck == nil {
		ck = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:      cfg,
		store:    st,
		clock:    ck,
		logger:   logger,
		sessions: newSessionTable(ck),
		registry: newSubscriberRegistry(logger),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the TLS listener, starts the discovery responder when
// enabled, and launches the accept loop and background loops. Returns
// once the coordinator is serving.
func (c *Coordinator) Start() error {
	addr := ":" + strconv.Itoa(c.cfg.ListenPort)
	server, err := transport.Listen(addr, c.cfg.CertFile, c.cfg.KeyFile, c.logger)
	if err != nil {
		c.cancel()
		return fmt.Errorf("coordinator: %w", err)
	}
	c.server = server

	if c.cfg.Multicast.Enabled {
		responder, err := discovery.StartResponder(
			c.cfg.Multicast.Address, c.cfg.Multicast.Port, server.Port(), c.logger)
		if err != nil {
			// Discovery is best-effort: degrade and keep serving.
			c.logger.Warn("multicast discovery not started", "error", err)
		} else {
			c.responder = responder
		}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := server.Serve(c.acceptConnection); err != nil {
			c.logger.Error("accept loop exited", "error", err)
		}
	}()

	c.startBackgroundLoops()

	c.logger.Info("central server started", "port", server.Port())
	return nil
}

// Stop closes the listener and discovery responder, cancels the
// background loops, and waits for them. Connection goroutines exit as
// their sockets report EOF. Idempotent.
func (c *Coordinator) Stop() {
	c.cancel()
	if c.responder != nil {
		c.responder.Close()
	}
	if c.server != nil {
		c.server.Close()
	}
	c.wg.Wait()
	c.logger.Info("central server stopped")
}

// Port returns the bound TLS port. Valid after Start.
func (c *Coordinator) Port() int {
	return c.server.Port()
}

// SubscriberCount returns the number of live subscribers.
func (c *Coordinator) SubscriberCount() int {
	return c.registry.count()
}

// SessionCount returns the number of live sessions.
func (c *Coordinator) SessionCount() int {
	return c.sessions.count()
}

// acceptConnection is the transport callback: it enforces the
// connection cap and runs the per-connection loop.
func (c *Coordinator) acceptConnection(conn *transport.Conn) {
	if c.activeConns.Add(1) > int64(c.cfg.MaxConnections) {
		c.activeConns.Add(-1)
		c.logger.Warn("connection limit reached, rejecting", "peer", conn.RemoteAddr())
		conn.Close()
		return
	}
	defer c.activeConns.Add(-1)
	c.totalConns.Add(1)
	c.serveConnection(conn)
}

// serveConnection runs the synchronous request/response loop for one
// connection: receive, dispatch, respond, until EOF or error. On exit
// the connection leaves the subscriber registry and the bookkeeping
// table.
func (c *Coordinator) serveConnection(conn *transport.Conn) {
	connectionID := "conn_" + strconv.FormatInt(c.connCounter.Add(1), 10)
	peerHost, peerPort := splitPeer(conn.RemoteAddr())
	c.logger.Info("client connected", "connection", connectionID, "peer", conn.RemoteAddr())

	if err := c.store.RecordConnection(c.ctx, connectionID, peerHost, peerPort); err != nil {
		c.logger.Warn("recording connection", "connection", connectionID, "error", err)
	}

	defer func() {
		c.registry.remove(conn)
		if err := c.store.RemoveConnection(context.Background(), connectionID); err != nil {
			c.logger.Warn("removing connection row", "connection", connectionID, "error", err)
		}
		conn.Close()
		c.logger.Info("client disconnected", "connection", connectionID)
	}()

	for {
		message, err := conn.ReceiveMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("receive failed", "connection", connectionID, "error", err)
			}
			return
		}
		c.logger.Debug("request", "connection", connectionID, "type", message.Type)
		if !c.dispatch(connectionID, conn, message) {
			return
		}
	}
}

// splitPeer breaks a TCP address into host and port for the
// bookkeeping table.
func splitPeer(addr net.Addr) (string, int) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String(), 0
	}
	return tcpAddr.IP.String(), tcpAddr.Port
}
