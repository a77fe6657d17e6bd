// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Defaults for the rendezvous group.
const (
	DefaultGroupAddress = "239.192.0.1"
	DefaultPort         = 30001
)

// discoverPayload is the exact probe body, modulo trailing whitespace.
const discoverPayload = "DISCOVER"

// Responder answers DISCOVER probes on a multicast group with the
// coordinator's TCP port.
type Responder struct {
	conn    *net.UDPConn
	logger  *slog.Logger
	tcpPort int

	closeOnce sync.Once
	done      chan struct{}
}

// StartResponder joins the multicast group and starts answering
// probes. tcpPort is the coordinator's TLS listening port advertised
// in replies. Bind and group-join failures surface as errors so the
// caller can degrade to running without discovery.
func StartResponder(groupAddress string, port, tcpPort int, logger *slog.Logger) (*Responder, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	group := net.ParseIP(groupAddress)
	if group == nil {
		return nil, fmt.Errorf("discovery: bad group address %q", groupAddress)
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, &net.UDPAddr{IP: group, Port: port})
	if err != nil {
		return nil, fmt.Errorf("discovery: joining %s:%d: %w", groupAddress, port, err)
	}

	r := &Responder{
		conn:    conn,
		logger:  logger,
		tcpPort: tcpPort,
		done:    make(chan struct{}),
	}
	go r.receiveLoop()

	logger.Info("multicast discovery started",
		"group", groupAddress,
		"port", port,
		"tcp_port", tcpPort,
	)
	return r, nil
}

// receiveLoop answers probes until the socket closes.
func (r *Responder) receiveLoop() {
	defer close(r.done)
	buffer := make([]byte, 1024)
	for {
		n, sender, err := r.conn.ReadFromUDP(buffer)
		if err != nil {
			return
		}
		reply, ok := handleProbe(string(buffer[:n]), r.tcpPort)
		if !ok {
			continue
		}
		r.logger.Debug("discovery probe", "from", sender)
		if _, err := r.conn.WriteToUDP([]byte(reply), sender); err != nil {
			r.logger.Warn("announce send failed", "to", sender, "error", err)
		}
	}
}

// handleProbe decides the reply for one datagram: DISCOVER (with any
// trailing whitespace) gets an announce, everything else is ignored.
func handleProbe(payload string, tcpPort int) (string, bool) {
	trimmed := strings.TrimRightFunc(payload, unicode.IsSpace)
	if trimmed != discoverPayload {
		return "", false
	}
	return "ANNOUNCE central " + strconv.Itoa(tcpPort), true
}

// Close leaves the group and stops the responder. Idempotent.
func (r *Responder) Close() {
	r.closeOnce.Do(func() {
		r.conn.Close()
		<-r.done
	})
}
