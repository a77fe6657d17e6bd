// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds how long Locate waits for an announce.
const DefaultTimeout = 1500 * time.Millisecond

// Locate probes the multicast group and returns the coordinator's
// address (from the reply's source) and advertised TCP port. Malformed
// replies are skipped; the first well-formed announce wins. Fails when
// the timeout elapses with no announce.
func Locate(groupAddress string, port int, timeout time.Duration) (string, int, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	group := net.ParseIP(groupAddress)
	if group == nil {
		return "", 0, fmt.Errorf("discovery: bad group address %q", groupAddress)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return "", 0, fmt.Errorf("discovery: opening probe socket: %w", err)
	}
	defer conn.Close()

	target := &net.UDPAddr{IP: group, Port: port}
	if _, err := conn.WriteToUDP([]byte(discoverPayload), target); err != nil {
		return "", 0, fmt.Errorf("discovery: sending probe: %w", err)
	}

	deadline := time.Now().Add(timeout)
	buffer := make([]byte, 1024)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return "", 0, fmt.Errorf("discovery: setting deadline: %w", err)
		}
		n, sender, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return "", 0, fmt.Errorf("discovery: no announce within %v: %w", timeout, err)
		}
		host, tcpPort, ok := parseAnnounce(string(buffer[:n]))
		if !ok {
			continue
		}
		if host == "" {
			host = sender.IP.String()
		}
		return host, tcpPort, nil
	}
}

// parseAnnounce extracts the TCP port from "ANNOUNCE central <port>".
// The host comes from the datagram source, so the returned host is
// always empty here; the announce body carries only the port.
func parseAnnounce(payload string) (string, int, bool) {
	fields := strings.Fields(strings.TrimSpace(payload))
	if len(fields) != 3 || fields[0] != "ANNOUNCE" || fields[1] != "central" {
		return "", 0, false
	}
	tcpPort, err := strconv.Atoi(fields[2])
	if err != nil || tcpPort <= 0 || tcpPort > 65535 {
		return "", 0, false
	}
	return "", tcpPort, true
}
