// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strconv"
)

// DialConfig controls client-side trust.
type DialConfig struct {
	// TrustFile names a PEM file of trust anchors; when set, the
	// server certificate is verified against it.
	TrustFile string

	// InsecureSkipVerify disables server certificate verification.
	// For development and tests only; TrustFile wins when both are
	// set.
	InsecureSkipVerify bool
}

// Dial resolves host:port, connects over TCP, and completes a client
// TLS handshake (TLS 1.2 minimum).
func Dial(ctx context.Context, host string, port int, cfg DialConfig) (*Conn, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
	}
	switch {
	case cfg.TrustFile != "":
		pem, err := os.ReadFile(cfg.TrustFile)
		if err != nil {
			return nil, fmt.Errorf("transport: reading trust file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: no certificates in %s", cfg.TrustFile)
		}
		tlsConfig.RootCAs = pool
	case cfg.InsecureSkipVerify:
		tlsConfig.InsecureSkipVerify = true
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &tls.Dialer{Config: tlsConfig}
	rawConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", address, err)
	}
	return newConn(rawConn.(*tls.Conn)), nil
}
