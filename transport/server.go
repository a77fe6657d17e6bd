// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/zeebo/blake3"
)

// Server accepts TLS connections and delivers each one, handshake
// complete, to a caller-provided callback on its own goroutine.
type Server struct {
	listener net.Listener
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// Listen binds addr (":0" for an ephemeral port) and loads the server
// certificate chain and key. The certificate file's blake3 fingerprint
// is logged so operators can pin it from client machines.
func Listen(addr, certFile, keyFile string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	certificate, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("transport: loading key pair: %w", err)
	}

	if pem, err := os.ReadFile(certFile); err == nil {
		digest := blake3.Sum256(pem)
		logger.Info("serving certificate",
			"cert_file", certFile,
			"blake3", hex.EncodeToString(digest[:]),
		)
	}

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{certificate},
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}

	return &Server{
		listener: tls.NewListener(listener, tlsConfig),
		logger:   logger,
	}, nil
}

// Serve accepts connections until Close, completing the server-side
// handshake before handing each connection to handler on a fresh
// goroutine. Returns nil after a clean Close.
func (s *Server) Serve(handler func(*Conn)) error {
	for {
		rawConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("transport: accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			tlsConn := rawConn.(*tls.Conn)
			err := tlsConn.Handshake()
			s.wg.Done()
			if err != nil {
				s.logger.Warn("tls handshake failed",
					"peer", rawConn.RemoteAddr(),
					"error", err,
				)
				rawConn.Close()
				return
			}
			handler(newConn(tlsConn))
		}()
	}
}

// Addr returns the bound address in host:port form.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Port returns the bound TCP port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close stops accepting and waits for in-flight handshake goroutines.
// Idempotent. Connections already handed to the callback are the
// callback's to close.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.listener.Close()
		s.wg.Wait()
	})
	return s.closeErr
}
