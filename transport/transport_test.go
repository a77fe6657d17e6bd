// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/metrolink-dev/metrolink/lib/testutil"
	"github.com/metrolink-dev/metrolink/protocol"
)

// startEchoServer runs a server whose handler echoes every received
// message back, then closes. Returns the server's host and port.
func startEchoServer(t *testing.T) (string, int) {
	t.Helper()
	certFile, keyFile := testutil.WriteSelfSignedCert(t)
	server, err := Listen("127.0.0.1:0", certFile, keyFile, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	go server.Serve(func(conn *Conn) {
		defer conn.Close()
		for {
			m, err := conn.ReceiveMessage()
			if err != nil {
				return
			}
			if err := conn.SendMessage(m); err != nil {
				return
			}
		}
	})

	host, portText, err := net.SplitHostPort(server.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, _ := strconv.Atoi(portText)
	return host, port
}

func TestSendReceiveRoundTrip(t *testing.T) {
	host, port := startEchoServer(t)

	conn, err := Dial(context.Background(), host, port, DialConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	request := protocol.NewConnectRequest("transport-test")
	if err := conn.SendMessage(request); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	echoed, err := conn.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if echoed.Type != protocol.TypeConnectRequest {
		t.Errorf("type = %v, want CONNECT_REQUEST", echoed.Type)
	}
	if got := echoed.GetString("client_id"); got != "transport-test" {
		t.Errorf("client_id = %q, want %q", got, "transport-test")
	}
	if !echoed.VerifyChecksum() {
		t.Error("checksum lost in transit")
	}
}

func TestDialVerifiesAgainstTrustFile(t *testing.T) {
	certFile, keyFile := testutil.WriteSelfSignedCert(t)
	server, err := Listen("127.0.0.1:0", certFile, keyFile, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()
	go server.Serve(func(conn *Conn) {
		// Hold the connection open until the client closes.
		conn.ReceiveMessage()
		conn.Close()
	})

	conn, err := Dial(context.Background(), "127.0.0.1", server.Port(), DialConfig{TrustFile: certFile})
	if err != nil {
		t.Fatalf("Dial with trust anchor: %v", err)
	}
	conn.Close()
}

func TestDialRejectsUntrustedServer(t *testing.T) {
	host, port := startEchoServer(t)

	// No trust anchor, no insecure flag: the self-signed chain must
	// fail verification during the handshake. Dial runs the handshake
	// itself; the write would surface a failure Dial did not report.
	conn, err := Dial(context.Background(), host, port, DialConfig{})
	if err == nil {
		err = conn.SendMessage(protocol.NewConnectRequest("x"))
		conn.Close()
	}
	if err == nil {
		t.Fatal("connection to untrusted server succeeded")
	}
}

func TestReceiveMessageEOF(t *testing.T) {
	certFile, keyFile := testutil.WriteSelfSignedCert(t)
	server, err := Listen("127.0.0.1:0", certFile, keyFile, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()

	go server.Serve(func(conn *Conn) {
		conn.Close()
	})

	conn, err := Dial(context.Background(), "127.0.0.1", server.Port(), DialConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.ReceiveMessage(); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	host, port := startEchoServer(t)
	conn, err := Dial(context.Background(), host, port, DialConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	first := conn.Close()
	second := conn.Close()
	if first != second {
		t.Errorf("Close results differ: %v then %v", first, second)
	}
}

func TestCorruptedChecksumDropsFrame(t *testing.T) {
	host, port := startEchoServer(t)
	conn, err := Dial(context.Background(), host, port, DialConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Flip one body byte after checksum computation and push the raw
	// frame. The server's receive fails verification and tears the
	// connection down, so the next client read reports EOF.
	frame := protocol.NewConnectRequest("victim").Encode()
	frame[len(frame)-1] ^= 0x01
	if _, err := conn.tlsConn.Write(frame); err != nil {
		t.Fatalf("raw write: %v", err)
	}

	if _, err := conn.ReceiveMessage(); err == nil {
		t.Fatal("received a response to a corrupted frame")
	}
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	host, port := startEchoServer(t)
	conn, err := Dial(context.Background(), host, port, DialConfig{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	const senders = 4
	const perSender = 25
	for g := 0; g < senders; g++ {
		go func(g int) {
			for i := 0; i < perSender; i++ {
				m := protocol.NewConnectRequest("sender")
				if err := conn.SendMessage(m); err != nil {
					return
				}
			}
		}(g)
	}

	deadline := time.After(10 * time.Second)
	for received := 0; received < senders*perSender; received++ {
		done := make(chan error, 1)
		go func() {
			m, err := conn.ReceiveMessage()
			if err == nil && !m.VerifyChecksum() {
				err = errors.New("checksum mismatch")
			}
			done <- err
		}()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("message %d: %v", received, err)
			}
		case <-deadline:
			t.Fatalf("timed out after %d messages", received)
		}
	}
}
