// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := New(TypeConnectRequest)
	m.SequenceID = 7
	m.SessionID = 42
	m.SetString("client_id", "client_X")
	m.SetInt("num", 42)
	m.SetBool("flag", true)
	m.SetFloat("ratio", 2.5)
	m.SetBytes("blob", []byte{0, 1, 255})
	m.ComputeChecksum()

	decoded, err := Decode(m.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Type != TypeConnectRequest {
		t.Errorf("type = %v, want CONNECT_REQUEST", decoded.Type)
	}
	if decoded.SequenceID != 7 || decoded.SessionID != 42 {
		t.Errorf("sequence/session = %d/%d, want 7/42", decoded.SequenceID, decoded.SessionID)
	}
	if got := decoded.GetString("client_id"); got != "client_X" {
		t.Errorf("client_id = %q, want %q", got, "client_X")
	}
	if got := decoded.GetInt("num"); got != 42 {
		t.Errorf("num = %d, want 42", got)
	}
	if !decoded.GetBool("flag") {
		t.Error("flag = false, want true")
	}
	if got := decoded.GetFloat("ratio"); got != 2.5 {
		t.Errorf("ratio = %v, want 2.5", got)
	}
	if got := decoded.GetBytes("blob"); !bytes.Equal(got, []byte{0, 1, 255}) {
		t.Errorf("blob = %v, want [0 1 255]", got)
	}
	if !decoded.VerifyChecksum() {
		t.Error("VerifyChecksum false after round trip")
	}
}

func TestHeaderLayout(t *testing.T) {
	m := New(TypeHeartbeat)
	m.SequenceID = 0x01020304
	m.SessionID = 0x0A0B0C0D
	frame := m.Encode()

	if len(frame) != HeaderSize {
		t.Fatalf("empty message frame = %d bytes, want %d", len(frame), HeaderSize)
	}
	if got := binary.BigEndian.Uint32(frame[0:]); got != 0x54504D50 {
		t.Errorf("magic = %#x, want 0x54504D50", got)
	}
	if got := binary.BigEndian.Uint16(frame[4:]); got != 1 {
		t.Errorf("version = %d, want 1", got)
	}
	if got := binary.BigEndian.Uint16(frame[6:]); got != 17 {
		t.Errorf("type = %d, want 17", got)
	}
	if got := binary.BigEndian.Uint32(frame[8:]); got != 0 {
		t.Errorf("body length = %d, want 0", got)
	}
	if got := binary.BigEndian.Uint32(frame[12:]); got != 0x01020304 {
		t.Errorf("sequence = %#x", got)
	}
	if got := binary.BigEndian.Uint32(frame[16:]); got != 0x0A0B0C0D {
		t.Errorf("session = %#x", got)
	}
}

func TestMissingKeysYieldZeroValues(t *testing.T) {
	m := New(TypeResponseSuccess)
	if m.GetString("absent") != "" {
		t.Error("missing string not empty")
	}
	if m.GetInt("absent") != 0 {
		t.Error("missing int not zero")
	}
	if m.GetFloat("absent") != 0 {
		t.Error("missing float not zero")
	}
	if m.GetBool("absent") {
		t.Error("missing bool not false")
	}
	if len(m.GetBytes("absent")) != 0 {
		t.Error("missing bytes not empty")
	}
	if m.Has("absent") {
		t.Error("Has true for absent key")
	}
}

func TestRedefiningKeyReplaces(t *testing.T) {
	m := New(TypeConnectRequest)
	m.SetString("k", "old")
	m.SetString("k", "new")
	if got := m.GetString("k"); got != "new" {
		t.Errorf("k = %q, want %q", got, "new")
	}
	m.ComputeChecksum()
	decoded, err := Decode(m.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := decoded.GetString("k"); got != "new" {
		t.Errorf("decoded k = %q, want %q", got, "new")
	}
}

func TestMalformedNumericRejected(t *testing.T) {
	m := New(TypeConnectRequest)
	m.SetString("price", "1,50")
	if got := m.GetFloat("price"); got != 0 {
		t.Errorf("locale-formatted float parsed to %v, want 0", got)
	}
	m.SetString("count", "0x10")
	if got := m.GetInt("count"); got != 0 {
		t.Errorf("hex int parsed to %d, want 0", got)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	m := NewConnectRequest("c")
	frame := m.Encode()
	frame[0] = 0x00
	if _, err := Decode(frame); err != ErrBadMagic {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	m := NewConnectRequest("c")
	frame := m.Encode()
	binary.BigEndian.PutUint16(frame[4:], 9)
	if _, err := Decode(frame); err == nil {
		t.Fatal("Decode accepted version 9")
	}
}

func TestDecodeRejectsShortAndTrailing(t *testing.T) {
	m := NewConnectRequest("c")
	frame := m.Encode()

	if _, err := Decode(frame[:HeaderSize-1]); err != ErrShortFrame {
		t.Errorf("short header err = %v, want ErrShortFrame", err)
	}
	if _, err := Decode(frame[:len(frame)-1]); err != ErrTruncatedBody {
		t.Errorf("truncated body err = %v, want ErrTruncatedBody", err)
	}
	if _, err := Decode(append(append([]byte{}, frame...), 0xFF)); err != ErrTrailingBytes {
		t.Errorf("trailing byte err = %v, want ErrTrailingBytes", err)
	}
}

func TestChecksumDetectsBodyCorruption(t *testing.T) {
	m := NewConnectRequest("client_X")
	frame := m.Encode()

	decoded, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.VerifyChecksum() {
		t.Fatal("pristine frame failed checksum")
	}

	// Flip one byte inside the body (the last byte of the last value)
	// and confirm verification fails.
	corrupted := append([]byte{}, frame...)
	corrupted[len(corrupted)-1] ^= 0x01
	decoded, err = Decode(corrupted)
	if err != nil {
		t.Fatalf("Decode corrupted: %v", err)
	}
	if decoded.VerifyChecksum() {
		t.Fatal("corrupted frame passed checksum")
	}
}

func TestVerifyChecksumIdempotent(t *testing.T) {
	m := NewAuthRequest("1000000000001", "")
	for i := 0; i < 3; i++ {
		if !m.VerifyChecksum() {
			t.Fatalf("VerifyChecksum false on call %d", i+1)
		}
	}
	if !m.VerifyChecksum() {
		t.Fatal("VerifyChecksum mutated state")
	}
}

func TestStreamRoundTrip(t *testing.T) {
	m := NewConnectRequest("stream")
	framed := m.EncodeStream()

	if got := binary.BigEndian.Uint32(framed); int(got) != len(framed)-4 {
		t.Fatalf("stream length prefix = %d, want %d", got, len(framed)-4)
	}

	decoded, err := DecodeStream(framed)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if got := decoded.GetString("client_id"); got != "stream" {
		t.Errorf("client_id = %q, want %q", got, "stream")
	}
}

func TestStreamDecodeRejectsShortBuffer(t *testing.T) {
	m := NewConnectRequest("short")
	framed := m.EncodeStream()
	if _, err := DecodeStream(framed[:len(framed)-1]); err == nil {
		t.Fatal("DecodeStream accepted a buffer one byte short")
	}
	if _, err := DecodeStream(framed[:3]); err == nil {
		t.Fatal("DecodeStream accepted a 3-byte buffer")
	}
}

func TestFactoryMessagesVerify(t *testing.T) {
	messages := []*Message{
		NewConnectRequest("c"),
		NewConnectResponse(true, "ok"),
		NewAuthRequest("1000000000001", "1234"),
		NewAuthResponse(true, "session_1"),
		NewRegisterUser("1000000000001"),
		NewErrorResponse("nope", 400),
		NewSuccessResponse("done", map[string]string{"a": "1"}),
		NewMulticastUpdate("seat_reserved", map[string]string{"route": "R1"}),
		NewDisconnect("session_1"),
	}
	for _, m := range messages {
		if !m.VerifyChecksum() {
			t.Errorf("%v: factory message failed checksum", m.Type)
		}
		if _, err := Decode(m.Encode()); err != nil {
			t.Errorf("%v: decode failed: %v", m.Type, err)
		}
	}
}
