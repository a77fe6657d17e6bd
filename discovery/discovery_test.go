// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"testing"
	"time"
)

func TestHandleProbe(t *testing.T) {
	cases := []struct {
		payload string
		want    string
		ok      bool
	}{
		{"DISCOVER", "ANNOUNCE central 8080", true},
		{"DISCOVER\n", "ANNOUNCE central 8080", true},
		{"DISCOVER\r\n", "ANNOUNCE central 8080", true},
		{"DISCOVER  ", "ANNOUNCE central 8080", true},
		{"discover", "", false},
		{"DISCOVERY", "", false},
		{" DISCOVER", "", false},
		{"", "", false},
		{"HELLO", "", false},
	}
	for _, tc := range cases {
		reply, ok := handleProbe(tc.payload, 8080)
		if ok != tc.ok || reply != tc.want {
			t.Errorf("handleProbe(%q) = %q, %v; want %q, %v", tc.payload, reply, ok, tc.want, tc.ok)
		}
	}
}

func TestParseAnnounce(t *testing.T) {
	cases := []struct {
		payload string
		port    int
		ok      bool
	}{
		{"ANNOUNCE central 8080", 8080, true},
		{"ANNOUNCE central 8080\r\n", 8080, true},
		{"ANNOUNCE central 0", 0, false},
		{"ANNOUNCE central 70000", 0, false},
		{"ANNOUNCE central x", 0, false},
		{"ANNOUNCE regional 8080", 0, false},
		{"garbage", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		_, port, ok := parseAnnounce(tc.payload)
		if ok != tc.ok || (ok && port != tc.port) {
			t.Errorf("parseAnnounce(%q) = %d, %v; want %d, %v", tc.payload, port, ok, tc.port, tc.ok)
		}
	}
}

func TestRendezvousRoundTrip(t *testing.T) {
	responder, err := StartResponder(DefaultGroupAddress, DefaultPort, 8080, nil)
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer responder.Close()

	host, port, err := Locate(DefaultGroupAddress, DefaultPort, 1500*time.Millisecond)
	if err != nil {
		t.Skipf("no announce received (multicast loopback unavailable): %v", err)
	}
	if port != 8080 {
		t.Errorf("announced port = %d, want 8080", port)
	}
	if host == "" {
		t.Error("empty coordinator host")
	}
}
