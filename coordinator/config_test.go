// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ListenPort != 8080 {
		t.Errorf("listen port = %d, want 8080", cfg.ListenPort)
	}
	if cfg.SessionTimeout != 3600 || cfg.HeartbeatInterval != 30 || cfg.DataCollectionInterval != 60 {
		t.Errorf("intervals = %d/%d/%d", cfg.SessionTimeout, cfg.HeartbeatInterval, cfg.DataCollectionInterval)
	}
	if cfg.Multicast.Enabled {
		t.Error("multicast enabled by default")
	}
	if cfg.Multicast.Address != "239.192.0.1" || cfg.Multicast.Port != 30001 {
		t.Errorf("multicast = %s:%d", cfg.Multicast.Address, cfg.Multicast.Port)
	}
	if cfg.sessionTTL() != time.Hour {
		t.Errorf("session TTL = %v, want 1h", cfg.sessionTTL())
	}
}

func TestLoadConfigMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "listen_port: 9443\nsession_timeout: 60\nmulticast:\n  enabled: true\n  address: 239.192.0.2\n  port: 30002\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenPort != 9443 || cfg.SessionTimeout != 60 {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if !cfg.Multicast.Enabled || cfg.Multicast.Address != "239.192.0.2" || cfg.Multicast.Port != 30002 {
		t.Errorf("multicast = %+v", cfg.Multicast)
	}
	// Untouched fields keep defaults.
	if cfg.HeartbeatInterval != 30 || cfg.PoolSize != 5 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []string{
		"listen_port: -1\n",
		"session_timeout: 0\n",
		"heartbeat_interval: -5\n",
		"multicast:\n  enabled: true\n  address: not-an-ip\n",
		"listen_port: [\n",
	}
	for _, content := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("LoadConfig accepted %q", content)
		}
	}
}
