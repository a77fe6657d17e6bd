// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/metrolink-dev/metrolink/discovery"
)

// Config is the coordinator's configuration. Write-once before Start;
// read-only afterwards. Interval fields are in seconds, matching the
// config files of earlier builds.
type Config struct {
	// ListenPort is the TLS port. 0 binds an ephemeral port (tests).
	ListenPort int `yaml:"listen_port"`

	// CertFile and KeyFile name the PEM certificate chain and key.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// DatabasePath is the SQLite file.
	DatabasePath string `yaml:"database_path"`

	// PoolSize is the persistence connection pool size.
	PoolSize int `yaml:"pool_size"`

	// MaxConnections caps concurrently served TLS connections;
	// excess connections are closed on accept.
	MaxConnections int `yaml:"max_connections"`

	// HeartbeatInterval is the heartbeat tick, in seconds.
	HeartbeatInterval int `yaml:"heartbeat_interval"`

	// SessionTimeout is the session idle TTL, in seconds.
	SessionTimeout int `yaml:"session_timeout"`

	// DataCollectionInterval is the fleet sampling period, in
	// seconds.
	DataCollectionInterval int `yaml:"data_collection_interval"`

	// Multicast configures LAN discovery.
	Multicast MulticastConfig `yaml:"multicast"`
}

// MulticastConfig configures the discovery responder.
type MulticastConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		ListenPort:             8080,
		DatabasePath:           "central_server.db",
		PoolSize:               5,
		MaxConnections:         1000,
		HeartbeatInterval:      30,
		SessionTimeout:         3600,
		DataCollectionInterval: 60,
		Multicast: MulticastConfig{
			Enabled: false,
			Address: discovery.DefaultGroupAddress,
			Port:    discovery.DefaultPort,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing
// path returns the defaults; a present but unreadable or malformed
// file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("coordinator: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("coordinator: parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate rejects configurations that cannot serve.
func (c Config) validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("coordinator: listen_port %d out of range", c.ListenPort)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("coordinator: session_timeout must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("coordinator: heartbeat_interval must be positive")
	}
	if c.DataCollectionInterval <= 0 {
		return fmt.Errorf("coordinator: data_collection_interval must be positive")
	}
	if c.Multicast.Enabled && net.ParseIP(c.Multicast.Address) == nil {
		return fmt.Errorf("coordinator: bad multicast address %q", c.Multicast.Address)
	}
	return nil
}

// sessionTTL returns the session idle TTL as a duration.
func (c Config) sessionTTL() time.Duration {
	return time.Duration(c.SessionTimeout) * time.Second
}

// heartbeatEvery returns the heartbeat period as a duration.
func (c Config) heartbeatEvery() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Second
}

// sampleEvery returns the fleet sampling period as a duration.
func (c Config) sampleEvery() time.Duration {
	return time.Duration(c.DataCollectionInterval) * time.Second
}
