// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/metrolink-dev/metrolink/coordinator"
	"github.com/metrolink-dev/metrolink/lib/clock"
	"github.com/metrolink-dev/metrolink/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "metrolinkd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		listenPort int
		certFile   string
		keyFile    string
		dbPath     string
		multicast  bool
		debug      bool
	)
	pflag.StringVar(&configPath, "config", "", "YAML config file")
	pflag.IntVar(&listenPort, "port", 0, "TLS listen port (overrides config)")
	pflag.StringVar(&certFile, "cert", "", "server certificate chain (PEM)")
	pflag.StringVar(&keyFile, "key", "", "server private key (PEM)")
	pflag.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	pflag.BoolVar(&multicast, "multicast", false, "enable multicast discovery")
	pflag.BoolVar(&debug, "debug", false, "debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := coordinator.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if listenPort != 0 {
		cfg.ListenPort = listenPort
	}
	if certFile != "" {
		cfg.CertFile = certFile
	}
	if keyFile != "" {
		cfg.KeyFile = keyFile
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if multicast {
		cfg.Multicast.Enabled = true
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return fmt.Errorf("a certificate and key are required (--cert/--key or config file)")
	}

	st, err := store.Open(store.Config{
		Path:     cfg.DatabasePath,
		PoolSize: cfg.PoolSize,
		Clock:    clock.Real(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	c := coordinator.New(cfg, st, clock.Real(), logger)
	if err := c.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	c.Stop()
	return nil
}
