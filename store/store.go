// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/metrolink-dev/metrolink/lib/clock"
	"github.com/metrolink-dev/metrolink/lib/sqlitepool"
)

// timestampLayout is how every timestamp column is rendered. Matches
// the databases written by earlier builds.
const timestampLayout = "2006-01-02 15:04:05"

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// PoolSize is the connection pool size. Zero means the pool
	// default.
	PoolSize int

	// Clock provides timestamps and the back-off sleep. Required.
	Clock clock.Clock

	// Logger receives operational messages. Nil discards.
	Logger *slog.Logger
}

// Store exposes typed persistence over the connection pool. Safe for
// concurrent use: every operation takes its own pooled connection.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger

	ticketCounter atomic.Int64
}

// Open opens the database, applies the schema, and returns the store.
// The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: Path is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("store: Clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, databaseSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	return &Store{pool: pool, clock: cfg.Clock, logger: logger}, nil
}

// Close closes the underlying pool. Blocks until all borrowed
// connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// now returns the current time truncated to the timestamp column
// resolution.
func (s *Store) now() time.Time {
	return s.clock.Now().Truncate(time.Second)
}

// formatTime renders a timestamp column value.
func formatTime(t time.Time) string {
	return t.Format(timestampLayout)
}

// parseTime reads a timestamp column value. Unparseable and empty
// values yield the zero time; timestamp columns are informational, not
// keys.
func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// withConn runs fn with a pooled connection.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// withTx runs fn inside an IMMEDIATE transaction on a pooled
// connection, retrying the whole transaction with back-off when SQLite
// reports contention. fn must be safe to re-run from scratch.
func (s *Store) withTx(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	return s.withRetry(ctx, func() error {
		conn, err := s.pool.Take(ctx)
		if err != nil {
			return err
		}
		defer s.pool.Put(conn)

		endTx, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		err = fn(conn)
		endTx(&err)
		return err
	})
}
