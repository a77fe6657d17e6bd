// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// The active_connections table mirrors the coordinator's live TLS
// connections for operational visibility. Rows are advisory: the
// in-memory registry is authoritative, and stale rows are pruned by
// the session-cleanup loop.

// RecordConnection inserts a row for a freshly accepted connection.
func (s *Store) RecordConnection(ctx context.Context, connectionID, address string, port int) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		now := formatTime(s.now())
		err := sqlitex.Execute(conn,
			`INSERT OR REPLACE INTO active_connections
			 (connection_id, client_address, client_port, user_urn, connect_time, last_activity, authenticated)
			 VALUES (?, ?, ?, NULL, ?, ?, 0)`,
			&sqlitex.ExecOptions{Args: []any{connectionID, address, port, now, now}})
		if err != nil {
			return fmt.Errorf("store: record connection %s: %w", connectionID, err)
		}
		return nil
	})
}

// AuthenticateConnection stamps a connection row with the rider it
// authenticated as.
func (s *Store) AuthenticateConnection(ctx context.Context, connectionID, urn string) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"UPDATE active_connections SET user_urn = ?, authenticated = 1, last_activity = ? WHERE connection_id = ?",
			&sqlitex.ExecOptions{Args: []any{urn, formatTime(s.now()), connectionID}})
		if err != nil {
			return fmt.Errorf("store: authenticate connection %s: %w", connectionID, err)
		}
		return nil
	})
}

// TouchConnection refreshes a connection row's last activity.
func (s *Store) TouchConnection(ctx context.Context, connectionID string) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"UPDATE active_connections SET last_activity = ? WHERE connection_id = ?",
			&sqlitex.ExecOptions{Args: []any{formatTime(s.now()), connectionID}})
		if err != nil {
			return fmt.Errorf("store: touch connection %s: %w", connectionID, err)
		}
		return nil
	})
}

// RemoveConnection deletes a connection row on teardown. Removing an
// unknown id is a no-op.
func (s *Store) RemoveConnection(ctx context.Context, connectionID string) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"DELETE FROM active_connections WHERE connection_id = ?",
			&sqlitex.ExecOptions{Args: []any{connectionID}})
		if err != nil {
			return fmt.Errorf("store: remove connection %s: %w", connectionID, err)
		}
		return nil
	})
}

// PruneConnections deletes rows idle since before cutoff and returns
// how many were removed.
func (s *Store) PruneConnections(ctx context.Context, cutoff time.Time) (int, error) {
	pruned := 0
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"DELETE FROM active_connections WHERE last_activity < ?",
			&sqlitex.ExecOptions{Args: []any{formatTime(cutoff)}})
		if err != nil {
			return fmt.Errorf("store: prune connections: %w", err)
		}
		pruned = conn.Changes()
		return nil
	})
	return pruned, err
}

// ConnectionCount returns the number of tracked connections.
func (s *Store) ConnectionCount(ctx context.Context) (int, error) {
	count := 0
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT COUNT(*) FROM active_connections",
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					count = stmt.ColumnInt(0)
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("store: connection count: %w", err)
	}
	return count, nil
}
