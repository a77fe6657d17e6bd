// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/metrolink-dev/metrolink/schema"
)

// CreateGroup inserts a group and its leader's membership row in one
// transaction, keeping the leader-is-active-member invariant from the
// first commit. Returns the new group id, ErrGroupExists on a name
// collision.
func (s *Store) CreateGroup(ctx context.Context, name, leaderURN string) (int64, error) {
	var groupID int64
	err := s.withTx(ctx, func(conn *sqlite.Conn) error {
		now := formatTime(s.now())
		err := sqlitex.Execute(conn,
			`INSERT INTO groups (group_name, leader_urn, creation_date, active)
			 VALUES (?, ?, ?, 1)`,
			&sqlitex.ExecOptions{Args: []any{name, leaderURN, now}})
		if err != nil {
			if isConstraint(err) {
				return ErrGroupExists
			}
			return fmt.Errorf("insert group: %w", err)
		}
		groupID = conn.LastInsertRowID()

		err = sqlitex.Execute(conn,
			`INSERT INTO group_members (group_id, member_urn, join_date, active)
			 VALUES (?, ?, ?, 1)`,
			&sqlitex.ExecOptions{Args: []any{groupID, leaderURN, now}})
		if err != nil {
			return fmt.Errorf("insert leader membership: %w", err)
		}
		return nil
	})
	if err != nil {
		if err == ErrGroupExists {
			return 0, err
		}
		return 0, fmt.Errorf("store: create group %s: %w", name, err)
	}
	return groupID, nil
}

// GroupIDByName resolves an active group's id, or ErrGroupNotFound.
func (s *Store) GroupIDByName(ctx context.Context, name string) (int64, error) {
	var groupID int64
	found := false
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT group_id FROM groups WHERE group_name = ? AND active = 1 LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{name},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					groupID = stmt.ColumnInt64(0)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("store: group id %s: %w", name, err)
	}
	if !found {
		return 0, ErrGroupNotFound
	}
	return groupID, nil
}

// GroupLeader returns the leader URN of an active group, or
// ErrGroupNotFound.
func (s *Store) GroupLeader(ctx context.Context, name string) (string, error) {
	leader := ""
	found := false
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT leader_urn FROM groups WHERE group_name = ? AND active = 1 LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{name},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					leader = stmt.ColumnText(0)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return "", fmt.Errorf("store: group leader %s: %w", name, err)
	}
	if !found || leader == "" {
		return "", ErrGroupNotFound
	}
	return leader, nil
}

// AddMember adds a rider to a group. An active membership fails with
// ErrAlreadyInGroup; an inactive one is reactivated with a fresh join
// date; otherwise a new active row is inserted. The check and write
// share one transaction.
func (s *Store) AddMember(ctx context.Context, urn, groupName string) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		exists := false
		err := sqlitex.Execute(conn,
			"SELECT 1 FROM users WHERE urn = ? LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{urn},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					exists = true
					return nil
				},
			})
		if err != nil {
			return fmt.Errorf("store: add member: check user: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}

		var groupID int64
		found := false
		err = sqlitex.Execute(conn,
			"SELECT group_id FROM groups WHERE group_name = ? AND active = 1 LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{groupName},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					groupID = stmt.ColumnInt64(0)
					found = true
					return nil
				},
			})
		if err != nil {
			return fmt.Errorf("store: add member: resolve group: %w", err)
		}
		if !found {
			return ErrGroupNotFound
		}

		memberActive := 0
		haveRow := false
		err = sqlitex.Execute(conn,
			"SELECT active FROM group_members WHERE group_id = ? AND member_urn = ? LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{groupID, urn},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					memberActive = stmt.ColumnInt(0)
					haveRow = true
					return nil
				},
			})
		if err != nil {
			return fmt.Errorf("store: add member: check membership: %w", err)
		}

		now := formatTime(s.now())
		if haveRow {
			if memberActive != 0 {
				return ErrAlreadyInGroup
			}
			err = sqlitex.Execute(conn,
				"UPDATE group_members SET active = 1, join_date = ? WHERE group_id = ? AND member_urn = ?",
				&sqlitex.ExecOptions{Args: []any{now, groupID, urn}})
			if err != nil {
				return fmt.Errorf("store: add member: reactivate: %w", err)
			}
			return nil
		}

		err = sqlitex.Execute(conn,
			"INSERT INTO group_members (group_id, member_urn, join_date, active) VALUES (?, ?, ?, 1)",
			&sqlitex.ExecOptions{Args: []any{groupID, urn, now}})
		if err != nil {
			return fmt.Errorf("store: add member: insert: %w", err)
		}
		return nil
	})
}

// RemoveMember deletes a rider's membership row. Zero rows affected
// fails with ErrNotInGroup.
func (s *Store) RemoveMember(ctx context.Context, urn, groupName string) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		var groupID int64
		found := false
		err := sqlitex.Execute(conn,
			"SELECT group_id FROM groups WHERE group_name = ? AND active = 1 LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{groupName},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					groupID = stmt.ColumnInt64(0)
					found = true
					return nil
				},
			})
		if err != nil {
			return fmt.Errorf("store: remove member: resolve group: %w", err)
		}
		if !found {
			return ErrGroupNotFound
		}

		err = sqlitex.Execute(conn,
			"DELETE FROM group_members WHERE group_id = ? AND member_urn = ?",
			&sqlitex.ExecOptions{Args: []any{groupID, urn}})
		if err != nil {
			return fmt.Errorf("store: remove member: delete: %w", err)
		}
		if conn.Changes() == 0 {
			return ErrNotInGroup
		}
		return nil
	})
}

// GroupMembers returns the membership rows of a group, active and
// inactive.
func (s *Store) GroupMembers(ctx context.Context, groupName string) ([]schema.GroupMember, error) {
	groupID, err := s.GroupIDByName(ctx, groupName)
	if err != nil {
		return nil, err
	}
	var members []schema.GroupMember
	err = s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT group_id, member_urn, join_date, active
			 FROM group_members WHERE group_id = ? ORDER BY member_urn`,
			&sqlitex.ExecOptions{
				Args: []any{groupID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					members = append(members, schema.GroupMember{
						GroupID:   stmt.ColumnInt64(0),
						MemberURN: stmt.ColumnText(1),
						JoinDate:  parseTime(stmt.ColumnText(2)),
						Active:    stmt.ColumnInt(3) != 0,
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: group members %s: %w", groupName, err)
	}
	return members, nil
}
