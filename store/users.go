// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/metrolink-dev/metrolink/schema"
)

// HashPIN returns the bcrypt hash of a rider's PIN for storage in the
// pin_hash column.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("store: hashing pin: %w", err)
	}
	return string(hash), nil
}

// RegisterUser inserts a new rider. Returns ErrUserExists when the URN
// is already registered.
func (s *Store) RegisterUser(ctx context.Context, user schema.User) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO users (urn, name, age, registration_date, active, pin_hash)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					user.URN,
					user.Name,
					user.Age,
					formatTime(user.RegistrationDate),
					boolInt(user.Active),
					user.PINHash,
				},
			})
		if err != nil {
			if isConstraint(err) {
				return ErrUserExists
			}
			return fmt.Errorf("store: register user %s: %w", user.URN, err)
		}
		return nil
	})
}

// User returns the rider with the given URN, or ErrUserNotFound.
func (s *Store) User(ctx context.Context, urn string) (*schema.User, error) {
	var user *schema.User
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT urn, name, age, registration_date, active, pin_hash
			 FROM users WHERE urn = ?`,
			&sqlitex.ExecOptions{
				Args: []any{urn},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					user = scanUser(stmt)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: get user %s: %w", urn, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UserExists reports whether a rider with the given URN is registered.
func (s *Store) UserExists(ctx context.Context, urn string) (bool, error) {
	exists := false
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT 1 FROM users WHERE urn = ? LIMIT 1",
			&sqlitex.ExecOptions{
				Args: []any{urn},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					exists = true
					return nil
				},
			})
	})
	if err != nil {
		return false, fmt.Errorf("store: user exists %s: %w", urn, err)
	}
	return exists, nil
}

// Authenticate verifies a rider's PIN against the stored bcrypt hash.
// Riders registered without a PIN (empty hash) authenticate by URN
// alone.
func (s *Store) Authenticate(ctx context.Context, urn, pin string) (bool, error) {
	user, err := s.User(ctx, urn)
	if err != nil {
		return false, err
	}
	if user.PINHash == "" {
		return pin == "", nil
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(pin))
	return compareErr == nil, nil
}

// DeleteUser removes a rider. Returns ErrUserNotFound when no row was
// deleted. Admin gating happens in the coordinator; the store just
// deletes.
func (s *Store) DeleteUser(ctx context.Context, urn string) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"DELETE FROM users WHERE urn = ?",
			&sqlitex.ExecOptions{Args: []any{urn}})
		if err != nil {
			return fmt.Errorf("store: delete user %s: %w", urn, err)
		}
		if conn.Changes() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// AllUsers returns every registered rider.
func (s *Store) AllUsers(ctx context.Context) ([]schema.User, error) {
	var users []schema.User
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT urn, name, age, registration_date, active, pin_hash FROM users",
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					users = append(users, *scanUser(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: all users: %w", err)
	}
	return users, nil
}

// scanUser reads a user row in the canonical column order.
func scanUser(stmt *sqlite.Stmt) *schema.User {
	return &schema.User{
		URN:              stmt.ColumnText(0),
		Name:             stmt.ColumnText(1),
		Age:              stmt.ColumnInt(2),
		RegistrationDate: parseTime(stmt.ColumnText(3)),
		Active:           stmt.ColumnInt(4) != 0,
		PINHash:          stmt.ColumnText(5),
	}
}

// boolInt renders a boolean for a BOOLEAN column.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
