// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"time"

	"zombiezen.com/go/sqlite"
)

// Contention retry parameters: 150 ms initial delay, doubling per
// attempt, at most 8 attempts. Together with IMMEDIATE transactions
// this serializes concurrent reservations on the same vehicle without
// any application-level per-URI lock.
const (
	retryInitialDelay = 150 * time.Millisecond
	retryMaxAttempts  = 8
)

// withRetry runs op, retrying with exponential back-off while it fails
// with a transient contention code. Any other error, or exhaustion of
// the attempt budget, surfaces to the caller.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	delay := retryInitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil || !isBusy(err) || attempt == retryMaxAttempts {
			return err
		}
		s.logger.Debug("database busy, backing off",
			"attempt", attempt,
			"delay", delay,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(delay):
		}
		delay *= 2
	}
}

// isBusy reports whether err is SQLite's transient contention signal.
func isBusy(err error) bool {
	switch sqlite.ErrCode(err).ToPrimary() {
	case sqlite.ResultBusy, sqlite.ResultLocked:
		return true
	}
	return false
}

// isConstraint reports whether err is a uniqueness or foreign key
// violation.
func isConstraint(err error) bool {
	return sqlite.ErrCode(err).ToPrimary() == sqlite.ResultConstraint
}
