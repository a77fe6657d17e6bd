// Copyright 2026 The Metrolink Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"strconv"
	"sync"
	"time"

	"github.com/metrolink-dev/metrolink/lib/clock"
)

// session is one authenticated rider's server-side state.
type session struct {
	token         string
	urn           string
	authenticated bool
	lastActivity  time.Time
}

// sessionTable holds all live sessions under one mutex. Tokens are
// "session_" plus a monotonic counter; clients carry them in the
// "session_id" body key.
type sessionTable struct {
	clock clock.Clock

	mu       sync.Mutex
	sessions map[string]*session
	counter  int64
}

func newSessionTable(c clock.Clock) *sessionTable {
	return &sessionTable{
		clock:    c,
		sessions: make(map[string]*session),
	}
}

// create mints a token for urn and records the session as
// authenticated with fresh activity.
func (t *sessionTable) create(urn string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter++
	token := "session_" + strconv.FormatInt(t.counter, 10)
	t.sessions[token] = &session{
		token:         token,
		urn:           urn,
		authenticated: true,
		lastActivity:  t.clock.Now(),
	}
	return token
}

// resolve returns the owning URN for a token and refreshes its
// activity. Unknown tokens return ("", false).
func (t *sessionTable) resolve(token string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[token]
	if !ok {
		return "", false
	}
	s.lastActivity = t.clock.Now()
	return s.urn, true
}

// touch refreshes a token's activity without resolving it. Reports
// whether the token exists.
func (t *sessionTable) touch(token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[token]
	if ok {
		s.lastActivity = t.clock.Now()
	}
	return ok
}

// remove deletes a session, as on explicit disconnect.
func (t *sessionTable) remove(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, token)
}

// sweep removes sessions that are unauthenticated or idle past ttl,
// returning how many were removed.
func (t *sessionTable) sweep(ttl time.Duration) int {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for token, s := range t.sessions {
		if !s.authenticated || now.Sub(s.lastActivity) > ttl {
			delete(t.sessions, token)
			removed++
		}
	}
	return removed
}

// count returns the number of live sessions.
func (t *sessionTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
