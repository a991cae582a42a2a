// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package gravity

import (
	"sync"
	"time"

	"github.com/tomtom215/dualgravity/internal/models"
)

// sessionState is the tracked gravity pair plus bookkeeping for expiry.
type sessionState struct {
	gravities models.PlayerGravities
	updatedAt time.Time
}

// Tracker holds per-session gravity state across turns. Updates are
// atomic read-modify-write under a single lock, which satisfies the
// single-writer-per-turn requirement without per-session goroutines.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	maxAge   time.Duration
}

// NewTracker creates a tracker. Sessions idle longer than maxAge are
// dropped lazily on access; maxAge <= 0 disables expiry.
func NewTracker(maxAge time.Duration) *Tracker {
	return &Tracker{
		sessions: make(map[string]*sessionState),
		maxAge:   maxAge,
	}
}

// Get returns the current gravities for a session, creating the session
// at defaults on first access.
func (t *Tracker) Get(sessionID string) models.PlayerGravities {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked(sessionID).gravities
}

// Apply runs one selection update for the acting player and returns the
// new gravities. The read-modify-write happens under the tracker lock so
// concurrent turns on different sessions never interleave badly.
func (t *Tracker) Apply(sessionID string, category models.SelectionCategory, playerID string) models.PlayerGravities {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateLocked(sessionID)
	st.gravities = Update(st.gravities, category, playerID)
	st.updatedAt = time.Now()
	return st.gravities
}

// Put overwrites a session's gravities, clamping and NaN-sanitizing the
// stored values. Used when a client supplies its own gravity state.
func (t *Tracker) Put(sessionID string, gravities models.PlayerGravities) models.PlayerGravities {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateLocked(sessionID)
	st.gravities = sanitizeAll(gravities)
	st.updatedAt = time.Now()
	return st.gravities
}

// Reset drops a session entirely.
func (t *Tracker) Reset(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// Len returns the number of live sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Tracker) stateLocked(sessionID string) *sessionState {
	st, ok := t.sessions[sessionID]
	if ok && t.maxAge > 0 && time.Since(st.updatedAt) > t.maxAge {
		delete(t.sessions, sessionID)
		ok = false
	}
	if !ok {
		st = &sessionState{
			gravities: models.PlayerGravities{Player1: Default, Player2: Default},
			updatedAt: time.Now(),
		}
		t.sessions[sessionID] = st
	}
	return st
}
