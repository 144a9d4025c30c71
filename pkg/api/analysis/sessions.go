package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"outpatient_capacity/pkg/core/pipeline"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

type session struct {
	ctx       pipeline.AnalysisContext
	updatedAt time.Time
}

// SessionStore keeps each browser session's current AnalysisContext. Stored values are
// immutable; an update swaps in the step's new context.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*session), now: time.Now}
}

// Put stores c under its own ID.
func (s *SessionStore) Put(c pipeline.AnalysisContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.ID] = &session{ctx: c, updatedAt: s.now()}
}

// Get returns the current context of a session.
func (s *SessionStore) Get(id uuid.UUID) (pipeline.AnalysisContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return pipeline.AnalysisContext{}, ErrSessionNotFound
	}
	return sess.ctx, nil
}

// Update runs step against the session's context and stores the result. The lock is
// held for the step so concurrent requests on one session apply in order.
func (s *SessionStore) Update(id uuid.UUID, step func(pipeline.AnalysisContext) (pipeline.AnalysisContext, error)) (pipeline.AnalysisContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return pipeline.AnalysisContext{}, ErrSessionNotFound
	}
	next, err := step(sess.ctx)
	if err != nil {
		return sess.ctx, err
	}
	sess.ctx = next
	sess.updatedAt = s.now()
	return next, nil
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions idle for longer than maxAge and returns how many went.
func (s *SessionStore) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxAge)
	n := 0
	for id, sess := range s.sessions {
		if sess.updatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Janitor prunes every interval until ctx is done.
func (s *SessionStore) Janitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(maxAge)
		}
	}
}
