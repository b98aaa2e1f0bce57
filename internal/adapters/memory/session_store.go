// Package memory contains in-process adapter implementations.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/fleetbot/internal/core/session"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/telemetry"
)

// SessionStore implements secondary.SessionStore with idle expiry.
// A session idle for longer than ttl is invisible to Get and removed by Sweep.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

var _ secondary.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store. A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[string]*session.Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *SessionStore) expired(sess *session.Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.UpdatedAt) > s.ttl
}

// Get returns the live session for a sender.
func (s *SessionStore) Get(ctx context.Context, senderID string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[senderID]
	if !ok {
		return nil, false
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, senderID)
		telemetry.ActiveSessions.Set(float64(len(s.sessions)))
		return nil, false
	}
	return sess, true
}

// Set stores a session and refreshes its activity time.
func (s *SessionStore) Set(ctx context.Context, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Touch(s.now())
	s.sessions[sess.SenderID] = sess
	telemetry.ActiveSessions.Set(float64(len(s.sessions)))
}

// Delete drops a sender's session.
func (s *SessionStore) Delete(ctx context.Context, senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, senderID)
	telemetry.ActiveSessions.Set(float64(len(s.sessions)))
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	telemetry.ActiveSessions.Set(float64(len(s.sessions)))
	return n
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired idle sessions", "count", n)
			}
		}
	}
}
