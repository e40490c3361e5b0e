package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/procdata/rationalizer/internal/schema"
)

// ErrTooManySessions is returned when the session cap is reached.
var ErrTooManySessions = errors.New("session limit reached")

// Service owns the synonym registry and the set of live sessions.
type Service struct {
	reg         *schema.Registry
	maxSessions int
	idleTTL     time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a Service with the given session cap and idle TTL.
func NewService(maxSessions int, idleTTL time.Duration) *Service {
	return &Service{
		reg:         schema.NewRegistry(),
		maxSessions: maxSessions,
		idleTTL:     idleTTL,
		sessions:    make(map[string]*Session),
	}
}

// CreateSession registers a new session and returns it.
func (s *Service) CreateSession() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, ErrTooManySessions
	}

	sess := newSession(uuid.New().String(), s.reg)
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Session looks up a session by ID.
func (s *Service) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	return sess, ok
}

// RemoveSession drops a session. Safe to call for unknown IDs.
func (s *Service) RemoveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor periodically expires sessions idle past the TTL.
// It blocks until ctx is cancelled; run it in a goroutine.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireIdle()
		}
	}
}

func (s *Service) expireIdle() {
	if s.idleTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			slog.Info("session expired", "session_id", id)
		}
	}
}
