package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quizmaster-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions themselves stay in a local map so timers and broadcasts run
// in-process. Redis reserves the pin (SETNX with TTL) so instances sharing
// the same Redis never hand out the same pin twice.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	timeout  time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

var _ app.SessionRepository = (*SessionStore)(nil)

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		timeout:  2 * time.Second,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Insert(pin string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[pin]; taken {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	reserved, err := s.client.SetNX(ctx, s.key(pin), session.HostRef(), s.ttl).Result()
	if err != nil {
		// redis down: fall back to local uniqueness only
		slog.Warn("pin reservation failed", "pin", pin, "err", err)
	} else if !reserved {
		return false
	}
	s.sessions[pin] = session
	return true
}

func (s *SessionStore) Get(pin string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[pin]
	return session, ok
}

func (s *SessionStore) CompareAndDelete(pin string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[pin]; !ok || current != session {
		return false
	}
	delete(s.sessions, pin)
	s.release(pin)
	return true
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// best-effort; the TTL reclaims the key if this fails
func (s *SessionStore) release(pin string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(pin)).Err(); err != nil {
		slog.Warn("pin release failed", "pin", pin, "err", err)
	}
}

func (s *SessionStore) key(pin string) string {
	return "quiz:session:" + pin
}
