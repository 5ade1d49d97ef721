package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions (timers, locks) stay in this process; the local map is the source of truth.
//   - Redis holds a best-effort mirror of each session's progress under
//     quiz:session:{userID} so operators can see who is mid-quiz. It is not
//     read back after a restart.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[int64]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Start(session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sessions[session.UserID()]
	s.sessions[session.UserID()] = session
	s.mirror(session)
	return prev
}

func (s *SessionStore) Get(userID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Advance(userID int64, correct bool) (*app.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session.Advance(correct)
	s.mirror(session)
	return session, nil
}

func (s *SessionStore) End(userID int64) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	delete(s.sessions, userID)
	_ = s.client.Del(context.Background(), s.key(userID)).Err()
	return session, true
}

// mirror writes the progress snapshot; failures are ignored.
func (s *SessionStore) mirror(session *app.Session) {
	ctx := context.Background()
	key := s.key(session.UserID())
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"test":    session.Test().Code,
		"attempt": session.AttemptID(),
		"index":   session.Index(),
		"correct": session.Correct(),
		"total":   session.Total(),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) key(userID int64) string {
	return "quiz:session:" + strconv.FormatInt(userID, 10)
}
