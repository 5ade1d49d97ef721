package memory

import (
	"sync"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRegistry.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Start(session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.sessions[session.UserID()]
	s.sessions[session.UserID()] = session
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
	return session, nil
}

func (s *SessionStore) End(userID int64) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	return session, ok
}

// Len reports the number of running sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
