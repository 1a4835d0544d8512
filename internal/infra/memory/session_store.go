package memory

import (
	"sync"

	"live-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionStore. The
// store lock serializes PIN assignment against in-flight join validation.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, replaced := s.sessions[session.QuizID]
	s.sessions[session.QuizID] = session
	return prev, replaced
}

func (s *SessionStore) Get(quizID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[quizID]
	return session, ok
}

func (s *SessionStore) Delete(quizID int64) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[quizID]
	if ok {
		delete(s.sessions, quizID)
	}
	return session, ok
}
