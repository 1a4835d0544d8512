package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - It still keeps a local in-memory map of sessions: the advance loop
//     and connection registry are in-process, and live sessions are
//     ephemeral by design.
//   - Redis marks session liveness with a TTL key so operators (or a
//     future router) can see which quizzes are running where.
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

func (s *SessionStore) Put(session *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, replaced := s.sessions[session.QuizID]
	s.sessions[session.QuizID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.QuizID), session.PIN, s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(quizID)).Err()
	}
	return session, ok
}

func (s *SessionStore) key(quizID int64) string {
	return "quiz:session:" + strconv.FormatInt(quizID, 10)
}
