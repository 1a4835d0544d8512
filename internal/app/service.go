package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/stream"
)

// SessionStore abstracts how live sessions are stored (in-memory, Redis, etc).
type SessionStore interface {
	// Put stores the session for its quiz ID and returns the session it
	// replaced, if any.
	Put(session *Session) (*Session, bool)
	Get(quizID int64) (*Session, bool)
	// Delete removes and returns the session for quizID, if present.
	Delete(quizID int64) (*Session, bool)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// ScoreLedger accumulates per-user scores and serves them ranked.
type ScoreLedger interface {
	IncrementScore(ctx context.Context, username string, quizID int64) error
	// RankedScores returns entries sorted by score descending, ties broken
	// by username ascending.
	RankedScores(ctx context.Context, quizID int64) ([]domain.RankEntry, error)
}

// Timing controls the advance loop schedule. Zero values fall back to the
// reference behavior: 2s before the first question, 10s between questions.
type Timing struct {
	StartDelay       time.Duration
	QuestionInterval time.Duration
}

func (t Timing) withDefaults() Timing {
	if t.StartDelay <= 0 {
		t.StartDelay = 2 * time.Second
	}
	if t.QuestionInterval <= 0 {
		t.QuestionInterval = 10 * time.Second
	}
	return t
}

// SessionService owns PIN issuance, join validation, the question-advance
// loop, and ranking delivery.
type SessionService struct {
	sessions SessionStore
	quizzes  QuizRepository
	scores   ScoreLedger
	registry *stream.Registry
	timing   Timing
	newPIN   func() int
}

func NewSessionService(store SessionStore, quizzes QuizRepository, scores ScoreLedger, registry *stream.Registry, timing Timing) *SessionService {
	return &SessionService{
		sessions: store,
		quizzes:  quizzes,
		scores:   scores,
		registry: registry,
		timing:   timing.withDefaults(),
		newPIN:   randomPIN,
	}
}

// NewSessionServiceWithPIN is test-only for deterministic PIN issuance.
func NewSessionServiceWithPIN(store SessionStore, quizzes QuizRepository, scores ScoreLedger, registry *stream.Registry, timing Timing, newPIN func() int) *SessionService {
	s := NewSessionService(store, quizzes, scores, registry, timing)
	s.newPIN = newPIN
	return s
}

// randomPIN draws a 4-digit PIN in [1000, 9999].
func randomPIN() int {
	return rand.Intn(9000) + 1000
}

// Create opens a session for quizID and performs the admin's own join, so
// the admin is always the first registered connection. An empty username
// falls back to a generated guest identity. The quiz must exist; a missing
// quiz aborts creation entirely. The returned Conn is the admin's
// registered connection.
func (s *SessionService) Create(ctx context.Context, quizID int64, username string, emitter stream.Emitter) (*Session, *stream.Conn, error) {
	if quizID == 0 {
		return nil, nil, fmt.Errorf("create session: %w", domain.ErrInvalidInput)
	}
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, fmt.Errorf("create session for quiz %d: %w", quizID, err)
	}

	admin := username
	if admin == "" {
		admin = "admin-" + uuid.NewString()[:8]
		log.Printf("no identity supplied for quiz %d; assigned guest admin %s", quizID, admin)
	}

	session := newSession(quizID, s.newPIN(), admin)
	session.transition(StateOpenForJoin)
	log.Printf("pin %d issued for quiz %d (admin %s)", session.PIN, quizID, admin)

	if prev, replaced := s.sessions.Put(session); replaced {
		// One session per quiz at a time: a re-create supersedes the old
		// run and regenerates the PIN.
		log.Printf("replacing live session for quiz %d", quizID)
		prev.Close()
		s.registry.ClearByQuizID(quizID)
	}

	conn, err := s.Join(ctx, quizID, admin, session.PIN, emitter)
	if err != nil {
		// The admin never came up, so the session must not linger
		// open-for-join with a PIN nobody holds.
		if stored, ok := s.sessions.Delete(quizID); ok {
			stored.Close()
		}
		s.registry.ClearByQuizID(quizID)
		return nil, nil, err
	}
	return session, conn, nil
}

// Join validates the PIN, registers the connection, and confirms the join
// with a role-specific event. The admin's join schedules the advance loop;
// the call itself returns immediately.
func (s *SessionService) Join(_ context.Context, quizID int64, username string, pin int, emitter stream.Emitter) (*stream.Conn, error) {
	if quizID == 0 || username == "" || pin == 0 {
		return nil, fmt.Errorf("join quiz %d: %w", quizID, domain.ErrInvalidInput)
	}
	session, ok := s.sessions.Get(quizID)
	if !ok || session.PIN != pin {
		return nil, fmt.Errorf("join quiz %d as %s: %w", quizID, username, domain.ErrInvalidPIN)
	}

	conn := s.registry.Register(quizID, username, pin, emitter)

	joined := stream.Event{Name: stream.EventJoined, Data: joinedPayload{Message: "join complete, username: " + username}}
	if username == session.AdminUsername {
		joined.Data = joinedAdminPayload{PIN: session.PIN}
	}
	if err := conn.Send(joined); err != nil {
		log.Printf("joined event to %s failed: %v", username, err)
		s.registry.Remove(conn)
		return nil, err
	}

	if username == session.AdminUsername && session.tryStart() {
		go s.runAdvance(session)
	}
	return conn, nil
}

// Stop tears the session down: no further scheduled sends take effect and
// every connection for the quiz is closed. Idempotent.
func (s *SessionService) Stop(quizID int64) {
	if session, ok := s.sessions.Delete(quizID); ok {
		session.Close()
	}
	s.registry.ClearByQuizID(quizID)
	log.Printf("stopped session for quiz %d", quizID)
}

// Session returns the live session for a quiz, if any.
func (s *SessionService) Session(quizID int64) (*Session, bool) {
	return s.sessions.Get(quizID)
}

// Snapshot is a read-only display projection of the quiz definition; it
// never exposes the answer keys.
func (s *SessionService) Snapshot(ctx context.Context, quizID int64) (domain.QuizView, error) {
	if quizID == 0 {
		return domain.QuizView{}, domain.ErrInvalidInput
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	return quiz.View(), nil
}
