package app

import (
	"context"
	"sync"
)

// State is the lifecycle phase of a live session.
type State int

const (
	StateCreated State = iota
	StateOpenForJoin
	StateRunning
	StateRanking
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpenForJoin:
		return "open-for-join"
	case StateRunning:
		return "running"
	case StateRanking:
		return "ranking"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is one live run of a quiz, gated by a PIN. The PIN and admin
// identity are fixed at creation; only the lifecycle state mutates.
type Session struct {
	QuizID        int64
	PIN           int
	AdminUsername string

	mu       sync.Mutex
	state    State
	question int
	started  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession is exported for infrastructure layers that need to seed
// sessions directly.
func NewSession(quizID int64, pin int, admin string) *Session {
	s := newSession(quizID, pin, admin)
	s.transition(StateOpenForJoin)
	return s
}

func newSession(quizID int64, pin int, admin string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		QuizID:        quizID,
		PIN:           pin,
		AdminUsername: admin,
		state:         StateCreated,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentQuestion is the 1-based index of the question being broadcast,
// or 0 outside the running phase.
func (s *Session) CurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = next
	if next != StateRunning {
		s.question = 0
	}
}

func (s *Session) setQuestion(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		s.question = i
	}
}

// tryStart claims the right to run the advance loop. Only the first
// admin join starts it; an admin reconnect mid-run must not spawn a
// second loop.
func (s *Session) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.state == StateClosed {
		return false
	}
	s.started = true
	return true
}

// Live reports whether the session may still send to its connections.
// The advance loop checks this before every send.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateClosed
}

// Done is closed when the session is stopped; the advance loop selects on
// it while waiting between questions.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops the session. Idempotent and safe to call concurrently with
// an in-flight advance loop.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.question = 0
	s.mu.Unlock()
	s.cancel()
}
