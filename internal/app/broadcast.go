package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/stream"
)

type joinedAdminPayload struct {
	PIN int `json:"pin"`
}

type joinedPayload struct {
	Message string `json:"message"`
}

// adminQuestionPayload carries the answer key material: the full choice
// number to text mapping. Admin connections only.
type adminQuestionPayload struct {
	Question string         `json:"question"`
	Answers  map[int]string `json:"answers"`
}

// participantQuestionPayload exposes ordinal choice positions 1..n only;
// participants never see answer identity.
type participantQuestionPayload struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answers  []int  `json:"answers"`
}

type rankingPayload struct {
	Ranking []domain.RankEntry `json:"ranking"`
}

type userRankPayload struct {
	Username string `json:"username"`
	Rank     int    `json:"rank"`
}

func adminQuestionData(q domain.Question) adminQuestionPayload {
	answers := make(map[int]string, len(q.Answers))
	for _, a := range q.Answers {
		answers[a.No] = a.Content
	}
	return adminQuestionPayload{Question: q.Title, Answers: answers}
}

func participantQuestionData(q domain.Question) participantQuestionPayload {
	numbers := make([]int, len(q.Answers))
	for i := range q.Answers {
		numbers[i] = i + 1
	}
	return participantQuestionPayload{ID: q.ID, Question: q.Title, Answers: numbers}
}

// runAdvance drives the timed question sequence for a session. It runs on
// its own goroutine so the admin's join returns immediately.
func (s *SessionService) runAdvance(session *Session) {
	if !s.wait(session, s.timing.StartDelay) {
		return
	}
	if err := s.advance(context.Background(), session); err != nil {
		log.Printf("advance for quiz %d: %v", session.QuizID, err)
	}
}

// wait sleeps for d unless the session is stopped first. Returns false
// when the session is no longer live.
func (s *SessionService) wait(session *Session, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return session.Live()
	case <-session.Done():
		return false
	}
}

// advance broadcasts each question in order with the configured interval
// between them, then computes and delivers the ranking.
func (s *SessionService) advance(ctx context.Context, session *Session) error {
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return fmt.Errorf("start quiz %d: %w", session.QuizID, err)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("start quiz %d: %w", session.QuizID, domain.ErrNoQuestions)
	}

	session.transition(StateRunning)
	log.Printf("quiz %d running, %d questions", quiz.ID, len(quiz.Questions))

	for i, question := range quiz.Questions {
		if !session.Live() {
			return nil
		}
		session.setQuestion(i + 1)
		s.broadcastQuestion(session, question)
		if !s.wait(session, s.timing.QuestionInterval) {
			return nil
		}
	}

	return s.deliverRanking(ctx, session)
}

// broadcastQuestion fans one question out to the quiz's connections,
// admin payload to the admin connection and participant payload to
// everyone else. A connection whose send fails is deregistered and the
// pass continues for the rest.
func (s *SessionService) broadcastQuestion(session *Session, question domain.Question) {
	adminData := adminQuestionData(question)
	userData := participantQuestionData(question)

	for _, conn := range s.registry.FindByQuizID(session.QuizID) {
		if !session.Live() {
			return
		}
		username, ok := s.registry.UsernameFor(conn)
		if !ok {
			log.Printf("skipping stale connection during quiz %d broadcast", session.QuizID)
			continue
		}
		ev := stream.Event{Name: stream.EventQuestion, Data: userData}
		if username == session.AdminUsername {
			ev.Data = adminData
		}
		if err := conn.Send(ev); err != nil {
			log.Printf("question to %s failed, dropping connection: %v", username, err)
			s.registry.Remove(conn)
		}
	}
}

// deliverRanking sends the full ranking to the admin connection and each
// connection its own 1-based rank, or -1 when it has no score entry.
func (s *SessionService) deliverRanking(ctx context.Context, session *Session) error {
	session.transition(StateRanking)

	rank, err := s.scores.RankedScores(ctx, session.QuizID)
	if err != nil {
		return fmt.Errorf("rank quiz %d: %w", session.QuizID, err)
	}

	conns := s.registry.FindByQuizID(session.QuizID)
	for _, conn := range conns {
		if !session.Live() {
			return nil
		}
		username, ok := s.registry.UsernameFor(conn)
		if !ok || username != session.AdminUsername {
			continue
		}
		ev := stream.Event{Name: stream.EventRanking, Data: rankingPayload{Ranking: rank}}
		if err := conn.Send(ev); err != nil {
			log.Printf("ranking to admin %s failed: %v", username, err)
			s.registry.Remove(conn)
		}
	}

	for _, conn := range conns {
		if !session.Live() {
			return nil
		}
		username, ok := s.registry.UsernameFor(conn)
		if !ok {
			continue
		}
		ev := stream.Event{Name: stream.EventUserRank, Data: userRankPayload{
			Username: username,
			Rank:     rankOf(rank, username),
		}}
		if err := conn.Send(ev); err != nil {
			log.Printf("user-rank to %s failed: %v", username, err)
			s.registry.Remove(conn)
		}
	}
	return nil
}

// rankOf is the 1-based position of username in the ranked list, or -1
// when absent.
func rankOf(rank []domain.RankEntry, username string) int {
	for i, entry := range rank {
		if entry.Username == username {
			return i + 1
		}
	}
	return -1
}

// IsNotFound reports whether err represents a missing quiz, question, or
// session rather than an internal failure.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrQuizNotFound) ||
		errors.Is(err, domain.ErrQuestionNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound)
}
