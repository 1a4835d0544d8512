package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"live-quiz-service/internal/domain"
)

// CheckAnswer reports whether choice is the correct answer for a question.
// Absent arguments, an unknown quiz, or an unknown question all yield
// false without an error. A question with no correct answer is
// unanswerable; one with several correct answers is a data-integrity
// violation and is rejected with ErrAmbiguousAnswer instead of silently
// matching one of them.
func (s *SessionService) CheckAnswer(ctx context.Context, quizID, questionID int64, choice int) (bool, error) {
	if quizID == 0 || questionID == 0 || choice == 0 {
		return false, nil
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check answer for quiz %d: %w", quizID, err)
	}

	var question *domain.Question
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			question = &quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return false, nil
	}

	var correct *domain.Answer
	for i := range question.Answers {
		if !question.Answers[i].Correct {
			continue
		}
		if correct != nil {
			return false, fmt.Errorf("question %d in quiz %d: %w", questionID, quizID, domain.ErrAmbiguousAnswer)
		}
		correct = &question.Answers[i]
	}
	if correct == nil {
		return false, nil
	}
	return correct.No == choice, nil
}

// SubmitAnswer validates a submission and, when correct, credits the user
// in the score ledger.
func (s *SessionService) SubmitAnswer(ctx context.Context, quizID int64, username string, questionID int64, choice int) (bool, error) {
	if username == "" {
		return false, nil
	}
	correct, err := s.CheckAnswer(ctx, quizID, questionID, choice)
	if err != nil {
		return false, err
	}
	if !correct {
		return false, nil
	}
	if err := s.scores.IncrementScore(ctx, username, quizID); err != nil {
		return true, fmt.Errorf("increment score for %s in quiz %d: %w", username, quizID, err)
	}
	log.Printf("correct answer by %s for question %d in quiz %d", username, questionID, quizID)
	return true, nil
}
