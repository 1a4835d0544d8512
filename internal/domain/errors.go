package domain

import "errors"

var (
	// ErrInvalidInput is returned when a required identifier is missing.
	ErrInvalidInput = errors.New("missing required input")
	// ErrSessionNotFound is returned when no live session exists for a quiz.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidPIN is returned when a join PIN does not match the session's.
	ErrInvalidPIN = errors.New("invalid pin")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates a quiz has no questions to broadcast.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrAmbiguousAnswer flags a question with more than one answer marked
	// correct; such a question is unanswerable until the data is fixed.
	ErrAmbiguousAnswer = errors.New("question has multiple correct answers")
)
