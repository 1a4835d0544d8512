package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/stream"
)

func newAnswerService(t *testing.T, quizzes map[int64]domain.Quiz) (*app.SessionService, *memory.ScoreLedger) {
	t.Helper()
	scores := memory.NewScoreLedger()
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), 5*time.Minute)
	service := app.NewSessionService(memory.NewSessionStore(), repo, scores, stream.NewRegistry(), app.Timing{})
	return service, scores
}

func TestCheckAnswer(t *testing.T) {
	ctx := context.Background()
	service, _ := newAnswerService(t, testQuizzes())

	cases := []struct {
		name       string
		quizID     int64
		questionID int64
		choice     int
		want       bool
	}{
		{"correct choice", 1, 10, 2, true},
		{"wrong choice", 1, 10, 1, false},
		{"choice not in question", 1, 10, 9, false},
		{"unknown quiz", 999, 10, 2, false},
		{"unknown question", 1, 99, 2, false},
		{"missing quiz id", 0, 10, 2, false},
		{"missing question id", 1, 0, 2, false},
		{"missing choice", 1, 10, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.CheckAnswer(ctx, tc.quizID, tc.questionID, tc.choice)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCheckAnswerDataIntegrity(t *testing.T) {
	ctx := context.Background()
	service, _ := newAnswerService(t, map[int64]domain.Quiz{
		1: {
			ID: 1,
			Questions: []domain.Question{
				{
					ID:    10,
					Title: "No key set",
					Answers: []domain.Answer{
						{No: 1, Content: "a"},
						{No: 2, Content: "b"},
					},
				},
				{
					ID:    11,
					Title: "Two keys set",
					Answers: []domain.Answer{
						{No: 1, Content: "a", Correct: true},
						{No: 2, Content: "b", Correct: true},
					},
				},
			},
		},
	})

	// No correct answer: unanswerable, reported as plain false.
	if got, err := service.CheckAnswer(ctx, 1, 10, 1); err != nil || got {
		t.Fatalf("expected false without error for keyless question, got %v err=%v", got, err)
	}

	// Multiple correct answers: never silently match one of them.
	for choice := 1; choice <= 2; choice++ {
		got, err := service.CheckAnswer(ctx, 1, 11, choice)
		if !errors.Is(err, domain.ErrAmbiguousAnswer) {
			t.Fatalf("expected ambiguous-answer error for choice %d, got %v", choice, err)
		}
		if got {
			t.Fatalf("ambiguous question must not validate choice %d", choice)
		}
	}
}

func TestSubmitAnswerCreditsLedgerOnlyWhenCorrect(t *testing.T) {
	ctx := context.Background()
	service, scores := newAnswerService(t, testQuizzes())

	if correct, err := service.SubmitAnswer(ctx, 1, "bob", 10, 2); err != nil || !correct {
		t.Fatalf("expected correct submission, got %v err=%v", correct, err)
	}
	if correct, err := service.SubmitAnswer(ctx, 1, "bob", 11, 2); err != nil || correct {
		t.Fatalf("expected incorrect submission, got %v err=%v", correct, err)
	}
	if correct, err := service.SubmitAnswer(ctx, 1, "", 10, 2); err != nil || correct {
		t.Fatalf("expected anonymous submission rejected, got %v err=%v", correct, err)
	}

	entries, err := scores.RankedScores(ctx, 1)
	if err != nil {
		t.Fatalf("ranked scores: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "bob" || entries[0].Score != 1 {
		t.Fatalf("expected bob with score 1, got %+v", entries)
	}
}
