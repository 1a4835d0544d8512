package domain

// Answer is one selectable choice within a question. No is the choice
// number participants submit; Correct marks the answer key.
type Answer struct {
	No      int    `json:"no"`
	Content string `json:"content"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question. Answer choice numbers are unique within
// a question and exactly one answer should be marked correct; violations
// are surfaced by the answer validator rather than assumed away.
type Question struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Answers []Answer `json:"answers"`
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// RankEntry is one row of a quiz ranking: score descending, ties broken
// by username ascending.
type RankEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// QuestionView is the display projection of a question: choice numbers and
// text only, never the answer key.
type QuestionView struct {
	ID      int64          `json:"id"`
	Title   string         `json:"title"`
	Answers map[int]string `json:"answers"`
}

// QuizView is the display projection of a quiz.
type QuizView struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

// View strips the answer keys from a quiz for display purposes.
func (q Quiz) View() QuizView {
	questions := make([]QuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		answers := make(map[int]string, len(question.Answers))
		for _, answer := range question.Answers {
			answers[answer.No] = answer.Content
		}
		questions = append(questions, QuestionView{
			ID:      question.ID,
			Title:   question.Title,
			Answers: answers,
		})
	}
	return QuizView{ID: q.ID, Title: q.Title, Questions: questions}
}
