package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/domain"
)

// ScoreLedger keeps per-quiz scores in process memory.
type ScoreLedger struct {
	mu     sync.RWMutex
	scores map[int64]map[string]int
}

func NewScoreLedger() *ScoreLedger {
	return &ScoreLedger{scores: make(map[int64]map[string]int)}
}

func (l *ScoreLedger) IncrementScore(_ context.Context, username string, quizID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scores[quizID] == nil {
		l.scores[quizID] = make(map[string]int)
	}
	l.scores[quizID][username]++
	return nil
}

// RankedScores returns entries sorted by score descending, ties broken by
// username ascending.
func (l *ScoreLedger) RankedScores(_ context.Context, quizID int64) ([]domain.RankEntry, error) {
	l.mu.RLock()
	entries := make([]domain.RankEntry, 0, len(l.scores[quizID]))
	for username, score := range l.scores[quizID] {
		entries = append(entries, domain.RankEntry{Username: username, Score: score})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	return entries, nil
}
