package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

// ScoreLedger keeps per-quiz scores in a Redis sorted set:
// ZINCRBY quiz:{quizID}:scores 1 {username}
type ScoreLedger struct {
	client *redis.Client
}

func NewScoreLedger(client *redis.Client) *ScoreLedger {
	return &ScoreLedger{client: client}
}

func (l *ScoreLedger) IncrementScore(ctx context.Context, username string, quizID int64) error {
	if err := l.client.ZIncrBy(ctx, l.key(quizID), 1, username).Err(); err != nil {
		return fmt.Errorf("zincrby quiz %d: %w", quizID, err)
	}
	return nil
}

// RankedScores returns entries sorted by score descending, ties broken by
// username ascending. Redis orders equal-score members lexicographically,
// which a reverse range flips, so ties are re-sorted here to keep the
// documented policy.
func (l *ScoreLedger) RankedScores(ctx context.Context, quizID int64) ([]domain.RankEntry, error) {
	members, err := l.client.ZRevRangeWithScores(ctx, l.key(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange quiz %d: %w", quizID, err)
	}

	entries := make([]domain.RankEntry, 0, len(members))
	for _, member := range members {
		username, _ := member.Member.(string)
		entries = append(entries, domain.RankEntry{
			Username: username,
			Score:    int(member.Score),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	return entries, nil
}

func (l *ScoreLedger) key(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":scores"
}
