package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/ujione-id/ujione-backend/internal/config"
)

// LeaderboardEntry is one ranked attempt on an exam's live leaderboard.
type LeaderboardEntry struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	Score     float64   `json:"score"`
}

// Leaderboard keeps live per-exam scores in a Redis sorted set. Both running
// and finished attempts stay on the board; every score recomputation
// overwrites the member's score.
type Leaderboard struct {
	rdb *redis.Client
}

// NewLeaderboard creates a Leaderboard backed by the given Redis client.
func NewLeaderboard(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

// Record upserts an attempt's score on its exam's board.
func (l *Leaderboard) Record(ctx context.Context, examID, attemptID uuid.UUID, score float64) error {
	key := config.CacheKey.ExamLeaderboardKey(examID.String())
	if err := l.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: attemptID.String()}).Err(); err != nil {
		return fmt.Errorf("zadd leaderboard: %w", err)
	}
	return nil
}

// Top returns the highest-scoring attempts for an exam, best first.
func (l *Leaderboard) Top(ctx context.Context, examID uuid.UUID, limit int) ([]LeaderboardEntry, error) {
	key := config.CacheKey.ExamLeaderboardKey(examID.String())
	zs, err := l.rdb.ZRevRangeWithScores(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{AttemptID: id, Score: z.Score})
	}
	return entries, nil
}
