package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboard(t *testing.T) *Leaderboard {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLeaderboard(rdb)
}

func TestLeaderboardRanksBestFirst(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()
	examID := uuid.New()

	low := uuid.New()
	mid := uuid.New()
	high := uuid.New()
	require.NoError(t, board.Record(ctx, examID, low, 10))
	require.NoError(t, board.Record(ctx, examID, high, 90))
	require.NoError(t, board.Record(ctx, examID, mid, 55))

	entries, err := board.Top(ctx, examID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, high, entries[0].AttemptID)
	assert.Equal(t, 90.0, entries[0].Score)
	assert.Equal(t, mid, entries[1].AttemptID)
	assert.Equal(t, low, entries[2].AttemptID)
}

func TestLeaderboardRecordOverwritesScore(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()
	examID := uuid.New()
	attemptID := uuid.New()

	require.NoError(t, board.Record(ctx, examID, attemptID, 20))
	require.NoError(t, board.Record(ctx, examID, attemptID, 35))

	entries, err := board.Top(ctx, examID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "re-recording must not duplicate the member")
	assert.Equal(t, 35.0, entries[0].Score)
}

func TestLeaderboardHonorsLimit(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()
	examID := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, board.Record(ctx, examID, uuid.New(), float64(i)))
	}

	entries, err := board.Top(ctx, examID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 4.0, entries[0].Score)
}

func TestLeaderboardIsolatedPerExam(t *testing.T) {
	board := newTestLeaderboard(t)
	ctx := context.Background()

	examA := uuid.New()
	examB := uuid.New()
	require.NoError(t, board.Record(ctx, examA, uuid.New(), 50))

	entries, err := board.Top(ctx, examB, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
