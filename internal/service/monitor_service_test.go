package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ujione-id/ujione-backend/internal/repository"
)

type staticBoard struct {
	entries []repository.LeaderboardEntry
}

func (b staticBoard) Top(context.Context, uuid.UUID, int) ([]repository.LeaderboardEntry, error) {
	return b.entries, nil
}

func TestMonitorListAttempts(t *testing.T) {
	f := newSessionFixture(t)
	monitor := NewMonitorService(f.attempts, f.exams, staticBoard{}, zerolog.Nop())

	_, err := f.svc.Join(context.Background(), 7, "MATH-01")
	require.NoError(t, err)

	attempts, total, err := monitor.ListAttempts(context.Background(), f.examID, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, attempts, 1)
	assert.Equal(t, 7, attempts[0].ExamineeID)

	_, _, err = monitor.ListAttempts(context.Background(), uuid.New(), 1, 50)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonitorLeaderboardEmptyNotNil(t *testing.T) {
	f := newSessionFixture(t)
	monitor := NewMonitorService(f.attempts, f.exams, staticBoard{}, zerolog.Nop())

	entries, err := monitor.GetLeaderboard(context.Background(), f.examID, 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	_, err = monitor.GetLeaderboard(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonitorVerifyAttemptExam(t *testing.T) {
	f := newSessionFixture(t)
	monitor := NewMonitorService(f.attempts, f.exams, staticBoard{}, zerolog.Nop())

	result, err := f.svc.Join(context.Background(), 7, "MATH-01")
	require.NoError(t, err)
	attemptID := result.Attempt.ID

	assert.NoError(t, monitor.VerifyAttemptExam(context.Background(), attemptID, f.examID))

	// A token minted for another exam must not reach this attempt.
	err = monitor.VerifyAttemptExam(context.Background(), attemptID, uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)

	err = monitor.VerifyAttemptExam(context.Background(), uuid.New(), f.examID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonitorUpdateNotes(t *testing.T) {
	f := newSessionFixture(t)
	monitor := NewMonitorService(f.attempts, f.exams, staticBoard{}, zerolog.Nop())

	result, err := f.svc.Join(context.Background(), 7, "MATH-01")
	require.NoError(t, err)

	require.NoError(t, monitor.UpdateNotes(context.Background(), result.Attempt.ID, "checked by proctor"))

	attempt, err := f.attempts.GetByID(context.Background(), result.Attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, attempt.AdminNotes)
	assert.Equal(t, "checked by proctor", *attempt.AdminNotes)

	err = monitor.UpdateNotes(context.Background(), uuid.New(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
