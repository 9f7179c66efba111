package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/repository"
)

type fakeLister struct {
	running []repository.RunningAttempt
	err     error
}

func (f *fakeLister) ListRunning(context.Context) ([]repository.RunningAttempt, error) {
	return f.running, f.err
}

type finishCall struct {
	attemptID  uuid.UUID
	finishedAt time.Time
}

type fakeFinisher struct {
	mu    sync.Mutex
	calls []finishCall
	fail  map[uuid.UUID]error
}

func (f *fakeFinisher) Finish(_ context.Context, attemptID uuid.UUID, finishedAt *time.Time) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[attemptID]; err != nil {
		return nil, err
	}
	f.calls = append(f.calls, finishCall{attemptID: attemptID, finishedAt: *finishedAt})
	return &model.Attempt{ID: attemptID, Status: model.AttemptStatusFinished, FinishedAt: finishedAt}, nil
}

func TestSweepOnceFinishesExpiredAtDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-90 * time.Minute)

	expired := uuid.New()
	lister := &fakeLister{running: []repository.RunningAttempt{
		{AttemptID: expired, StartTime: start, DurationMinutes: 60},
	}}
	finisher := &fakeFinisher{}

	sweeper := NewSweeper(lister, finisher, zerolog.Nop(), func() time.Time { return now })
	sweeper.SweepOnce(context.Background())

	require.Len(t, finisher.calls, 1)
	assert.Equal(t, expired, finisher.calls[0].attemptID)
	assert.Equal(t, start.Add(60*time.Minute), finisher.calls[0].finishedAt,
		"the recorded finish moment is the deadline, not the sweep time")
}

func TestSweepOnceRespectsScheduledEnd(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-30 * time.Minute)
	end := now.Add(-10 * time.Minute)

	capped := uuid.New()
	lister := &fakeLister{running: []repository.RunningAttempt{
		{AttemptID: capped, StartTime: start, DurationMinutes: 60, ScheduledEnd: &end},
	}}
	finisher := &fakeFinisher{}

	sweeper := NewSweeper(lister, finisher, zerolog.Nop(), func() time.Time { return now })
	sweeper.SweepOnce(context.Background())

	require.Len(t, finisher.calls, 1)
	assert.Equal(t, end, finisher.calls[0].finishedAt,
		"the global window, not the personal budget, set this deadline")
}

func TestSweepOnceLeavesRunningAttemptsAlone(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	lister := &fakeLister{running: []repository.RunningAttempt{
		{AttemptID: uuid.New(), StartTime: now.Add(-30 * time.Minute), DurationMinutes: 60},
	}}
	finisher := &fakeFinisher{}

	sweeper := NewSweeper(lister, finisher, zerolog.Nop(), func() time.Time { return now })
	sweeper.SweepOnce(context.Background())

	assert.Empty(t, finisher.calls)
}

func TestSweepOnceContinuesPastFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Hour)

	failing := uuid.New()
	running := []repository.RunningAttempt{
		{AttemptID: failing, StartTime: start, DurationMinutes: 60},
	}
	var healthy []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.New()
		healthy = append(healthy, id)
		running = append(running, repository.RunningAttempt{
			AttemptID: id, StartTime: start, DurationMinutes: 60,
		})
	}

	lister := &fakeLister{running: running}
	finisher := &fakeFinisher{fail: map[uuid.UUID]error{failing: errors.New("db down")}}

	sweeper := NewSweeper(lister, finisher, zerolog.Nop(), func() time.Time { return now })
	sweeper.SweepOnce(context.Background())

	require.Len(t, finisher.calls, 5, "one failure must not block the rest of the batch")
	for i, id := range healthy {
		assert.Equal(t, id, finisher.calls[i].attemptID)
	}
}

func TestSweepOnceListFailureIsNonFatal(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	finisher := &fakeFinisher{}

	sweeper := NewSweeper(lister, finisher, zerolog.Nop(), nil)
	sweeper.SweepOnce(context.Background())

	assert.Empty(t, finisher.calls)
}
