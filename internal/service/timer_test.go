package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ujione-id/ujione-backend/internal/model"
)

func TestEffectiveDeadline(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("no scheduled end uses personal deadline", func(t *testing.T) {
		got := EffectiveDeadline(start, 60, nil)
		assert.Equal(t, start.Add(60*time.Minute), got)
	})

	t.Run("earlier scheduled end caps the deadline", func(t *testing.T) {
		end := start.Add(30 * time.Minute)
		got := EffectiveDeadline(start, 60, &end)
		assert.Equal(t, end, got)
	})

	t.Run("later scheduled end does not extend the deadline", func(t *testing.T) {
		end := start.Add(3 * time.Hour)
		got := EffectiveDeadline(start, 60, &end)
		assert.Equal(t, start.Add(60*time.Minute), got)
	})
}

func TestTimeLeft(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("nil start means full duration", func(t *testing.T) {
		got := TimeLeft(nil, 60, nil, start.Add(45*time.Minute))
		assert.Equal(t, 60*time.Minute, got)
	})

	t.Run("full duration remains at the starting instant", func(t *testing.T) {
		got := TimeLeft(&start, 60, nil, start)
		assert.Equal(t, 3600.0, got.Seconds())
	})

	t.Run("counts down against the personal deadline", func(t *testing.T) {
		got := TimeLeft(&start, 60, nil, start.Add(45*time.Minute))
		assert.Equal(t, 15*time.Minute, got)
	})

	t.Run("clamps to zero after expiry", func(t *testing.T) {
		got := TimeLeft(&start, 60, nil, start.Add(2*time.Hour))
		assert.Equal(t, time.Duration(0), got)
	})

	t.Run("scheduled end cuts the budget short", func(t *testing.T) {
		end := start.Add(20 * time.Minute)
		got := TimeLeft(&start, 60, &end, start.Add(10*time.Minute))
		assert.Equal(t, 10*time.Minute, got)
	})
}

func TestIsExpired(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("lobby attempts never expire", func(t *testing.T) {
		assert.False(t, IsExpired(model.AttemptStatusStarted, nil, 60, nil, start.Add(24*time.Hour)))
	})

	t.Run("finished attempts never expire", func(t *testing.T) {
		assert.False(t, IsExpired(model.AttemptStatusFinished, &start, 60, nil, start.Add(24*time.Hour)))
	})

	t.Run("running attempt expires exactly at the deadline", func(t *testing.T) {
		deadline := start.Add(60 * time.Minute)
		assert.False(t, IsExpired(model.AttemptStatusStarted, &start, 60, nil, deadline.Add(-time.Second)))
		assert.True(t, IsExpired(model.AttemptStatusStarted, &start, 60, nil, deadline))
		assert.True(t, IsExpired(model.AttemptStatusStarted, &start, 60, nil, deadline.Add(time.Second)))
	})

	t.Run("global window expires before personal budget", func(t *testing.T) {
		end := start.Add(15 * time.Minute)
		assert.True(t, IsExpired(model.AttemptStatusStarted, &start, 60, &end, start.Add(16*time.Minute)))
	})
}
