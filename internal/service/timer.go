package service

import (
	"time"

	"github.com/ujione-id/ujione-backend/internal/model"
)

// The timer authority is pure computation over wall-clock inputs. The same
// functions serve a participant's status request and the expiration
// sweeper's scan, so both always agree on whether time is up.

// EffectiveDeadline returns the moment an attempt's clock runs out: the
// personal session deadline capped by the exam's scheduled end, if any.
func EffectiveDeadline(startTime time.Time, durationMinutes int, scheduledEnd *time.Time) time.Time {
	deadline := startTime.Add(time.Duration(durationMinutes) * time.Minute)
	if scheduledEnd != nil && scheduledEnd.Before(deadline) {
		deadline = *scheduledEnd
	}
	return deadline
}

// TimeLeft computes the remaining time budget. A nil startTime means the
// clock has not begun, so the full duration remains.
func TimeLeft(startTime *time.Time, durationMinutes int, scheduledEnd *time.Time, now time.Time) time.Duration {
	if startTime == nil {
		return time.Duration(durationMinutes) * time.Minute
	}
	remaining := EffectiveDeadline(*startTime, durationMinutes, scheduledEnd).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired reports whether a running attempt's budget has fully elapsed.
// Attempts still in the lobby (nil start time) never expire.
func IsExpired(status model.AttemptStatus, startTime *time.Time, durationMinutes int, scheduledEnd *time.Time, now time.Time) bool {
	if status != model.AttemptStatusStarted || startTime == nil {
		return false
	}
	return TimeLeft(startTime, durationMinutes, scheduledEnd, now) == 0
}
