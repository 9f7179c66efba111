package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/repository"
	"github.com/ujione-id/ujione-backend/internal/service"
)

// RunningLister yields every attempt still in the STARTED state together
// with the timing facts needed to judge expiry.
type RunningLister interface {
	ListRunning(ctx context.Context) ([]repository.RunningAttempt, error)
}

// Finisher closes out a single attempt. The sweeper passes the computed
// deadline so an expired attempt is recorded as finished at its deadline,
// not at the moment the sweep happened to run.
type Finisher interface {
	Finish(ctx context.Context, attemptID uuid.UUID, finishedAt *time.Time) (*model.Attempt, error)
}

// Sweeper finds attempts whose time budget ran out while the participant
// was absent and finishes them through the same path a voluntary finish
// takes. It is the engine's guarantee that no attempt stays STARTED
// forever.
type Sweeper struct {
	attempts RunningLister
	sessions Finisher
	log      zerolog.Logger
	now      func() time.Time
}

// NewSweeper creates a new Sweeper. now may be nil, in which case
// time.Now is used.
func NewSweeper(attempts RunningLister, sessions Finisher, log zerolog.Logger, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		attempts: attempts,
		sessions: sessions,
		log:      log.With().Str("component", "sweeper").Logger(),
		now:      now,
	}
}

// SweepOnce runs a single pass over running attempts. A failure on one
// attempt is logged and does not block the rest of the batch; the next
// pass retries anything left behind.
func (w *Sweeper) SweepOnce(ctx context.Context) {
	running, err := w.attempts.ListRunning(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("list running attempts")
		return
	}

	now := w.now()
	swept := 0
	for _, r := range running {
		deadline := service.EffectiveDeadline(r.StartTime, r.DurationMinutes, r.ScheduledEnd)
		if now.Before(deadline) {
			continue
		}
		if _, err := w.sessions.Finish(ctx, r.AttemptID, &deadline); err != nil {
			w.log.Error().Err(err).
				Str("attempt_id", r.AttemptID.String()).
				Msg("finish expired attempt")
			continue
		}
		swept++
	}

	if swept > 0 {
		w.log.Info().Int("swept", swept).Msg("Expired attempts finished")
	}
}
