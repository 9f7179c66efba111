package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/broadcast"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// AnswerService validates and records streamed answers and keeps the live
// score current.
type AnswerService struct {
	attempts  AttemptStore
	snapshots SnapshotStore
	answers   AnswerStore
	board     ScoreBoard
	pub       broadcast.Publisher
	log       zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(
	attempts AttemptStore,
	snapshots SnapshotStore,
	answers AnswerStore,
	board ScoreBoard,
	pub broadcast.Publisher,
	log zerolog.Logger,
) *AnswerService {
	return &AnswerService{
		attempts:  attempts,
		snapshots: snapshots,
		answers:   answers,
		board:     board,
		pub:       pub,
		log:       log.With().Str("component", "answer_service").Logger(),
	}
}

// SubmitResult reports what happened to one submission. Accepted is false
// when the referenced question is not part of the attempt's snapshot — a
// soft no-op, since stale client state is expected in a live exam.
type SubmitResult struct {
	Accepted bool    `json:"accepted"`
	NewScore float64 `json:"new_score"`
}

// SubmitAnswer grades and upserts one answer, then recomputes the attempt's
// running score. Submissions for a FINISHED attempt are rejected so the
// final score stays authoritative against in-flight answers racing the
// sweeper. Upserts for different questions of the same attempt are
// independently keyed and run fully concurrently.
func (s *AnswerService) SubmitAnswer(ctx context.Context, attemptID, entryID uuid.UUID, answerText string) (*SubmitResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status == model.AttemptStatusFinished {
		return nil, ErrAttemptFinished
	}

	entry, correctAnswer, err := s.snapshots.GetEntryWithAnswer(ctx, attemptID, entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Not part of this attempt's snapshot. Ignore quietly.
			s.log.Debug().
				Str("attempt_id", attemptID.String()).
				Str("entry_id", entryID.String()).
				Msg("Answer for unknown snapshot entry ignored")
			return &SubmitResult{Accepted: false}, nil
		}
		return nil, fmt.Errorf("get snapshot entry: %w", err)
	}

	rec := &model.AnswerRecord{
		AttemptID:       attemptID,
		SnapshotEntryID: entry.ID,
		AnswerText:      answerText,
		IsCorrect:       answersMatch(answerText, correctAnswer),
	}
	if err := s.answers.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}

	newScore, err := s.answers.SumCorrectPoints(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("recompute score: %w", err)
	}

	if s.board != nil {
		if err := s.board.Record(ctx, attempt.ExamID, attemptID, newScore); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Leaderboard update failed")
		}
	}

	s.pub.Publish(ctx, broadcast.Event{
		Type:   broadcast.EventScoreUpdated,
		ExamID: attempt.ExamID,
		Payload: broadcast.ScoreUpdated{
			AttemptID: attemptID,
			NewScore:  newScore,
		},
	})

	return &SubmitResult{Accepted: true, NewScore: newScore}, nil
}

// answersMatch compares a submission against the stored correct answer.
// Surrounding whitespace is ignored; the comparison itself is exact.
func answersMatch(submitted, correct string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(correct)
}
