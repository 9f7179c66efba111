package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/repository"
)

// BoardReader reads the live leaderboard; split from ScoreBoard because
// writers and readers sit on different sides of the engine.
type BoardReader interface {
	Top(ctx context.Context, examID uuid.UUID, limit int) ([]repository.LeaderboardEntry, error)
}

// MonitorService backs the proctor-facing surface: attempt listings, the
// live leaderboard, and post-exam annotations.
type MonitorService struct {
	attempts AttemptStore
	exams    ExamStore
	board    BoardReader
	log      zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(attempts AttemptStore, exams ExamStore, board BoardReader, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		attempts: attempts,
		exams:    exams,
		board:    board,
		log:      log.With().Str("component", "monitor_service").Logger(),
	}
}

// ListAttempts retrieves paginated attempt overviews for one exam.
func (s *MonitorService) ListAttempts(ctx context.Context, examID uuid.UUID, page, perPage int) ([]repository.AttemptOverview, int64, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("get exam: %w", err)
	}
	return s.attempts.ListByExam(ctx, examID, page, perPage)
}

// GetLeaderboard returns the exam's current top scores, best first.
func (s *MonitorService) GetLeaderboard(ctx context.Context, examID uuid.UUID, limit int) ([]repository.LeaderboardEntry, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	entries, err := s.board.Top(ctx, examID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []repository.LeaderboardEntry{}
	}
	return entries, nil
}

// VerifyAttemptExam checks that an attempt belongs to the given exam. A
// monitor token is minted for one exam only; attempt-level routes carry no
// exam in the path, so the binding is enforced here.
func (s *MonitorService) VerifyAttemptExam(ctx context.Context, attemptID, examID uuid.UUID) error {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get attempt: %w", err)
	}
	if attempt.ExamID != examID {
		return ErrForbidden
	}
	return nil
}

// UpdateNotes annotates an attempt. This is the only mutation allowed on a
// finished attempt.
func (s *MonitorService) UpdateNotes(ctx context.Context, attemptID uuid.UUID, notes string) error {
	if err := s.attempts.UpdateNotes(ctx, attemptID, notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update notes: %w", err)
	}
	return nil
}
