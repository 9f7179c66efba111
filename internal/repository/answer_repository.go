package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// AnswerRepository handles answer record persistence.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert stores an answer keyed by (attempt, snapshot entry). Last write
// wins; no answer history is kept.
func (r *AnswerRepository) Upsert(ctx context.Context, rec *model.AnswerRecord) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, snapshot_entry_id, answer_text, is_correct, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, snapshot_entry_id)
		 DO UPDATE SET answer_text = $3, is_correct = $4, updated_at = $5`,
		rec.AttemptID, rec.SnapshotEntryID, rec.AnswerText, rec.IsCorrect, now)
	if err != nil {
		return err
	}
	rec.UpdatedAt = now
	return nil
}

// SumCorrectPoints computes an attempt's current score: the sum of snapshot
// point values whose answer is marked correct.
func (r *AnswerRepository) SumCorrectPoints(ctx context.Context, attemptID uuid.UUID) (float64, error) {
	var score float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(se.point), 0)
		 FROM attempt_answers aa
		 JOIN attempt_snapshot_entries se ON aa.snapshot_entry_id = se.id
		 WHERE aa.attempt_id = $1 AND aa.is_correct`, attemptID,
	).Scan(&score)
	return score, err
}

// ListByAttempt retrieves all answers recorded for an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, snapshot_entry_id, answer_text, is_correct, updated_at
		 FROM attempt_answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AnswerRecord
	for rows.Next() {
		var rec model.AnswerRecord
		if err := rows.Scan(&rec.AttemptID, &rec.SnapshotEntryID, &rec.AnswerText, &rec.IsCorrect, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
