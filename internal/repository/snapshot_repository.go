package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// SnapshotRepository handles the immutable per-attempt question snapshots.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// ListByAttempt retrieves an attempt's snapshot entries in presentation order.
// An empty result means the snapshot has not been built yet.
func (r *SnapshotRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.SnapshotEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, point, position
		 FROM attempt_snapshot_entries
		 WHERE attempt_id = $1
		 ORDER BY position`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.SnapshotEntry
	for rows.Next() {
		var e model.SnapshotEntry
		if err := rows.Scan(&e.ID, &e.AttemptID, &e.QuestionID, &e.Point, &e.Position); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateBatch persists a freshly built snapshot in a single transaction.
// All-or-nothing: a half-written snapshot would poison every later read, so
// any failure rolls the whole batch back.
func (r *SnapshotRepository) CreateBatch(ctx context.Context, entries []model.SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO attempt_snapshot_entries (id, attempt_id, question_id, point, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.ID, e.AttemptID, e.QuestionID, e.Point, e.Position,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert snapshot entries: %w", err)
	}

	return tx.Commit(ctx)
}

// ListQuestionsForAttempt joins snapshot entries with question bodies and
// returns the answer-key-free participant view, in presentation order.
func (r *SnapshotRepository) ListQuestionsForAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.QuestionForParticipant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT se.id, q.question_text, q.options, se.point
		 FROM attempt_snapshot_entries se
		 JOIN questions q ON se.question_id = q.id
		 WHERE se.attempt_id = $1
		 ORDER BY se.position`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.QuestionForParticipant
	for rows.Next() {
		var q model.QuestionForParticipant
		if err := rows.Scan(&q.RefID, &q.QuestionText, &q.Options, &q.Point); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetEntryWithAnswer retrieves one snapshot entry together with the stored
// correct answer of its underlying question. The attempt id is part of the
// key so one attempt can never grade against another attempt's entry.
func (r *SnapshotRepository) GetEntryWithAnswer(ctx context.Context, attemptID, entryID uuid.UUID) (*model.SnapshotEntry, string, error) {
	e := &model.SnapshotEntry{}
	var correctAnswer string
	err := r.pool.QueryRow(ctx,
		`SELECT se.id, se.attempt_id, se.question_id, se.point, se.position, q.correct_answer
		 FROM attempt_snapshot_entries se
		 JOIN questions q ON se.question_id = q.id
		 WHERE se.id = $1 AND se.attempt_id = $2`, entryID, attemptID,
	).Scan(&e.ID, &e.AttemptID, &e.QuestionID, &e.Point, &e.Position, &correctAnswer)
	if err != nil {
		return nil, "", err
	}
	return e, correctAnswer, nil
}
