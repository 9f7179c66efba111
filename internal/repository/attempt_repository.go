package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// AttemptOverview combines examinee data with attempt state for monitoring views.
type AttemptOverview struct {
	AttemptID     uuid.UUID           `json:"attempt_id"`
	ExamineeID    int                 `json:"examinee_id"`
	Name          string              `json:"name"`
	Batch         string              `json:"batch"`
	AttemptNumber int                 `json:"attempt_number"`
	Status        model.AttemptStatus `json:"status"`
	StartTime     *time.Time          `json:"start_time"`
	FinishedAt    *time.Time          `json:"finished_at"`
	FinalScore    *float64            `json:"final_score"`
	IsRetake      bool                `json:"is_retake"`
}

// RunningAttempt is the slice of attempt+exam state the expiration sweeper
// needs to evaluate a deadline.
type RunningAttempt struct {
	AttemptID       uuid.UUID
	StartTime       time.Time
	DurationMinutes int
	ScheduledEnd    *time.Time
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, examinee_id, exam_id, attempt_number, status,
	start_time, finished_at, final_score, is_retake, admin_notes, created_at`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.ExamineeID, &a.ExamID, &a.AttemptNumber, &a.Status,
		&a.StartTime, &a.FinishedAt, &a.FinalScore, &a.IsRetake, &a.AdminNotes, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetLatest retrieves the most recent attempt for an examinee-exam pair,
// ordered by attempt number.
func (r *AttemptRepository) GetLatest(ctx context.Context, examineeID int, examID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE examinee_id = $1 AND exam_id = $2
		 ORDER BY attempt_number DESC
		 LIMIT 1`, examineeID, examID))
}

// Create inserts a new attempt. A concurrent insert of the same
// (examinee, exam, attempt_number) triple makes this return pgx.ErrNoRows;
// callers resolve the race by re-fetching the latest attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (examinee_id, exam_id, attempt_number, status, is_retake)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (examinee_id, exam_id, attempt_number) DO NOTHING
		 RETURNING id, created_at`,
		a.ExamineeID, a.ExamID, a.AttemptNumber, model.AttemptStatusStarted, a.IsRetake,
	).Scan(&a.ID, &a.CreatedAt)
}

// MarkStarted sets the attempt's start time exactly once. Returns false when
// the clock was already running (idempotent resume must not reset it).
func (r *AttemptRepository) MarkStarted(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET start_time = $2
		 WHERE id = $1 AND start_time IS NULL`, id, startTime)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FinishIfStarted atomically transitions a STARTED attempt to FINISHED with
// its final score. Returns false when another finisher (voluntary or the
// sweeper) already won; exactly one caller ever gets true.
func (r *AttemptRepository) FinishIfStarted(ctx context.Context, id uuid.UUID, finalScore float64, finishedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $2, final_score = $3, finished_at = $4
		 WHERE id = $1 AND status = $5`,
		id, model.AttemptStatusFinished, finalScore, finishedAt, model.AttemptStatusStarted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListRunning retrieves every attempt whose clock is running, joined with the
// exam's time budget, for the expiration sweeper.
func (r *AttemptRepository) ListRunning(ctx context.Context) ([]RunningAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.start_time, e.duration_minutes, e.end_time
		 FROM attempts a
		 JOIN exams e ON a.exam_id = e.id
		 WHERE a.status = $1 AND a.start_time IS NOT NULL`,
		model.AttemptStatusStarted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var running []RunningAttempt
	for rows.Next() {
		var ra RunningAttempt
		if err := rows.Scan(&ra.AttemptID, &ra.StartTime, &ra.DurationMinutes, &ra.ScheduledEnd); err != nil {
			return nil, err
		}
		running = append(running, ra)
	}
	return running, rows.Err()
}

// ListByExam retrieves attempt overviews for one exam with pagination, for
// the monitoring surface.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]AttemptOverview, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.examinee_id, ex.name, ex.batch, a.attempt_number,
		        a.status, a.start_time, a.finished_at, a.final_score, a.is_retake
		 FROM attempts a
		 JOIN examinees ex ON a.examinee_id = ex.id
		 WHERE a.exam_id = $1
		 ORDER BY ex.name ASC, a.attempt_number DESC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var overviews []AttemptOverview
	for rows.Next() {
		var o AttemptOverview
		if err := rows.Scan(&o.AttemptID, &o.ExamineeID, &o.Name, &o.Batch, &o.AttemptNumber,
			&o.Status, &o.StartTime, &o.FinishedAt, &o.FinalScore, &o.IsRetake); err != nil {
			return nil, 0, err
		}
		overviews = append(overviews, o)
	}
	return overviews, total, rows.Err()
}

// UpdateNotes sets the proctor's notes on an attempt. Notes are the only
// field that may change after an attempt is finished.
func (r *AttemptRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET admin_notes = $2 WHERE id = $1`, id, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
