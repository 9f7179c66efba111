package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// ExamRepository handles exam and question-assignment data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByCode retrieves an exam by its unique join code.
func (r *ExamRepository) GetByCode(ctx context.Context, code string) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, title, duration_minutes, start_time, end_time, created_at, updated_at
		 FROM exams WHERE code = $1`, code,
	).Scan(&e.ID, &e.Code, &e.Title, &e.DurationMinutes, &e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, title, duration_minutes, start_time, end_time, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Code, &e.Title, &e.DurationMinutes, &e.StartTime, &e.EndTime, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListManualAssignments retrieves the explicitly pinned questions for an exam.
func (r *ExamRepository) ListManualAssignments(ctx context.Context, examID uuid.UUID) ([]model.ManualAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, question_id, point
		 FROM exam_manual_questions
		 WHERE exam_id = $1
		 ORDER BY question_id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.ManualAssignment
	for rows.Next() {
		var m model.ManualAssignment
		if err := rows.Scan(&m.ExamID, &m.QuestionID, &m.Point); err != nil {
			return nil, err
		}
		assignments = append(assignments, m)
	}
	return assignments, rows.Err()
}

// ListRandomizationRules retrieves an exam's draw rules in definition order.
// The order matters: earlier rules claim question ids before later ones.
func (r *ExamRepository) ListRandomizationRules(ctx context.Context, examID uuid.UUID) ([]model.RandomizationRule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_bank_id, number_of_questions, point_per_question, rule_order
		 FROM exam_randomization_rules
		 WHERE exam_id = $1
		 ORDER BY rule_order`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.RandomizationRule
	for rows.Next() {
		var rr model.RandomizationRule
		if err := rows.Scan(&rr.ID, &rr.ExamID, &rr.QuestionBankID, &rr.NumberOfQuestions, &rr.PointPerQuestion, &rr.RuleOrder); err != nil {
			return nil, err
		}
		rules = append(rules, rr)
	}
	return rules, rows.Err()
}
