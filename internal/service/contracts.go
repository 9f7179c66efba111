package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/repository"
)

// The engine talks to its collaborators through these narrow interfaces so
// the session logic stays independent of the storage technology. The pgx
// repositories implement them in production; tests use in-memory fakes.

// ExamStore provides read access to exams and their question rules.
type ExamStore interface {
	GetByCode(ctx context.Context, code string) (*model.Exam, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListManualAssignments(ctx context.Context, examID uuid.UUID) ([]model.ManualAssignment, error)
	ListRandomizationRules(ctx context.Context, examID uuid.UUID) ([]model.RandomizationRule, error)
}

// QuestionStore provides read access to the question banks.
type QuestionStore interface {
	ListBankQuestionIDs(ctx context.Context, bankID uuid.UUID, excludeIDs []uuid.UUID) ([]uuid.UUID, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// ExamineeStore provides read access to registered exam takers.
type ExamineeStore interface {
	GetByID(ctx context.Context, id int) (*model.Examinee, error)
}

// AttemptStore owns attempt rows and their guarded state transitions.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetLatest(ctx context.Context, examineeID int, examID uuid.UUID) (*model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt) error
	MarkStarted(ctx context.Context, id uuid.UUID, startTime time.Time) (bool, error)
	FinishIfStarted(ctx context.Context, id uuid.UUID, finalScore float64, finishedAt time.Time) (bool, error)
	ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]repository.AttemptOverview, int64, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
}

// SnapshotStore owns the immutable per-attempt question snapshots.
type SnapshotStore interface {
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.SnapshotEntry, error)
	CreateBatch(ctx context.Context, entries []model.SnapshotEntry) error
	ListQuestionsForAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.QuestionForParticipant, error)
	GetEntryWithAnswer(ctx context.Context, attemptID, entryID uuid.UUID) (*model.SnapshotEntry, string, error)
}

// AnswerStore owns answer records and score aggregation.
type AnswerStore interface {
	Upsert(ctx context.Context, rec *model.AnswerRecord) error
	SumCorrectPoints(ctx context.Context, attemptID uuid.UUID) (float64, error)
}

// ScoreBoard receives live score updates for the per-exam leaderboard.
type ScoreBoard interface {
	Record(ctx context.Context, examID, attemptID uuid.UUID, score float64) error
}

// TokenIssuer mints the session credential handed out at join. The engine
// treats the credential as opaque.
type TokenIssuer interface {
	IssueParticipantToken(a *model.Attempt) (string, error)
}
