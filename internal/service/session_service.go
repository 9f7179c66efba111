package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/broadcast"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// SessionService owns the attempt lifecycle: join → begin → questions →
// finish → retake. It coordinates the snapshot builder, the timer authority,
// the token issuer and the broadcast hub.
type SessionService struct {
	attempts  AttemptStore
	exams     ExamStore
	examinees ExamineeStore
	snapshots SnapshotStore
	answers   AnswerStore
	builder   *SnapshotBuilder
	tokens    TokenIssuer
	board     ScoreBoard
	pub       broadcast.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewSessionService creates a new SessionService. A nil now defaults to
// time.Now; tests inject a fixed clock.
func NewSessionService(
	attempts AttemptStore,
	exams ExamStore,
	examinees ExamineeStore,
	snapshots SnapshotStore,
	answers AnswerStore,
	builder *SnapshotBuilder,
	tokens TokenIssuer,
	board ScoreBoard,
	pub broadcast.Publisher,
	log zerolog.Logger,
	now func() time.Time,
) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		attempts:  attempts,
		exams:     exams,
		examinees: examinees,
		snapshots: snapshots,
		answers:   answers,
		builder:   builder,
		tokens:    tokens,
		board:     board,
		pub:       pub,
		log:       log.With().Str("component", "session_service").Logger(),
		now:       now,
	}
}

// JoinResult bundles the attempt with its session credential.
type JoinResult struct {
	Attempt *model.Attempt `json:"attempt"`
	Token   string         `json:"token"`
}

// AttemptPaper is the participant view of an attempt: sanitized questions,
// remaining seconds, and exam metadata.
type AttemptPaper struct {
	Questions       []model.QuestionForParticipant `json:"questions"`
	TimeLeftSeconds float64                        `json:"time_left_seconds"`
	Exam            model.ExamMeta                 `json:"exam"`
}

// Join resolves the examinee and exam by natural keys, enforces the exam's
// scheduled window, and returns the open attempt for the pair — creating
// attempt number 1 if none exists. Calling Join twice before any finish
// returns the same attempt (idempotent resume). A finished latest attempt
// blocks joining until a retake is granted.
func (s *SessionService) Join(ctx context.Context, examineeID int, code string) (*JoinResult, error) {
	if _, err := s.examinees.GetByID(ctx, examineeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get examinee: %w", err)
	}

	exam, err := s.exams.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam by code: %w", err)
	}

	now := s.now()
	if exam.StartTime != nil && now.Before(*exam.StartTime) {
		return nil, ErrExamWindowClosed
	}
	if exam.EndTime != nil && now.After(*exam.EndTime) {
		return nil, ErrExamWindowClosed
	}

	attempt, err := s.attempts.GetLatest(ctx, examineeID, exam.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}

	switch {
	case attempt == nil || errors.Is(err, pgx.ErrNoRows):
		attempt = &model.Attempt{
			ExamineeID:    examineeID,
			ExamID:        exam.ID,
			AttemptNumber: 1,
			Status:        model.AttemptStatusStarted,
		}
		if createErr := s.attempts.Create(ctx, attempt); createErr != nil {
			if !errors.Is(createErr, pgx.ErrNoRows) {
				return nil, fmt.Errorf("create attempt: %w", createErr)
			}
			// Concurrent join won the insert; use its row.
			attempt, err = s.attempts.GetLatest(ctx, examineeID, exam.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve concurrent join: %w", err)
			}
		}
	case attempt.Status == model.AttemptStatusFinished:
		return nil, ErrAlreadyCompleted
	}

	token, err := s.tokens.IssueParticipantToken(attempt)
	if err != nil {
		return nil, fmt.Errorf("issue participant token: %w", err)
	}

	return &JoinResult{Attempt: attempt, Token: token}, nil
}

// Begin starts the attempt's clock exactly once. Resuming an in-progress
// attempt returns it unchanged; the timer is never reset.
func (s *SessionService) Begin(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusFinished {
		return nil, ErrAttemptFinished
	}
	if attempt.StartTime != nil {
		return attempt, nil
	}

	startTime := s.now()
	started, err := s.attempts.MarkStarted(ctx, attemptID, startTime)
	if err != nil {
		return nil, fmt.Errorf("mark started: %w", err)
	}
	if !started {
		// Lost the race against a concurrent Begin; its start time stands.
		return s.getAttempt(ctx, attemptID)
	}
	attempt.StartTime = &startTime

	examinee, err := s.examinees.GetByID(ctx, attempt.ExamineeID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Examinee lookup for start event failed")
		examinee = &model.Examinee{ID: attempt.ExamineeID}
	}

	s.pub.Publish(ctx, broadcast.Event{
		Type:   broadcast.EventParticipantStarted,
		ExamID: attempt.ExamID,
		Payload: broadcast.ParticipantStarted{
			AttemptID:    attempt.ID,
			ExamineeName: examinee.Name,
			Batch:        examinee.Batch,
			StartTime:    startTime,
		},
	})

	return attempt, nil
}

// GetQuestions returns the attempt's paper. The snapshot is materialized
// lazily, exactly once, on the first call; later calls — and later edits to
// the exam's rules — see the identical snapshot.
func (s *SessionService) GetQuestions(ctx context.Context, attemptID uuid.UUID) (*AttemptPaper, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptStatusFinished {
		return nil, ErrAttemptFinished
	}

	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	entries, err := s.snapshots.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	if len(entries) == 0 {
		if _, err := s.builder.Build(ctx, attemptID, attempt.ExamID); err != nil {
			// Two first calls can race past the empty check; the unique
			// constraint on (attempt_id, question_id) rejects the loser's
			// insert, and the winner's snapshot is read below.
			if !isUniqueViolation(err) {
				return nil, fmt.Errorf("build snapshot: %w", err)
			}
			s.log.Debug().Str("attempt_id", attemptID.String()).
				Msg("Snapshot already materialized by a concurrent call")
		}
	}

	questions, err := s.snapshots.ListQuestionsForAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot questions: %w", err)
	}
	if questions == nil {
		questions = []model.QuestionForParticipant{}
	}

	remaining := TimeLeft(attempt.StartTime, exam.DurationMinutes, exam.EndTime, s.now())

	return &AttemptPaper{
		Questions:       questions,
		TimeLeftSeconds: remaining.Seconds(),
		Exam:            exam.Meta(),
	}, nil
}

// Finish transitions the attempt to FINISHED with the recomputed final
// score. finishedAt overrides the recorded finish moment (the sweeper passes
// the computed deadline so the recorded duration is exactly the allotted
// time); nil means now. When a concurrent finisher already won, the attempt
// is returned as-is and no event is emitted.
func (s *SessionService) Finish(ctx context.Context, attemptID uuid.UUID, finishedAt *time.Time) (*model.Attempt, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	score, err := s.answers.SumCorrectPoints(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("sum correct points: %w", err)
	}

	at := s.now()
	if finishedAt != nil {
		at = *finishedAt
	}

	won, err := s.attempts.FinishIfStarted(ctx, attemptID, score, at)
	if err != nil {
		return nil, fmt.Errorf("finish attempt: %w", err)
	}
	if !won {
		return s.getAttempt(ctx, attemptID)
	}

	attempt.Status = model.AttemptStatusFinished
	attempt.FinalScore = &score
	attempt.FinishedAt = &at

	if s.board != nil {
		if err := s.board.Record(ctx, attempt.ExamID, attempt.ID, score); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Leaderboard update failed")
		}
	}

	s.pub.Publish(ctx, broadcast.Event{
		Type:   broadcast.EventStatusChanged,
		ExamID: attempt.ExamID,
		Payload: broadcast.StatusChanged{
			AttemptID:  attempt.ID,
			NewStatus:  model.AttemptStatusFinished,
			FinishedAt: &at,
		},
	})

	return attempt, nil
}

// Retake grants a fresh attempt after a finished one. The new attempt gets
// the next attempt number and starts back in the lobby. A duplicate request
// racing an open attempt returns the open attempt instead of stacking a new
// one.
func (s *SessionService) Retake(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	ref, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	latest, err := s.attempts.GetLatest(ctx, ref.ExamineeID, ref.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}
	if latest.Status != model.AttemptStatusFinished {
		// A newer attempt is already open (duplicate or racing request).
		return latest, nil
	}

	next := &model.Attempt{
		ExamineeID:    ref.ExamineeID,
		ExamID:        ref.ExamID,
		AttemptNumber: latest.AttemptNumber + 1,
		Status:        model.AttemptStatusStarted,
		IsRetake:      true,
	}
	if err := s.attempts.Create(ctx, next); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("create retake attempt: %w", err)
		}
		return s.attempts.GetLatest(ctx, ref.ExamineeID, ref.ExamID)
	}
	return next, nil
}

func (s *SessionService) getAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}
