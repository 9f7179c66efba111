package model

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotEntry is the immutable materialization of one question assigned to
// one attempt. Its presence is the signal that the attempt's snapshot has
// already been built; it is never regenerated, even if the exam's rules
// change afterwards.
type SnapshotEntry struct {
	ID         uuid.UUID `json:"id"`
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Point      float64   `json:"point"`
	Position   int       `json:"position"`
}

// AnswerRecord is the last answer an examinee gave for one snapshot entry.
// Repeated submissions overwrite; there is no answer history.
type AnswerRecord struct {
	AttemptID       uuid.UUID `json:"attempt_id"`
	SnapshotEntryID uuid.UUID `json:"snapshot_entry_id"`
	AnswerText      string    `json:"answer_text"`
	IsCorrect       bool      `json:"is_correct"`
	UpdatedAt       time.Time `json:"updated_at"`
}
