package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. An attempt with a nil StartTime
// is still in the lobby: it counts as STARTED but its clock has not begun.
type AttemptStatus string

const (
	AttemptStatusStarted  AttemptStatus = "STARTED"
	AttemptStatusFinished AttemptStatus = "FINISHED"
)

// Attempt is one examinee's run at one exam. (ExamineeID, ExamID,
// AttemptNumber) is unique; retakes create a new row with the next number
// and never mutate the finished one.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	ExamineeID    int           `json:"examinee_id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	StartTime     *time.Time    `json:"start_time,omitempty"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	FinalScore    *float64      `json:"final_score,omitempty"`
	IsRetake      bool          `json:"is_retake"`
	AdminNotes    *string       `json:"admin_notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// JoinRequest is the payload for a participant joining an exam by code.
type JoinRequest struct {
	ExamineeID int    `json:"examinee_id" binding:"required,min=1"`
	Code       string `json:"code" binding:"required,min=3,max=32"`
}

// UpdateNotesRequest is the payload for a proctor annotating an attempt.
type UpdateNotesRequest struct {
	AdminNotes string `json:"admin_notes" binding:"required,max=2000"`
}
