package broadcast

import (
	"time"

	"github.com/google/uuid"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// EventType enumerates the lifecycle/score events fanned out to monitoring
// observers. The names are part of the wire contract.
type EventType string

const (
	EventParticipantStarted EventType = "participant-started"
	EventScoreUpdated       EventType = "score-updated"
	EventStatusChanged      EventType = "status-changed"
)

// Event is one broadcast message, scoped to an exam.
type Event struct {
	Type    EventType   `json:"type"`
	ExamID  uuid.UUID   `json:"exam_id"`
	Payload interface{} `json:"payload"`
}

// ParticipantStarted announces that an attempt's clock has begun.
type ParticipantStarted struct {
	AttemptID    uuid.UUID `json:"attempt_id"`
	ExamineeName string    `json:"examinee_name"`
	Batch        string    `json:"batch"`
	StartTime    time.Time `json:"start_time"`
}

// ScoreUpdated announces a live score recomputation for a running attempt.
type ScoreUpdated struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	NewScore  float64   `json:"new_score"`
}

// StatusChanged announces an attempt's terminal transition.
type StatusChanged struct {
	AttemptID  uuid.UUID           `json:"attempt_id"`
	NewStatus  model.AttemptStatus `json:"new_status"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
