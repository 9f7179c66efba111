package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a scheduled exam. Code is the natural key participants
// join with. StartTime/EndTime bound the global window; nil means unbounded.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ManualAssignment pins a specific question into every snapshot built for
// the exam, with an explicit point value.
type ManualAssignment struct {
	ExamID     uuid.UUID `json:"exam_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Point      float64   `json:"point"`
}

// RandomizationRule requests NumberOfQuestions distinct draws from a bank,
// excluding ids already claimed by manual assignments or earlier rules.
type RandomizationRule struct {
	ID                uuid.UUID `json:"id"`
	ExamID            uuid.UUID `json:"exam_id"`
	QuestionBankID    uuid.UUID `json:"question_bank_id"`
	NumberOfQuestions int       `json:"number_of_questions"`
	PointPerQuestion  float64   `json:"point_per_question"`
	RuleOrder         int       `json:"rule_order"`
}

// ExamMeta is the exam summary returned alongside a participant's paper.
type ExamMeta struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Meta builds the participant-facing summary of an exam.
func (e *Exam) Meta() ExamMeta {
	return ExamMeta{
		ID:              e.ID,
		Code:            e.Code,
		Title:           e.Title,
		DurationMinutes: e.DurationMinutes,
	}
}
