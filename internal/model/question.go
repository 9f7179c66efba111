package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question represents a single question as stored in a question bank.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	BankID        uuid.UUID       `json:"bank_id"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
}

// QuestionForParticipant is a snapshot question with the answer key stripped.
// This is the only question shape that may ever leave the server toward an
// exam taker.
type QuestionForParticipant struct {
	RefID        uuid.UUID       `json:"ref_id"` // snapshot entry id, the key answers are submitted against
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options"`
	Point        float64         `json:"point"`
}
