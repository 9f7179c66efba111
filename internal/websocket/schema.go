package websocket

import "github.com/ujione-id/ujione-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionBegin        Action = "begin"
	ActionGetQuestions Action = "getQuestions"
	ActionSubmitAnswer Action = "submitAnswer"
	ActionFinish       Action = "finish"
	ActionPing         Action = "ping"
)

// SubmitAnswerRequest is the superset every inbound message decodes into;
// the handler dispatches on Action and begin/finish/ping simply leave the
// answer fields empty. RefID names the snapshot entry, not the underlying
// question.
type SubmitAnswerRequest struct {
	Action Action `json:"action"`
	RefID  string `json:"ref_id"`
	Answer string `json:"answer"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventStarted   Event = "started"
	EventQuestions Event = "questions"
	EventAnswerAck Event = "answerAck"
	EventFinished  Event = "finished"
	EventPong      Event = "pong"
)

type StartedResponse struct {
	Event     Event  `json:"event"`
	AttemptID string `json:"attempt_id"`
	StartTime string `json:"start_time"`
}

type QuestionsResponse struct {
	Event           Event                         `json:"event"`
	Questions       []model.QuestionForParticipant `json:"questions"`
	TimeLeftSeconds float64                       `json:"time_left_seconds"`
	Exam            model.ExamMeta                `json:"exam"`
}

type AnswerAckResponse struct {
	Event    Event   `json:"event"`
	Accepted bool    `json:"accepted"`
	Score    float64 `json:"score"`
}

type FinishedResponse struct {
	Event      Event   `json:"event"`
	Score      float64 `json:"score"`
	FinishedAt string  `json:"finished_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
