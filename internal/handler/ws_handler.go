package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/middleware"
	"github.com/ujione-id/ujione-backend/internal/service"
	ws "github.com/ujione-id/ujione-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the participant attempt stream. Every session action
// after join travels over this connection.
type WSHandler struct {
	sessionService *service.SessionService
	answerService  *service.AnswerService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, answerService *service.AnswerService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		answerService:  answerService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempt/stream?token=...
// Upgrades to WebSocket and dispatches session actions for the attempt
// bound into the participant token.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(claims.AttemptID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid attempt claim"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", attemptID.String()).
		Int("examinee_id", claims.ExamineeID).
		Logger()

	wsLog.Info().Msg("Participant connected")

	for {
		var msg ws.SubmitAnswerRequest
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionBegin:
			h.handleBegin(conn, wsLog, attemptID)
		case ws.ActionGetQuestions:
			h.handleGetQuestions(conn, wsLog, attemptID)
		case ws.ActionSubmitAnswer:
			h.handleSubmitAnswer(conn, wsLog, attemptID, &msg)
		case ws.ActionFinish:
			h.handleFinish(conn, wsLog, attemptID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleBegin(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID) {
	attempt, err := h.sessionService.Begin(context.Background(), attemptID)
	if err != nil {
		writeSessionError(conn, wsLog, err, "begin failed")
		return
	}

	start := ""
	if attempt.StartTime != nil {
		start = attempt.StartTime.UTC().Format(time.RFC3339)
	}
	ws.WriteTyped(conn, ws.StartedResponse{
		Event:     ws.EventStarted,
		AttemptID: attempt.ID.String(),
		StartTime: start,
	})
}

func (h *WSHandler) handleGetQuestions(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID) {
	paper, err := h.sessionService.GetQuestions(context.Background(), attemptID)
	if err != nil {
		writeSessionError(conn, wsLog, err, "get questions failed")
		return
	}

	ws.WriteTyped(conn, ws.QuestionsResponse{
		Event:           ws.EventQuestions,
		Questions:       paper.Questions,
		TimeLeftSeconds: paper.TimeLeftSeconds,
		Exam:            paper.Exam,
	})
}

func (h *WSHandler) handleSubmitAnswer(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, msg *ws.SubmitAnswerRequest) {
	if msg.RefID == "" {
		ws.WriteError(conn, "ref_id is required")
		return
	}
	entryID, err := uuid.Parse(msg.RefID)
	if err != nil {
		ws.WriteError(conn, "invalid ref_id format")
		return
	}

	result, err := h.answerService.SubmitAnswer(context.Background(), attemptID, entryID, msg.Answer)
	if err != nil {
		writeSessionError(conn, wsLog, err, "submit answer failed")
		return
	}

	ws.WriteTyped(conn, ws.AnswerAckResponse{
		Event:    ws.EventAnswerAck,
		Accepted: result.Accepted,
		Score:    result.NewScore,
	})
}

func (h *WSHandler) handleFinish(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID) {
	attempt, err := h.sessionService.Finish(context.Background(), attemptID, nil)
	if err != nil {
		writeSessionError(conn, wsLog, err, "finish failed")
		return
	}

	score := 0.0
	if attempt.FinalScore != nil {
		score = *attempt.FinalScore
	}
	finishedAt := ""
	if attempt.FinishedAt != nil {
		finishedAt = attempt.FinishedAt.UTC().Format(time.RFC3339)
	}

	wsLog.Info().Float64("score", score).Msg("Attempt finished")

	ws.WriteTyped(conn, ws.FinishedResponse{
		Event:      ws.EventFinished,
		Score:      score,
		FinishedAt: finishedAt,
	})
}

// writeSessionError maps the service sentinels onto stable client-facing
// messages; anything else is logged and reported generically.
func writeSessionError(conn *websocket.Conn, wsLog zerolog.Logger, err error, generic string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		ws.WriteError(conn, "attempt not found")
	case errors.Is(err, service.ErrAttemptFinished):
		ws.WriteError(conn, "attempt already finished")
	default:
		wsLog.Error().Err(err).Msg(generic)
		ws.WriteError(conn, generic)
	}
}
