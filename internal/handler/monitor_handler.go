package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/broadcast"
	"github.com/ujione-id/ujione-backend/internal/middleware"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/response"
	"github.com/ujione-id/ujione-backend/internal/service"
	"github.com/ujione-id/ujione-backend/internal/validator"
	ws "github.com/ujione-id/ujione-backend/internal/websocket"
)

const monitorPingInterval = 30 * time.Second

// MonitorHandler serves the proctor-facing surface: a per-exam live event
// stream plus listing, leaderboard, and annotation endpoints.
type MonitorHandler struct {
	hub            *broadcast.Hub
	monitorService *service.MonitorService
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(hub *broadcast.Hub, monitorService *service.MonitorService, sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		hub:            hub,
		monitorService: monitorService,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorStream godoc
// WS /ws/v1/exams/:exam_id/monitor?token=...
// Streams participant-started, score-updated and status-changed events for
// one exam until the observer disconnects.
func (h *MonitorHandler) MonitorStream(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Initial snapshot so the dashboard does not start blank.
	attempts, total, err := h.monitorService.ListAttempts(c.Request.Context(), examID, 1, 1000)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("exam_id", examID.String()).Logger()
	wsLog.Info().Msg("Monitor attached")

	ws.WriteTyped(conn, gin.H{
		"event":    "snapshot",
		"total":    total,
		"attempts": attempts,
	})

	sub := h.hub.Subscribe(examID)
	defer sub.Close()

	// Reader goroutine only notices disconnects; monitors never send actions.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(monitorPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			wsLog.Info().Msg("Monitor disconnected")
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ev); err != nil {
				wsLog.Debug().Err(err).Msg("Monitor write failed")
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// ListAttempts godoc
// GET /api/v1/exams/:exam_id/attempts?page=1&per_page=50
func (h *MonitorHandler) ListAttempts(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	attempts, total, err := h.monitorService.ListAttempts(c.Request.Context(), examID, page, perPage)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// GetLeaderboard godoc
// GET /api/v1/exams/:exam_id/leaderboard?limit=20
func (h *MonitorHandler) GetLeaderboard(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 200 {
		limit = 20
	}

	entries, err := h.monitorService.GetLeaderboard(c.Request.Context(), examID, limit)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// authorizeAttempt checks that the attempt belongs to the exam the monitor
// token was minted for. Attempt-level routes carry no exam in the path, so
// the binding cannot be enforced in the middleware. Writes the error
// response itself and reports whether the caller may proceed.
func (h *MonitorHandler) authorizeAttempt(c *gin.Context, attemptID uuid.UUID) bool {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return false
	}
	examID, err := uuid.Parse(claims.ExamID)
	if err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return false
	}

	if err := h.monitorService.VerifyAttemptExam(c.Request.Context(), attemptID, examID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrForbidden):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return false
	}
	return true
}

// UpdateNotes godoc
// PATCH /api/v1/attempts/:id/notes
// The one mutation allowed on a finished attempt.
func (h *MonitorHandler) UpdateNotes(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	var req model.UpdateNotesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.monitorService.UpdateNotes(c.Request.Context(), attemptID, req.AdminNotes); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// GrantRetake godoc
// POST /api/v1/attempts/:id/retake
// Grants a fresh attempt after a finished one; idempotent on races.
func (h *MonitorHandler) GrantRetake(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	if !h.authorizeAttempt(c, attemptID) {
		return
	}

	attempt, err := h.sessionService.Retake(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
