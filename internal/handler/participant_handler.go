package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/response"
	"github.com/ujione-id/ujione-backend/internal/service"
	"github.com/ujione-id/ujione-backend/internal/validator"
)

// ParticipantHandler handles the participant-facing HTTP surface. After a
// successful join, everything else moves to the WebSocket stream.
type ParticipantHandler struct {
	sessionService *service.SessionService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(sessionService *service.SessionService) *ParticipantHandler {
	return &ParticipantHandler{sessionService: sessionService}
}

// Join godoc
// POST /api/v1/participant/join
// Resolves examinee + exam code into the open attempt (idempotent) and
// returns a stream token bound to it.
func (h *ParticipantHandler) Join(c *gin.Context) {
	var req model.JoinRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.Join(c.Request.Context(), req.ExamineeID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamWindowClosed):
			response.Fail(c, http.StatusForbidden, response.ErrExamWindowClosed)
		case errors.Is(err, service.ErrAlreadyCompleted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
