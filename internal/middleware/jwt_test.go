package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ujione-id/ujione-backend/internal/config"
	"github.com/ujione-id/ujione-backend/internal/model"
	"github.com/ujione-id/ujione-backend/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := service.NewAuthService(&config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
	})

	r := gin.New()
	r.GET("/exams/:exam_id/attempts", RequireMonitorJWT(auth), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/attempts/:id/notes", RequireMonitorJWT(auth), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, auth
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireMonitorJWTExamBinding(t *testing.T) {
	r, auth := newTestRouter(t)

	examA := uuid.New()
	examB := uuid.New()
	token, err := auth.IssueMonitorToken(examA)
	require.NoError(t, err)

	w := doRequest(r, "/exams/"+examA.String()+"/attempts", token)
	assert.Equal(t, http.StatusOK, w.Code)

	// The token is bound to exam A; exam B's routes must be off limits.
	w = doRequest(r, "/exams/"+examB.String()+"/attempts", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Attempt-level routes have no exam in the path; the middleware lets
	// them through and the handler scopes them against the binding.
	w = doRequest(r, "/attempts/"+uuid.NewString()+"/notes", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireMonitorJWTRejectsParticipantToken(t *testing.T) {
	r, auth := newTestRouter(t)

	examID := uuid.New()
	token, err := auth.IssueParticipantToken(&model.Attempt{
		ID:         uuid.New(),
		ExamID:     examID,
		ExamineeID: 7,
	})
	require.NoError(t, err)

	w := doRequest(r, "/exams/"+examID.String()+"/attempts", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, "/exams/"+examID.String()+"/attempts", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
