package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ujione-id/ujione-backend/internal/config"
	"github.com/ujione-id/ujione-backend/internal/handler"
	"github.com/ujione-id/ujione-backend/internal/middleware"
	"github.com/ujione-id/ujione-backend/internal/response"
	"github.com/ujione-id/ujione-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Participant *handler.ParticipantHandler
	WS          *handler.WSHandler
	Monitor     *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Participant Group (Public Join) ────────────────────────────
	participantAPI := router.Group("/api/v1/participant")
	{
		participantAPI.POST("/join", handlers.Participant.Join)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/attempt/stream",
			middleware.RequireParticipantWSAuth(authService),
			handlers.WS.AttemptStream)
		ws.GET("/exams/:exam_id/monitor",
			middleware.RequireMonitorJWT(authService),
			handlers.Monitor.MonitorStream)
	}

	// ─── 3. Monitor Group (Monitor JWT) ────────────────────────────────
	monitorAPI := router.Group("/api/v1")
	monitorAPI.Use(middleware.RequireMonitorJWT(authService))
	{
		monitorAPI.GET("/exams/:exam_id/attempts", handlers.Monitor.ListAttempts)
		monitorAPI.GET("/exams/:exam_id/leaderboard", handlers.Monitor.GetLeaderboard)
		monitorAPI.PATCH("/attempts/:id/notes", handlers.Monitor.UpdateNotes)
		monitorAPI.POST("/attempts/:id/retake", handlers.Monitor.GrantRetake)
	}

	return router
}
