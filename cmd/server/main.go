package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/ujione-id/ujione-backend/internal/broadcast"
	"github.com/ujione-id/ujione-backend/internal/config"
	"github.com/ujione-id/ujione-backend/internal/database"
	"github.com/ujione-id/ujione-backend/internal/handler"
	"github.com/ujione-id/ujione-backend/internal/logger"
	"github.com/ujione-id/ujione-backend/internal/repository"
	"github.com/ujione-id/ujione-backend/internal/router"
	"github.com/ujione-id/ujione-backend/internal/service"
	"github.com/ujione-id/ujione-backend/internal/validator"
	"github.com/ujione-id/ujione-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting UjiOne Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examineeRepo := repository.NewExamineeRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	leaderboard := repository.NewLeaderboard(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	hub := broadcast.NewHub(rdb, log)
	authService := service.NewAuthService(cfg)
	snapshotBuilder := service.NewSnapshotBuilder(examRepo, questionRepo, snapshotRepo, nil)
	sessionService := service.NewSessionService(
		attemptRepo, examRepo, examineeRepo, snapshotRepo, answerRepo,
		snapshotBuilder, authService, leaderboard, hub, log, nil,
	)
	answerService := service.NewAnswerService(
		attemptRepo, snapshotRepo, answerRepo, leaderboard, hub, log,
	)
	monitorService := service.NewMonitorService(attemptRepo, examRepo, leaderboard, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Participant: handler.NewParticipantHandler(sessionService),
		WS:          handler.NewWSHandler(sessionService, answerService, log, cfg.AllowedOrigins),
		Monitor:     handler.NewMonitorHandler(hub, monitorService, sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Expiration Sweeper ─────────────────────────────────────
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	sweeper := worker.NewSweeper(attemptRepo, sessionService, log, nil)

	scheduler := cron.New(cron.WithSeconds())
	schedule := fmt.Sprintf("@every %s", cfg.SweepInterval)
	if _, err := scheduler.AddFunc(schedule, func() { sweeper.SweepOnce(sweeperCtx) }); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule sweeper")
	}
	scheduler.Start()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweeper; a final pass closes what it can before exit.
	sweeperCancel()
	<-scheduler.Stop().Done()

	finalCtx, finalCancel := context.WithTimeout(context.Background(), 5*time.Second)
	sweeper.SweepOnce(finalCtx)
	finalCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
