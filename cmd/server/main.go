package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-service/internal/cache"
	"github.com/quizforge/quiz-service/internal/config"
	"github.com/quizforge/quiz-service/internal/handlers"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/repositories/memory"
	"github.com/quizforge/quiz-service/internal/repositories/postgres"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
	"github.com/quizforge/quiz-service/internal/validator"
	"github.com/quizforge/quiz-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger *slog.Logger
	if cfg.Environment == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(logger)

	repo, err := setupRepository(cfg, logger)
	if err != nil {
		logger.Error("Failed to set up storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	cacheService := setupCache(cfg, logger)

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	quizService := services.NewQuizService(repo, cacheService, publisher, validator.New(), logger)
	sessionService := services.NewSessionService(repo, quizService, publisher, logger)
	exportService := services.NewExportService(quizService, sessionService, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	manager := handlers.NewHandlerManager(
		quizService,
		sessionService,
		exportService,
		cfg.Auth,
		utils.NewSlogLogger(logger),
	)
	manager.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}

// setupRepository connects to Postgres, or serves from memory when
// DATABASE_URL is set to "memory" (local development, tests).
func setupRepository(cfg *config.Config, logger *slog.Logger) (repositories.Repository, error) {
	if cfg.DatabaseURL == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewRepository(), nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Quiz{}, &models.Session{}); err != nil {
		return nil, err
	}
	return postgres.NewRepository(db), nil
}

func setupCache(cfg *config.Config, logger *slog.Logger) cache.CacheService {
	client, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, quiz cache disabled", "error", err)
		return cache.NoopCache{}
	}
	return cache.NewRedisCache(client, logger)
}
