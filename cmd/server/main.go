package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/db"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/embedding"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/handler"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/router"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/service"
)

func main() {
	cfg := config.Load()

	middleware.InitLogger(cfg.LogLevel, "civicq-api")
	log := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	handler.InitMetrics(pool)

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	embedder := embedding.NewClient(embedding.Config{
		APIKey:     cfg.EmbeddingAPIKey,
		BaseURL:    cfg.EmbeddingBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDim,
		Timeout:    cfg.Clustering.EmbeddingTimeout,
		Logger:     log,
	})

	// Repositories
	auditRepo := repository.NewAuditRepo(pool)
	questionRepo := repository.NewQuestionRepo(pool, auditRepo)
	voteRepo := repository.NewVoteRepo(pool, auditRepo)
	clusterRepo := repository.NewClusterRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	// Services
	trustSvc := service.NewTrustService()
	rankSvc := service.NewRankService(pool, auditRepo)
	clusterSvc := service.NewClusterService(pool, clusterRepo, voteRepo, auditRepo, log)
	moderationSvc := service.NewModerationService(pool, voteRepo, clusterRepo, auditRepo)
	questionSvc := service.NewQuestionService(questionRepo, embedder, clusterSvc, moderationSvc, cache, log)
	voteSvc := service.NewVoteService(voteRepo, trustSvc, cache, log)
	auditSvc := service.NewAuditService(auditRepo)
	statsSvc := service.NewStatsService(statsRepo)

	// Background workers
	rankWorker := service.NewRankWorker(pool, rankSvc, questionRepo, clusterRepo, cache, cfg, log)
	go rankWorker.Start(ctx)

	decayWorker := service.NewDecayWorker(questionRepo, rankSvc, questionSvc, cfg, log)
	go decayWorker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "CivicQ API",
		ServerHeader: "CivicQ",
	})

	h := &router.Handlers{
		Question:   handler.NewQuestionHandler(questionSvc, cfg),
		Vote:       handler.NewVoteHandler(voteSvc, cfg),
		Moderation: handler.NewModerationHandler(moderationSvc),
		Audit:      handler.NewAuditHandler(auditSvc),
		Export:     handler.NewExportHandler(auditSvc),
		Stats:      handler.NewStatsHandler(statsSvc),
		Health:     handler.NewHealthHandler(pool, cache.Client(), cfg.EmbeddingAPIKey != ""),
	}
	router.Setup(app, h, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received, draining connections")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Environment).
		Msg("civicq backend starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}

	log.Info().Msg("civicq backend stopped")
}
