package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/handler"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Question   *handler.QuestionHandler
	Vote       *handler.VoteHandler
	Moderation *handler.ModerationHandler
	Audit      *handler.AuditHandler
	Export     *handler.ExportHandler
	Stats      *handler.StatsHandler
	Health     *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	// Probes and metrics (before API group, unthrottled)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	readLimit := middleware.NewReadRateLimiter().Handler()
	submitLimit := middleware.NewQuestionSubmitRateLimiter().Handler()
	voteLimit := middleware.NewVoteRateLimiter().Handler()
	modLimit := middleware.NewModerationRateLimiter().Handler()
	auditLimit := middleware.NewAuditRateLimiter().Handler()

	// API routes
	api := app.Group("/api")

	// Question routes
	api.Post("/questions", h.Question.Submit, submitLimit)
	api.Put("/questions/:id", h.Question.Edit, submitLimit)
	api.Get("/questions/:id", h.Question.GetByID, readLimit)
	api.Get("/contests/:contestId/questions", h.Question.GetRanked, readLimit)

	// Vote routes
	api.Post("/votes", h.Vote.Cast, voteLimit)

	// Moderation routes
	api.Post("/questions/:id/moderate", h.Moderation.Moderate, modLimit)

	// Audit routes
	api.Get("/audit", h.Audit.List, auditLimit)
	api.Get("/audit/verify", h.Audit.Verify, auditLimit)
	api.Get("/audit/export", h.Export.Export, auditLimit)

	// Stats routes
	api.Get("/stats", h.Stats.GetStats, readLimit)
}
