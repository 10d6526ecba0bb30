package http

import (
	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/http/handlers"
	"github.com/campaignhub/backend/internal/metrics"
	"github.com/campaignhub/backend/internal/middleware"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	sessions *session.Manager,
	userRepo repositories.UserRepository,
	m *metrics.Metrics,
	authHandler *handlers.AuthHandler,
	contactHandler *handlers.ContactHandler,
	campaignHandler *handlers.CampaignHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	settingsHandler *handlers.SettingsHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AppBaseURL,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
		AllowCredentials: true,
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	if m != nil {
		app.Use(middleware.MetricsMiddleware(m))
	}

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Credential endpoints share a stricter rate limit than the rest of the
	// API. Without redis the limiter degrades to a pass-through.
	authLimit := func(c *fiber.Ctx) error { return c.Next() }
	if rdb != nil {
		authLimit = middleware.RateLimitMiddleware(rdb, cfg.AuthRateLimit, cfg.AuthRateLimitWindow)
	}

	// Auth (public)
	api.Post("/register", authLimit, authHandler.Register)
	api.Post("/login", authLimit, authHandler.Login)
	api.Post("/logout", authHandler.Logout)
	api.Get("/user", authHandler.User)
	api.Post("/forgot-password", authLimit, authHandler.ForgotPassword)
	api.Post("/reset-password", authLimit, authHandler.ResetPassword)

	// Meta (public, no auth required)
	metaHandler := handlers.NewMetaHandler()
	api.Get("/meta/campaign-statuses", metaHandler.GetCampaignStatuses)
	api.Get("/meta/message-statuses", metaHandler.GetMessageStatuses)

	// Protected endpoints
	protected := api.Group("", middleware.SessionMiddleware(cfg, sessions, userRepo, log))

	// Contacts
	protected.Post("/contacts", contactHandler.Create)
	protected.Get("/contacts", contactHandler.List)
	protected.Post("/contacts/import", contactHandler.ImportCSV)
	protected.Post("/contacts/batch-delete", contactHandler.BatchDelete)
	protected.Get("/contacts/:id", contactHandler.Get)
	protected.Put("/contacts/:id", contactHandler.Update)
	protected.Delete("/contacts/:id", contactHandler.Delete)

	// Campaigns
	protected.Post("/campaigns", campaignHandler.Create)
	protected.Get("/campaigns", campaignHandler.List)
	protected.Get("/campaigns/:id", campaignHandler.Get)
	protected.Put("/campaigns/:id", campaignHandler.Update)
	protected.Delete("/campaigns/:id", campaignHandler.Delete)
	protected.Post("/campaigns/:id/launch", campaignHandler.Launch)

	// Analytics. Export routes are registered before the :id route so the
	// literal segment wins.
	protected.Get("/analytics", analyticsHandler.List)
	protected.Post("/analytics/update-metrics", analyticsHandler.Update)
	protected.Get("/analytics/export/csv", analyticsHandler.ExportCSV)
	protected.Get("/analytics/export/pdf", analyticsHandler.ExportPDF)
	protected.Get("/analytics/:id", analyticsHandler.GetByCampaign)

	// Settings
	protected.Get("/settings", settingsHandler.Get)
	protected.Put("/settings", settingsHandler.Update)
	protected.Get("/settings/validate", settingsHandler.Validate)

	// WebSocket
	if wsHub != nil {
		app.Use("/ws", handlers.WSUpgradeMiddleware())
		app.Get("/ws", websocket.New(wsHub.HandleWS))
	}
}
