package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/db"
	"github.com/campaignhub/backend/internal/events"
	apphttp "github.com/campaignhub/backend/internal/http"
	"github.com/campaignhub/backend/internal/http/handlers"
	"github.com/campaignhub/backend/internal/metrics"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/services"
	"github.com/campaignhub/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type repoSet struct {
	accounts  repositories.AccountRepository
	users     repositories.UserRepository
	contacts  repositories.ContactRepository
	campaigns repositories.CampaignRepository
	analytics repositories.AnalyticsRepository
	messages  repositories.MessageRepository
	settings  repositories.SettingsRepository
	audit     repositories.AuditRepository
}

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backend
	var repos repoSet
	switch cfg.StorageDriver {
	case "memory":
		mem := repositories.NewMemoryDB()
		repos = repoSet{
			accounts:  repositories.NewMemoryAccountRepo(mem),
			users:     repositories.NewMemoryUserRepo(mem),
			contacts:  repositories.NewMemoryContactRepo(mem),
			campaigns: repositories.NewMemoryCampaignRepo(mem),
			analytics: repositories.NewMemoryAnalyticsRepo(mem),
			messages:  repositories.NewMemoryMessageRepo(mem),
			settings:  repositories.NewMemorySettingsRepo(mem),
			audit:     repositories.NewMemoryAuditRepo(mem),
		}
		log.Info("using in-memory storage, data will not survive a restart")
	default:
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		repos = repoSet{
			accounts:  repositories.NewAccountRepo(pool),
			users:     repositories.NewUserRepo(pool),
			contacts:  repositories.NewContactRepo(pool),
			campaigns: repositories.NewCampaignRepo(pool),
			analytics: repositories.NewAnalyticsRepo(pool),
			messages:  repositories.NewMessageRepo(pool),
			settings:  repositories.NewSettingsRepo(pool),
			audit:     repositories.NewAuditRepo(pool),
		}
	}

	// Redis backs sessions, rate limiting and the event stream. With the
	// memory session store it is optional.
	var rdb *redis.Client
	if cfg.SessionStore == "redis" || cfg.StorageDriver != "memory" {
		var err error
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Sessions
	var sessionStore session.Store
	if cfg.SessionStore == "memory" || rdb == nil {
		sessionStore = session.NewMemoryStore()
	} else {
		sessionStore = session.NewRedisStore(rdb)
	}
	sessions := session.NewManager(sessionStore, cfg.SessionTTL)

	// Events
	var publisher events.Publisher = events.NopPublisher{}
	var subscriber events.Subscriber
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	}

	// Metrics
	m := metrics.New(prometheus.DefaultRegisterer)
	sessions.SetActiveGauge(m.ActiveSessions)

	// Services
	sender := services.NewWhatsAppClient(cfg.WhatsAppAPIURL, time.Duration(cfg.SendTimeoutMS)*time.Millisecond, log)
	var mailer services.EmailSender
	if cfg.ResendAPIKey != "" {
		mailer = services.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom, log)
	} else {
		mailer = services.NewLogMailer(log)
	}

	authService := services.NewAuthService(cfg, repos.accounts, repos.users, repos.audit, sessions, mailer, log)
	contactService := services.NewContactService(repos.contacts, repos.audit, m, log)
	campaignService := services.NewCampaignService(repos.campaigns, repos.contacts, repos.settings,
		repos.analytics, repos.messages, repos.audit, sender, publisher, m, log)
	analyticsService := services.NewAnalyticsService(repos.analytics, repos.campaigns, log)
	settingsService := services.NewSettingsService(repos.settings, repos.audit, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, sessions, repos.users, cfg, log)
	contactHandler := handlers.NewContactHandler(contactService, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, log)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, log)
	settingsHandler := handlers.NewSettingsHandler(settingsService, log)

	var wsHub *handlers.WSHub
	if subscriber != nil {
		wsHub = handlers.NewWSHub(cfg, sessions, repos.users, subscriber, log)
		wsHub.Start(ctx)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, sessions, repos.users, m,
		authHandler, contactHandler, campaignHandler, analyticsHandler, settingsHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
