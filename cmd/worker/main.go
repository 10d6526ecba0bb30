package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campaignhub/backend/internal/config"
	"github.com/campaignhub/backend/internal/db"
	"github.com/campaignhub/backend/internal/events"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/campaignhub/backend/internal/services"
	"go.uber.org/zap"
)

// The worker launches scheduled campaigns. It shares the campaign service
// with the API so a scheduled launch runs the exact same pipeline as a
// manual one.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	campaignRepo := repositories.NewCampaignRepo(pool)
	contactRepo := repositories.NewContactRepo(pool)
	settingsRepo := repositories.NewSettingsRepo(pool)
	analyticsRepo := repositories.NewAnalyticsRepo(pool)
	messageRepo := repositories.NewMessageRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	sender := services.NewWhatsAppClient(cfg.WhatsAppAPIURL, time.Duration(cfg.SendTimeoutMS)*time.Millisecond, log)
	campaignService := services.NewCampaignService(campaignRepo, contactRepo, settingsRepo,
		analyticsRepo, messageRepo, auditRepo, sender, publisher, nil, log)

	log.Info("worker started", zap.Duration("interval", cfg.ScheduleInterval))

	ticker := time.NewTicker(cfg.ScheduleInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			campaignService.LaunchDueScheduled(ctx)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
