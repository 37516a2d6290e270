package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/florencygajera/CRM-backend/internal/adapters/queue"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/redis"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/notifications"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
	"github.com/florencygajera/CRM-backend/pkg/config"
)

// The worker drains the notification queue: confirmations and receipts as
// they arrive, reminders once their due time passes.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-worker", cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	sender := notifications.NewEmailSender(&cfg.SMTP)

	worker := queue.NewWorker(redisClient, sender, pgClient.DBX(), *logger)

	logger.Info().Msg("Notification worker starting")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("Worker stopped with error")
	}
	logger.Info().Msg("Notification worker stopped")
}
