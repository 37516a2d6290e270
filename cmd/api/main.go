package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/florencygajera/CRM-backend/internal/adapters/database"
	"github.com/florencygajera/CRM-backend/internal/adapters/providers/payments"
	"github.com/florencygajera/CRM-backend/internal/adapters/queue"
	"github.com/florencygajera/CRM-backend/internal/api/handlers"
	"github.com/florencygajera/CRM-backend/internal/api/routes"
	"github.com/florencygajera/CRM-backend/internal/application/services"
	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/redis"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/observability"
	"github.com/florencygajera/CRM-backend/pkg/config"
)

func main() {
	// Load .env in development; a missing file is not an error
	_ = godotenv.Load()

	// Load configuration

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized successfully")

	// Initialize Redis client. Without it, bookings still work but
	// notifications are dropped.
	var notifier providers.Notifier
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Redis client; notifications disabled")
	} else {
		defer redisClient.Close()
		notifier = queue.NewRedisNotifier(redisClient)
		logger.Info().Msg("Redis client initialized successfully")
	}

	// Initialize adapters

	appointmentAdapter := database.NewAppointmentAdapter(pgClient)
	paymentAdapter := database.NewPaymentAdapter(pgClient)
	serviceAdapter := database.NewServiceAdapter(pgClient)
	staffAdapter := database.NewStaffAdapter(pgClient)
	customerAdapter := database.NewCustomerAdapter(pgClient)

	paymentProvider := payments.NewPaymentProvider(&cfg.Razorpay, cfg.Payments.Provider)
	logger.Info().Str("provider", paymentProvider.Name()).Msg("Payment provider initialized")

	// Initialize services

	availabilityService := services.NewAvailabilityService(appointmentAdapter, serviceAdapter, staffAdapter)
	appointmentService := services.NewAppointmentService(appointmentAdapter, serviceAdapter, customerAdapter, notifier, metrics)

	receiptService := services.NewReceiptService()
	paymentService := services.NewPaymentService(
		paymentAdapter,
		appointmentAdapter,
		customerAdapter,
		paymentProvider,
		notifier,
		receiptService,
		metrics,
		&cfg.Payments,
	)
	refundService := services.NewRefundService(paymentService, paymentAdapter, paymentProvider, &cfg.Payments)
	webhookService := services.NewWebhookService(paymentService, paymentProvider)

	// Initialize handlers

	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, availabilityService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, refundService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)

	// Set up router

	router := routes.NewRouter(
		appointmentHandler,
		paymentHandler,
		webhookHandler,
		cfg.Auth.JWTSecret,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	logger.Info().Msg("Server stopped")
}
