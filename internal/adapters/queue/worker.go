package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	redisclient "github.com/florencygajera/CRM-backend/internal/infrastructure/clients/redis"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/notifications"
)

const (
	popTimeout      = 5 * time.Second
	promoteInterval = 30 * time.Second
	promoteBatch    = 100
)

// Worker drains the notification queue and delivers messages over SMTP.
// Delivery outcomes are recorded in notification_log. A failed send is
// logged and dropped; the queue is not a retry mechanism.
type Worker struct {
	redis  *redisclient.Client
	sender *notifications.EmailSender
	db     *sqlx.DB
	logger zerolog.Logger
}

// NewWorker creates a notification delivery worker
func NewWorker(redisClient *redisclient.Client, sender *notifications.EmailSender, db *sqlx.DB, logger zerolog.Logger) *Worker {
	return &Worker{
		redis:  redisClient,
		sender: sender,
		db:     db,
		logger: logger,
	}
}

// Run blocks until the context is cancelled, interleaving queue draining
// with promotion of due delayed messages
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	w.logger.Info().Msg("notification worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("notification worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.promoteDue(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("failed to promote delayed notifications")
			}
		default:
			if err := w.drainOne(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("failed to process notification")
			}
		}
	}
}

// drainOne blocks up to popTimeout for one queued message and delivers it
func (w *Worker) drainOne(ctx context.Context) error {
	result, err := w.redis.Client().BRPop(ctx, popTimeout, notificationQueueKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	// BRPop returns [key, value]
	if len(result) != 2 {
		return nil
	}
	return w.deliver(ctx, []byte(result[1]))
}

// promoteDue moves delayed messages whose time has come onto the live queue
func (w *Worker) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	members, err := w.redis.Client().ZRangeByScore(ctx, notificationDelayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range members {
		removed, err := w.redis.Client().ZRem(ctx, notificationDelayedKey, member).Result()
		if err != nil {
			return err
		}
		// Another worker already claimed it
		if removed == 0 {
			continue
		}
		if err := w.redis.Client().LPush(ctx, notificationQueueKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, payload []byte) error {
	var msg providers.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		w.logger.Error().Err(err).Msg("discarding malformed notification payload")
		return nil
	}

	sendErr := w.sender.Send(msg.Recipient, msg.Subject, msg.Body, msg.AttachmentName, msg.Attachment)

	status := "SENT"
	errText := ""
	if sendErr != nil {
		status = "FAILED"
		errText = sendErr.Error()
		w.logger.Error().
			Err(sendErr).
			Str("type", msg.Type).
			Str("recipient", msg.Recipient).
			Msg("notification delivery failed")
	} else {
		w.logger.Info().
			Str("type", msg.Type).
			Str("recipient", msg.Recipient).
			Msg("notification delivered")
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO notification_log (id, type, recipient, subject, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), msg.Type, msg.Recipient, msg.Subject, status, errText, time.Now())
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to record notification log entry")
	}
	return nil
}
