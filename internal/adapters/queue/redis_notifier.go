package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/florencygajera/CRM-backend/internal/domain/providers"
	redisclient "github.com/florencygajera/CRM-backend/internal/infrastructure/clients/redis"
)

const (
	// notificationQueueKey holds messages ready for delivery
	notificationQueueKey = "notifications:queue"
	// notificationDelayedKey holds messages scored by their due unix time
	notificationDelayedKey = "notifications:delayed"
)

// RedisNotifier implements the Notifier interface on a Redis list plus a
// sorted set for delayed messages. The worker promotes due members from
// the set onto the list.
type RedisNotifier struct {
	client *redisclient.Client
}

// NewRedisNotifier creates a new Redis-backed notifier
func NewRedisNotifier(client *redisclient.Client) providers.Notifier {
	return &RedisNotifier{client: client}
}

// Enqueue queues a message for immediate delivery
func (n *RedisNotifier) Enqueue(ctx context.Context, msg *providers.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.client.Client().LPush(ctx, notificationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ScheduleAt queues a message for delivery at a future time. Times in the
// past are delivered on the worker's next promotion pass.
func (n *RedisNotifier) ScheduleAt(ctx context.Context, at time.Time, msg *providers.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	err = n.client.Client().ZAdd(ctx, notificationDelayedKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule notification: %w", err)
	}
	return nil
}
