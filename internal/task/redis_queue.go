package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisQueueKey is the list key messages are pushed to.
const redisQueueKey = "grind:task:queue"

// redisPopTimeout bounds each blocking pop so shutdown is responsive
// even against servers that drop idle blocking connections.
const redisPopTimeout = 5 * time.Second

// RedisQueue implements Queue on a Redis list. LPUSH on the producer
// side and BRPOP on the consumer side give FIFO hand-off with blocking
// consumers; durability is the broker's, so no startup recovery pass
// is needed beyond resetting orphaned in_progress rows.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a queue backed by the given Redis client.
func NewRedisQueue(client *redis.Client, logger *slog.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		key:    redisQueueKey,
		logger: logger.With("component", "redis_queue"),
	}
}

// NewRedisQueueFromURL connects to Redis using a redis:// URL and
// verifies connectivity before returning the queue.
func NewRedisQueueFromURL(ctx context.Context, rawURL string, logger *slog.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to ping redis: %v", ErrQueueUnavailable, err)
	}

	return NewRedisQueue(client, logger), nil
}

// Enqueue pushes a message onto the list.
func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("%w: failed to enqueue message: %v", ErrQueueUnavailable, err)
	}

	q.logger.Debug("message enqueued", "task_id", msg.TaskID)
	return nil
}

// Dequeue blocks until a message is available or the context is done.
// BRPOP hands each list element to exactly one of the blocked
// consumers, which is what gives the queue its single-delivery shape.
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, error) {
	for {
		res, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Pop timed out with an empty list; keep waiting.
				continue
			}
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			return Message{}, fmt.Errorf("%w: failed to dequeue message: %v", ErrQueueUnavailable, err)
		}

		// BRPOP returns [key, value].
		if len(res) != 2 {
			return Message{}, fmt.Errorf("%w: unexpected BRPOP reply length %d", ErrQueueUnavailable, len(res))
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			q.logger.Error("discarding undecodable queue message", "error", err)
			continue
		}

		return msg, nil
	}
}

// Close releases the underlying Redis client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
