package queue

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const notificationQueueKey = "queue:notifications"

// RedisBroker is the minimal broker surface the queue needs.
type RedisBroker interface {
	Push(jobID string) error
	Pop(timeout time.Duration) (string, error)
}

// RedisClient wraps a go-redis client as a job broker.
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a redis broker from an existing client.
func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{
		client: client,
		ctx:    context.Background(),
	}
}

// Push appends a job ID to the notification queue.
func (r *RedisClient) Push(jobID string) error {
	return r.client.LPush(r.ctx, notificationQueueKey, jobID).Err()
}

// Pop blocks up to timeout for the next job ID. Returns "" when the queue
// stayed empty.
func (r *RedisClient) Pop(timeout time.Duration) (string, error) {
	result, err := r.client.BRPop(r.ctx, timeout, notificationQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	if len(result) < 2 {
		return "", nil
	}
	return result[1], nil
}

// Close closes the underlying redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
