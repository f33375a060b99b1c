package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"debate-arena/internal/domain"
)

// RedisFactCheckQueue реализует очередь проверок на базе Redis lists.
type RedisFactCheckQueue struct {
	client *redis.Client
	key    string
}

// NewRedisFactCheckQueue создаёт очередь по указанному ключу.
func NewRedisFactCheckQueue(client *redis.Client, key string) *RedisFactCheckQueue {
	return &RedisFactCheckQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisFactCheckQueue) Enqueue(ctx context.Context, job domain.FactCheckJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisFactCheckQueue) Pop(ctx context.Context) (domain.FactCheckJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FactCheckJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.FactCheckJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.FactCheckJob{}, err
		}
		if len(res) != 2 {
			return domain.FactCheckJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.FactCheckJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.FactCheckJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
