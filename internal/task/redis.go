package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/pkg/logger"
)

// RedisQueue keeps jobs in a Redis list: LPUSH to enqueue, BRPOP to consume.
type RedisQueue struct {
	client      *redis.Client
	key         string
	maxAttempts int
	backoff     time.Duration
	pollTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, key string, maxAttempts int) *RedisQueue {
	return &RedisQueue{
		client:      client,
		key:         key,
		maxAttempts: maxAttempts,
		backoff:     time.Second,
		pollTimeout: time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job AvatarJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Start(workers int, handle Handler) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.loop(stop, handle)
		}()
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *RedisQueue) loop(stop <-chan struct{}, handle Handler) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), q.pollTimeout+time.Second)
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		cancel()
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		if err != nil {
			logger.Warn("redis queue pop failed", zap.Error(err))
			select {
			case <-stop:
				return
			case <-time.After(q.pollTimeout):
			}
			continue
		}

		// res = [key, value]
		var job AvatarJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			logger.Error("discard malformed job", zap.Error(err))
			continue
		}
		_ = process(handle, job, q.maxAttempts, q.backoff)
	}
}

// Len returns the number of pending jobs.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
