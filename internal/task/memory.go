package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/pkg/logger"
)

// MemoryQueue 进程内异步队列：有界 channel + 固定 worker
type MemoryQueue struct {
	ch          chan AvatarJob
	maxAttempts int
	backoff     time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(size, maxAttempts int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{ch: make(chan AvatarJob, size), maxAttempts: maxAttempts, backoff: time.Second}
}

// Enqueue never blocks; a full buffer is reported as ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, job AvatarJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
		logger.Warn("avatar queue full, drop job", zap.String("profile_id", job.ProfileID))
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Start(workers int, handle Handler) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range q.ch {
				_ = process(handle, job, q.maxAttempts, q.backoff)
			}
		}()
	}
	return func(ctx context.Context) error {
		q.mu.Lock()
		if !q.closed {
			q.closed = true
			close(q.ch)
		}
		q.mu.Unlock()

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

// Len returns the number of buffered jobs.
func (q *MemoryQueue) Len() int { return len(q.ch) }
