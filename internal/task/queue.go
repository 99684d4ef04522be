// Package task runs avatar uploads off the request path.
package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/pkg/logger"
)

var (
	ErrQueueFull   = errors.New("job queue full")
	ErrQueueClosed = errors.New("job queue closed")
)

// AvatarJob carries an uploaded avatar to the worker.
type AvatarJob struct {
	ProfileID  string    `json:"profile_id"`
	Filename   string    `json:"filename"`
	Content    []byte    `json:"content"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
}

// Queue accepts jobs. Callers only learn whether the job was accepted.
type Queue interface {
	Enqueue(ctx context.Context, job AvatarJob) error
}

// Handler processes a single job.
type Handler func(ctx context.Context, job AvatarJob) error

// Consumer drives a Handler with a pool of workers. Start returns a stop
// function that waits for in-flight jobs up to the context deadline.
type Consumer interface {
	Start(workers int, handle Handler) func(context.Context) error
}

// Backend is a queue that can also be consumed in-process.
type Backend interface {
	Queue
	Consumer
}

const jobTimeout = 30 * time.Second

// process runs handle with retries. It returns the last error once
// maxAttempts is exhausted.
func process(handle Handler, job AvatarJob, maxAttempts int, backoff time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var err error
	for job.Attempt < maxAttempts {
		job.Attempt++
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		err = handle(ctx, job)
		cancel()
		if err == nil {
			if !job.EnqueuedAt.IsZero() {
				logger.Debug("avatar job done",
					zap.String("profile_id", job.ProfileID),
					zap.Duration("latency", time.Since(job.EnqueuedAt)))
			}
			return nil
		}
		logger.Warn("avatar job failed",
			zap.String("profile_id", job.ProfileID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))
		if job.Attempt < maxAttempts && backoff > 0 {
			time.Sleep(time.Duration(job.Attempt) * backoff)
		}
	}
	logger.Error("avatar job dropped", zap.String("profile_id", job.ProfileID), zap.Error(err))
	return err
}
