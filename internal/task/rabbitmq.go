package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/pkg/logger"
)

// RabbitQueue publishes jobs to a durable queue and consumes them with
// manual acks.
type RabbitQueue struct {
	conn        *amqp.Connection
	queue       string
	maxAttempts int
	backoff     time.Duration
	mu          sync.Mutex
	pubCh       *amqp.Channel
}

func DialRabbitQueue(url, queue string, maxAttempts int) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitQueue{conn: conn, queue: queue, maxAttempts: maxAttempts, backoff: time.Second, pubCh: ch}, nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, job AvatarJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.pubCh.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    job.EnqueuedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

func (q *RabbitQueue) Start(workers int, handle Handler) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	ch, err := q.conn.Channel()
	if err != nil {
		logger.Error("open consumer channel", zap.Error(err))
		return func(context.Context) error { return err }
	}
	if err := ch.Qos(workers, 0, false); err != nil {
		logger.Warn("set qos", zap.Error(err))
	}
	tag := "avatar-" + uuid.NewString()
	deliveries, err := ch.Consume(q.queue, tag, false, false, false, false, nil)
	if err != nil {
		logger.Error("start consumer", zap.Error(err))
		_ = ch.Close()
		return func(context.Context) error { return err }
	}
	return runConsumer(ch, tag, deliveries, workers, func(job AvatarJob) error {
		return process(handle, job, q.maxAttempts, q.backoff)
	})
}

// consumerChannel is the part of *amqp.Channel the consumer loop needs.
type consumerChannel interface {
	Cancel(consumer string, noWait bool) error
	Close() error
}

// runConsumer acks each delivery after handle returns. Stopping cancels the
// consumer first, lets in-flight jobs ack, and closes the channel last.
func runConsumer(ch consumerChannel, tag string, deliveries <-chan amqp.Delivery, workers int, handle func(AvatarJob) error) func(context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				var job AvatarJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					logger.Error("discard malformed job", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				if err := handle(job); err != nil {
					_ = d.Nack(false, false)
					continue
				}
				if err := d.Ack(false); err != nil {
					logger.Warn("ack job", zap.String("profile_id", job.ProfileID), zap.Error(err))
				}
			}
		}()
	}

	return func(ctx context.Context) error {
		// Cancel 后 broker 不再投递，deliveries 排空后关闭
		if err := ch.Cancel(tag, false); err != nil {
			logger.Warn("cancel consumer", zap.String("tag", tag), zap.Error(err))
		}
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-ctx.Done():
			_ = ch.Close()
			return ctx.Err()
		}
		return ch.Close()
	}
}

// Close releases the publishing channel and the connection.
func (q *RabbitQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	_ = q.pubCh.Close()
	return q.conn.Close()
}
