package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"devpair-be/internal/logger"
)

// RabbitMQ publishes reconcile jobs to a durable queue so any worker
// instance can pick them up.
type RabbitMQ struct {
	conn  *amqp.Connection
	queue string

	mu sync.Mutex
	ch *amqp.Channel

	retryDelay time.Duration
}

var _ Queue = (*RabbitMQ)(nil)

func DialRabbitMQ(url, queue string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitMQ{conn: conn, queue: queue, ch: ch, retryDelay: 5 * time.Second}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    job.EnqueuedAt,
		Body:         body,
	})
}

// Run consumes on its own channel. Failed jobs are requeued after a pause.
func (r *RabbitMQ) Run(ctx context.Context, h Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(r.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", r.queue, err)
	}

	return r.consume(ctx, deliveries, h)
}

func (r *RabbitMQ) consume(ctx context.Context, deliveries <-chan amqp.Delivery, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery channel closed")
			}
			r.handleDelivery(ctx, d, h)
		}
	}
}

// handleDelivery acks a handled job, requeues a failed one after
// retryDelay and drops a body that is not a job.
func (r *RabbitMQ) handleDelivery(ctx context.Context, d amqp.Delivery, h Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Log.Error("drop malformed reconcile job", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := h(ctx, job); err != nil {
		logger.Log.Warn("reconcile job failed, requeueing",
			zap.String("channel_id", job.ChannelID),
			zap.Error(err),
		)
		t := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
		_ = d.Nack(false, true)
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Log.Warn("ack reconcile job", zap.String("channel_id", job.ChannelID), zap.Error(err))
	}
}

func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}
