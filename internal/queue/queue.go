// Package queue carries group reconciliation jobs from the request path to
// a background worker.
package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"devpair-be/internal/logger"
)

var ErrQueueFull = errors.New("queue: reconcile queue is full")

type Job struct {
	ChannelID  string    `json:"channel_id"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Publish(ctx context.Context, job Job) error
	// Run consumes jobs until ctx is done.
	Run(ctx context.Context, h Handler) error
}

// Local is an in-process queue backed by a buffered channel. Jobs are lost on
// restart; the periodic sweep covers that.
type Local struct {
	jobs chan Job
}

var _ Queue = (*Local)(nil)

func NewLocal(size int) *Local {
	return &Local{jobs: make(chan Job, size)}
}

func (l *Local) Publish(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	select {
	case l.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (l *Local) Run(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-l.jobs:
			if err := h(ctx, job); err != nil {
				logger.Log.Warn("reconcile job failed",
					zap.String("channel_id", job.ChannelID),
					zap.String("reason", job.Reason),
					zap.Error(err),
				)
			}
		}
	}
}

// Len reports queued jobs.
func (l *Local) Len() int { return len(l.jobs) }
