package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/threads-poster/internal/models"
)

// defaultCycleTimeout bounds a queued cycle when no uniqueness window is set.
const defaultCycleTimeout = 24 * time.Hour

// ErrAlreadyQueued is returned when a cycle task is still pending or running.
var ErrAlreadyQueued = fmt.Errorf("%w: cycle task already queued", models.ErrCycleBusy)

// EnqueueCycle enqueues a cycle task. The task payload is always empty so
// every enqueue maps to the same uniqueness key; trigger is only logged.
func EnqueueCycle(asynqClient *asynq.Client, trigger string, uniqueFor time.Duration) error {
	timeout := uniqueFor
	if timeout <= 0 {
		timeout = defaultCycleTimeout
	}

	opts := []asynq.Option{asynq.MaxRetry(0), asynq.Timeout(timeout)}
	if uniqueFor > 0 {
		opts = append(opts, asynq.Unique(uniqueFor))
	}

	info, err := asynqClient.Enqueue(asynq.NewTask(TaskTypeRunCycle, nil), opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrAlreadyQueued
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskTypeRunCycle, err)
	}

	slog.Info("cycle task enqueued", "trigger", trigger, "task_id", info.ID, "requested_at", time.Now())
	return nil
}

// EnqueueScheduled is the cron entry point in Redis mode.
func (q *Queue) EnqueueScheduled() {
	err := EnqueueCycle(q.client, "schedule", q.uniqueFor)
	if errors.Is(err, ErrAlreadyQueued) {
		slog.Warn("previous cycle still queued, skipping this tick")
		return
	}
	if err != nil {
		slog.Info(err.Error())
	}
}

// Trigger enqueues a cycle on demand. It returns ErrAlreadyQueued when a
// cycle is pending or running and any other error when Redis is unavailable.
func (q *Queue) Trigger(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return EnqueueCycle(q.client, "api", q.uniqueFor)
}
