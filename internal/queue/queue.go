package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/threads-poster/internal/models"
)

const TaskTypeRunCycle = "cycle:run"

// CycleRunner runs one posting cycle, failing fast when one is already running.
type CycleRunner interface {
	RunCycle(ctx context.Context) (models.CycleReport, error)
}

// Queue routes cycle triggers through Redis. Cycle tasks carry no payload, so
// the uniqueness lock admits one queued or running cycle per window across
// every process sharing the Redis instance.
type Queue struct {
	runner    CycleRunner
	client    *asynq.Client
	uniqueFor time.Duration
}

// NewQueue builds a queue. uniqueFor is how long an enqueued cycle blocks
// further enqueues and also bounds how long the cycle may run.
func NewQueue(runner CycleRunner, client *asynq.Client, uniqueFor time.Duration) *Queue {
	return &Queue{
		runner:    runner,
		client:    client,
		uniqueFor: uniqueFor,
	}
}
