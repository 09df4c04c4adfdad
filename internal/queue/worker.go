package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleRunCycleTask(ctx context.Context, task *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)
	slog.Info("running queued cycle", "task_id", taskID)

	report, err := q.runner.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("run cycle: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("queued cycle finished", "cycle_id", report.CycleID, "succeeded", report.Succeeded, "failed", report.Failed)
	return nil
}

// NewServeMux registers the cycle handler.
func (q *Queue) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeRunCycle, q.HandleRunCycleTask)
	return mux
}
