package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	config "github.com/maheshrc27/threads-poster/configs"
	"github.com/maheshrc27/threads-poster/internal/api"
	"github.com/maheshrc27/threads-poster/internal/api/handlers"
	"github.com/maheshrc27/threads-poster/internal/api/middleware"
	job "github.com/maheshrc27/threads-poster/internal/jobs"
	"github.com/maheshrc27/threads-poster/internal/queue"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a cycle now, then one every POST_INTERVAL_HOURS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	}
}

func runDaemon(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBot(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	session, err := b.auth.LoginWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	postJob := job.NewPostCycleJob(ctx, b.auth, b.threads, b.cycle, session)
	schedule := fmt.Sprintf("@every %s", cfg.PostInterval)

	var trigger handlers.CycleTrigger = postJob
	runInitial := postJob.Run
	c := cron.New()

	if cfg.RedisURI != "" {
		redisConn, err := redisConnOpt(cfg.RedisURI)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URI: %w", err)
		}
		client := asynq.NewClient(redisConn)
		defer client.Close()

		q := queue.NewQueue(postJob, client, cfg.PostInterval)
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency:     1,
			ShutdownTimeout: 30 * time.Second,
		})
		if err := server.Start(q.NewServeMux()); err != nil {
			return fmt.Errorf("start queue worker: %w", err)
		}
		defer server.Shutdown()

		if err := c.AddFunc(schedule, q.EnqueueScheduled); err != nil {
			return fmt.Errorf("schedule cycles: %w", err)
		}
		trigger = q
		runInitial = q.EnqueueScheduled
		slog.Info("cycles are dispatched through redis", "addr", cfg.RedisURI)
	} else if err := c.AddFunc(schedule, postJob.Run); err != nil {
		return fmt.Errorf("schedule cycles: %w", err)
	}

	if cfg.StatusAddr != "" {
		status := handlers.NewStatusHandler(ctx, postJob, trigger, b.store, b.history)
		app := api.NewApp(status, middleware.NewAuthMiddleware(cfg.StatusAPIKey))
		go func() {
			if err := app.Listen(cfg.StatusAddr); err != nil {
				slog.Error("status server stopped", "error", err)
			}
		}()
		defer func() {
			if err := app.Shutdown(); err != nil {
				slog.Warn("failed to shut down status server", "error", err)
			}
		}()
		slog.Info("status server listening", "addr", cfg.StatusAddr)
	}

	c.Start()
	defer c.Stop()
	slog.Info("bot started", "interval", cfg.PostInterval, "store", cfg.StorePath)

	runInitial()

	<-ctx.Done()
	slog.Info("shutting down, waiting for the current cycle")
	c.Stop()
	waitForCycle(postJob, 2*time.Minute)
	slog.Info("shutdown complete")
	return nil
}

func waitForCycle(j *job.PostCycleJob, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		j.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("cycle did not finish before shutdown timeout")
	}
}

// redisConnOpt accepts a redis:// URI or a bare host:port address.
func redisConnOpt(uri string) (asynq.RedisConnOpt, error) {
	if strings.Contains(uri, "://") {
		return asynq.ParseRedisURI(uri)
	}
	return asynq.RedisClientOpt{Addr: uri}, nil
}
