package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	config "github.com/maheshrc27/threads-poster/configs"
	"github.com/maheshrc27/threads-poster/internal/logging"
	"github.com/maheshrc27/threads-poster/internal/repository"
	"github.com/maheshrc27/threads-poster/internal/service"
	"github.com/maheshrc27/threads-poster/pkg/utils"
)

// bot is the set of services shared by the run and once commands.
type bot struct {
	cfg     *config.Config
	store   repository.PostRepository
	history repository.PostingHistoryRepository
	threads service.ThreadsService
	auth    service.AuthService
	cycle   service.CycleService

	db  *sql.DB
	log io.Closer
}

func newBot(ctx context.Context, cfg *config.Config) (*bot, error) {
	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	b := &bot{
		cfg:   cfg,
		store: repository.NewPostRepository(cfg.StorePath),
		log:   logCloser,
	}

	if cfg.History.URI != "" {
		db, err := repository.OpenDatabase(ctx, cfg.History.Driver, cfg.History.URI)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open history database: %w", err)
		}
		b.db = db
		history := repository.NewPostingHistoryRepository(db, cfg.History.Driver)
		if err := history.Migrate(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate history database: %w", err)
		}
		b.history = history
		slog.Info("posting history enabled", "driver", cfg.History.Driver)
	}

	var objects service.ObjectStore
	if cfg.R2Enabled() {
		r2, err := service.NewR2Service(ctx, *cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		objects = r2
		slog.Info("local images will be uploaded to R2", "bucket", cfg.R2.BucketName)
	}

	publishPolicy := utils.RetryPolicy{MaxAttempts: cfg.MaxRetries, Delay: cfg.PublishRetryDelay}
	b.threads = service.NewThreadsService(cfg.ThreadsAPIURL, service.NewMediaService(objects), publishPolicy, cfg.HTTPTimeout)
	b.auth = service.NewAuthService(*cfg, b.threads)
	b.cycle = service.NewCycleService(b.store, b.history, service.DelayConfig{Min: cfg.DelayMin, Max: cfg.DelayMax})
	return b, nil
}

func (b *bot) Close() {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			slog.Warn("failed to close history database", "error", err)
		}
	}
	if b.log != nil {
		_ = b.log.Close()
	}
}
