package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/repository"
	"github.com/maheshrc27/threads-poster/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const previewLength = 50

// DelayConfig bounds the random pause between two posts, in seconds.
type DelayConfig struct {
	Min int
	Max int
}

type CycleService interface {
	// RunCycle publishes every pending record of the store once, in file order.
	RunCycle(ctx context.Context, publisher Publisher) (models.CycleReport, error)
}

type CycleOption func(*cycleService)

// WithClock replaces time.Now for posted_at stamps and report times.
func WithClock(now func() time.Time) CycleOption {
	return func(s *cycleService) { s.now = now }
}

// WithSleeper replaces the pause between posts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) CycleOption {
	return func(s *cycleService) { s.sleep = sleep }
}

// WithRandom replaces the source of the random delay; intN returns [0, n).
func WithRandom(intN func(n int) int) CycleOption {
	return func(s *cycleService) { s.intN = intN }
}

// WithFileCheck replaces the on-disk existence check for local images.
func WithFileCheck(exists func(path string) bool) CycleOption {
	return func(s *cycleService) { s.exists = exists }
}

type cycleService struct {
	store   repository.PostRepository
	history repository.PostingHistoryRepository
	delay   DelayConfig
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	intN    func(n int) int
	exists  func(path string) bool
}

// NewCycleService builds the engine. history may be nil.
func NewCycleService(store repository.PostRepository, history repository.PostingHistoryRepository, delay DelayConfig, opts ...CycleOption) CycleService {
	s := &cycleService{
		store:   store,
		history: history,
		delay:   delay,
		now:     time.Now,
		sleep:   utils.Sleep,
		intN:    rand.Intn,
		exists:  fileExists,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *cycleService) RunCycle(ctx context.Context, publisher Publisher) (models.CycleReport, error) {
	report := models.CycleReport{CycleID: newCycleID(), StartedAt: s.now()}
	log := slog.With("cycle_id", report.CycleID)

	table, err := s.store.Load(ctx)
	if err != nil {
		report.FinishedAt = s.now()
		log.Warn("skipping cycle, post store unavailable", "path", s.store.Path(), "error", err)
		return report, err
	}

	pending := table.Pending()
	log.Info("found pending posts", "count", len(pending), "path", s.store.Path())

	for i, rec := range pending {
		if err := ctx.Err(); err != nil {
			return s.finish(log, report), err
		}

		report.Attempted++
		log.Info("posting", "row", rec.Row, "text", rec.TextPreview(previewLength))

		mediaID, err := s.publish(ctx, publisher, rec)
		if err != nil {
			report.Failed++
			log.Error("failed to post row", "row", rec.Row, "error", err)
			s.record(ctx, report.CycleID, rec, "", err)
		} else {
			if err := table.MarkPosted(rec, s.now()); err != nil {
				return s.finish(log, report), fmt.Errorf("mark row %d posted: %w", rec.Row, err)
			}
			report.Succeeded++
			s.record(ctx, report.CycleID, rec, mediaID, nil)

			if err := s.store.Save(ctx, table); err != nil {
				log.Error("post published but store write failed, stopping cycle", "row", rec.Row, "media_id", mediaID, "error", err)
				return s.finish(log, report), fmt.Errorf("persist row %d after publishing: %w", rec.Row, err)
			}
		}

		if i < len(pending)-1 {
			d := s.randomDelay()
			log.Info("waiting before next post", "delay", d)
			if err := s.sleep(ctx, d); err != nil {
				return s.finish(log, report), err
			}
		}
	}

	return s.finish(log, report), nil
}

func (s *cycleService) publish(ctx context.Context, publisher Publisher, rec *models.PostRecord) (string, error) {
	if strings.TrimSpace(rec.Text) == "" {
		return "", fmt.Errorf("%w: row %d has no text", models.ErrPublish, rec.Row)
	}
	return publisher.Publish(ctx, rec.Text, s.normalizeImage(rec))
}

// normalizeImage drops local images that no longer exist so the post goes out as text only.
func (s *cycleService) normalizeImage(rec *models.PostRecord) *models.ImageRef {
	img := rec.Image
	if img == nil {
		return nil
	}
	if img.IsLocal() && !s.exists(img.Location) {
		slog.Warn("image not found, posting text only", "row", rec.Row, "image", img.Location)
		return nil
	}
	return img
}

func (s *cycleService) randomDelay() time.Duration {
	span := s.delay.Max - s.delay.Min
	secs := s.delay.Min
	if span > 0 {
		secs += s.intN(span + 1)
	}
	return time.Duration(secs) * time.Second
}

func (s *cycleService) record(ctx context.Context, cycleID string, rec *models.PostRecord, mediaID string, publishErr error) {
	if s.history == nil {
		return
	}

	ph := &models.PostingHistory{
		CycleID:     cycleID,
		Row:         rec.Row,
		TextPreview: rec.TextPreview(previewLength),
		MediaID:     mediaID,
		CreatedAt:   s.now(),
	}
	if publishErr != nil {
		ph.ErrorMessage = publishErr.Error()
	}
	if _, err := s.history.Create(context.WithoutCancel(ctx), ph); err != nil {
		slog.Warn("unable to record posting history", "row", rec.Row, "error", err)
	}
}

func (s *cycleService) finish(log *slog.Logger, report models.CycleReport) models.CycleReport {
	report.FinishedAt = s.now()
	log.Info("batch posting complete",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report
}

func newCycleID() string {
	id, err := gonanoid.New(12)
	if err != nil {
		return fmt.Sprintf("cycle-%d", time.Now().UnixNano())
	}
	return id
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("unable to stat image", "path", path, "error", err)
		}
		return false
	}
	return !info.IsDir()
}
