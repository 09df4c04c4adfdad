package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/repository"
	"github.com/maheshrc27/threads-poster/internal/transfer"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// CycleState is the read side of the posting job.
type CycleState interface {
	Authenticated() bool
	Running() bool
	LastReport() *models.CycleReport
	LastError() error
}

// CycleTrigger starts a cycle without waiting for it. Errors wrapping
// models.ErrCycleBusy mean a cycle is already running or queued.
type CycleTrigger interface {
	Trigger(ctx context.Context) error
}

type StatusHandler struct {
	state   CycleState
	trigger CycleTrigger
	store   repository.PostRepository
	history repository.PostingHistoryRepository
	ctx     context.Context
}

// NewStatusHandler builds the handler. history may be nil. ctx bounds
// cycles started from the API, so they outlive the request.
func NewStatusHandler(
	ctx context.Context,
	state CycleState,
	trigger CycleTrigger,
	store repository.PostRepository,
	history repository.PostingHistoryRepository) *StatusHandler {
	return &StatusHandler{
		ctx:     ctx,
		state:   state,
		trigger: trigger,
		store:   store,
		history: history,
	}
}

func (h *StatusHandler) Health(c *fiber.Ctx) error {
	resp := transfer.HealthResponse{
		Status:        "ok",
		Authenticated: h.state.Authenticated(),
		Running:       h.state.Running(),
		LastCycle:     h.state.LastReport(),
	}
	if err := h.state.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *StatusHandler) ListPosts(c *fiber.Ctx) error {
	table, err := h.store.Load(c.UserContext())
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, models.ErrStoreUnavailable) {
			return errorJSON(c, fiber.StatusServiceUnavailable, "Post store unavailable")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to read posts")
	}

	resp := transfer.PostsResponse{
		Path:    h.store.Path(),
		Total:   len(table.Records),
		Pending: table.Count(models.PostStatusPending),
		Posted:  table.Count(models.PostStatusPosted),
		Posts:   make([]transfer.PostView, 0, len(table.Records)),
	}

	status := c.Query("status")
	for _, rec := range table.Records {
		if status != "" && string(rec.Status) != status {
			continue
		}
		resp.Posts = append(resp.Posts, toPostView(rec))
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *StatusHandler) ListHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "limit must be positive")
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if h.history == nil {
		return c.Status(fiber.StatusOK).JSON([]*models.PostingHistory{})
	}

	entries, err := h.history.ListRecent(c.UserContext(), limit)
	if err != nil {
		slog.Info(err.Error())
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to list history")
	}
	if entries == nil {
		entries = []*models.PostingHistory{}
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

func (h *StatusHandler) TriggerCycle(c *fiber.Ctx) error {
	if err := h.trigger.Trigger(h.ctx); err != nil {
		if errors.Is(err, models.ErrCycleBusy) {
			return errorJSON(c, fiber.StatusConflict, "A posting cycle is already running")
		}
		slog.Info(err.Error())
		return errorJSON(c, fiber.StatusServiceUnavailable, "Unable to start a posting cycle")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Posting cycle started",
	})
}
