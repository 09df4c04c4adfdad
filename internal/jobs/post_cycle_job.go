package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/service"
)

var ErrCycleInProgress = fmt.Errorf("%w: cycle in progress", models.ErrCycleBusy)

// PostCycleJob ties login state to the posting engine. At most one cycle runs
// at a time; triggers that arrive while one is running are skipped.
type PostCycleJob struct {
	ctx     context.Context
	auth    service.AuthService
	threads service.ThreadsService
	cycle   service.CycleService

	run     sync.Mutex
	running atomic.Bool

	mu         sync.RWMutex
	session    *models.Session
	lastReport *models.CycleReport
	lastErr    error
}

// NewPostCycleJob takes the session from the startup login, which may be nil.
// ctx bounds every cycle started by Run or Trigger.
func NewPostCycleJob(
	ctx context.Context,
	auth service.AuthService,
	threads service.ThreadsService,
	cycle service.CycleService,
	session *models.Session) *PostCycleJob {
	return &PostCycleJob{
		ctx:     ctx,
		auth:    auth,
		threads: threads,
		cycle:   cycle,
		session: session,
	}
}

// Run is the cron entry point.
func (j *PostCycleJob) Run() {
	if _, err := j.RunCycle(j.ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			slog.Warn("previous cycle still running, skipping this tick")
			return
		}
		slog.Info(err.Error())
	}
}

// RunCycle runs one cycle now, or returns ErrCycleInProgress.
func (j *PostCycleJob) RunCycle(ctx context.Context) (models.CycleReport, error) {
	if !j.run.TryLock() {
		return models.CycleReport{}, ErrCycleInProgress
	}
	defer j.run.Unlock()
	return j.runLocked(ctx)
}

// Trigger starts a cycle in the background, or returns ErrCycleInProgress.
func (j *PostCycleJob) Trigger(ctx context.Context) error {
	if !j.run.TryLock() {
		return ErrCycleInProgress
	}
	j.running.Store(true)
	go func() {
		defer j.run.Unlock()
		if _, err := j.runLocked(ctx); err != nil {
			slog.Info(err.Error())
		}
	}()
	return nil
}

// Wait blocks until no cycle is running.
func (j *PostCycleJob) Wait() {
	j.run.Lock()
	defer j.run.Unlock()
}

func (j *PostCycleJob) runLocked(ctx context.Context) (models.CycleReport, error) {
	j.running.Store(true)
	defer j.running.Store(false)

	session, err := j.HealthCheck(ctx)
	if err != nil {
		slog.Error("health check failed, skipping cycle", "error", err)
		j.setResult(nil, err)
		return models.CycleReport{}, err
	}

	report, err := j.cycle.RunCycle(ctx, j.threads.ForSession(session))
	j.setResult(&report, err)
	return report, err
}

// HealthCheck returns a valid session, logging in again when the current one
// is missing or expired.
func (j *PostCycleJob) HealthCheck(ctx context.Context) (*models.Session, error) {
	j.mu.RLock()
	session := j.session
	j.mu.RUnlock()

	if j.auth.IsAuthenticated(session) {
		return session, nil
	}

	slog.Warn("session missing or expired, logging in again")
	session, err := j.auth.LoginWithRetry(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.session = nil
		return nil, err
	}
	j.session = session
	return session, nil
}

func (j *PostCycleJob) setResult(report *models.CycleReport, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if report != nil {
		j.lastReport = report
	}
	j.lastErr = err
}

func (j *PostCycleJob) Authenticated() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.auth.IsAuthenticated(j.session)
}

func (j *PostCycleJob) Running() bool {
	return j.running.Load()
}

// LastReport returns a copy of the most recent cycle report, or nil before the first cycle.
func (j *PostCycleJob) LastReport() *models.CycleReport {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.lastReport == nil {
		return nil
	}
	report := *j.lastReport
	return &report
}

func (j *PostCycleJob) LastError() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastErr
}
