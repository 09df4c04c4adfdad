package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/threads-poster/internal/api/handlers"
	"github.com/maheshrc27/threads-poster/internal/api/middleware"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/internal/repository"
	"github.com/maheshrc27/threads-poster/internal/transfer"
)

type fakeState struct {
	report     *models.CycleReport
	lastErr    error
	accept     bool
	triggerErr error
	fired      int
}

func (f *fakeState) Authenticated() bool             { return true }
func (f *fakeState) Running() bool                   { return !f.accept }
func (f *fakeState) LastReport() *models.CycleReport { return f.report }
func (f *fakeState) LastError() error                { return f.lastErr }

func (f *fakeState) Trigger(ctx context.Context) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	if !f.accept {
		return fmt.Errorf("%w: cycle in progress", models.ErrCycleBusy)
	}
	f.fired++
	return nil
}

const storeCSV = "text,image,status,posted_at\n" +
	"first,,posted,2024-05-01 10:00:00\n" +
	"second,img/a.png,pending,\n" +
	"third,,pending,\n"

func newTestApp(t *testing.T, state *fakeState, history repository.PostingHistoryRepository, apiKey string) *fiber.App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posts.csv")
	require.NoError(t, os.WriteFile(path, []byte(storeCSV), 0o644))

	status := handlers.NewStatusHandler(context.Background(), state, state, repository.NewPostRepository(path), history)
	return NewApp(status, middleware.NewAuthMiddleware(apiKey))
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request, out any) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	state := &fakeState{report: &models.CycleReport{CycleID: "c1", Attempted: 2, Succeeded: 1, Failed: 1}, accept: true}
	app := newTestApp(t, state, nil, "secret")

	var resp transfer.HealthResponse
	code := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.LastCycle)
	assert.Equal(t, 1, resp.LastCycle.Failed)
}

func TestListPosts(t *testing.T) {
	app := newTestApp(t, &fakeState{}, nil, "")

	var resp transfer.PostsResponse
	code := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/posts", nil), &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Pending)
	assert.Equal(t, 1, resp.Posted)
	require.Len(t, resp.Posts, 3)
	assert.Equal(t, "2024-05-01 10:00:00", resp.Posts[0].PostedAt)
	assert.Equal(t, "img/a.png", resp.Posts[1].Image)

	code = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/posts?status=pending", nil), &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Posts, 2)
}

func TestAPIKeyRequired(t *testing.T) {
	app := newTestApp(t, &fakeState{}, nil, "secret")

	code := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/posts", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/posts?api_key=wrong", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/posts?api_key=secret", nil), nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("X-API-Key", "secret")
	code = doRequest(t, app, req, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestListHistory(t *testing.T) {
	db, err := repository.OpenDatabase(context.Background(), repository.DriverSQLite, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	history := repository.NewPostingHistoryRepository(db, repository.DriverSQLite)
	require.NoError(t, history.Migrate(context.Background()))

	for i := 0; i < 3; i++ {
		_, err := history.Create(context.Background(), &models.PostingHistory{
			CycleID:   "c1",
			Row:       i,
			MediaID:   "m",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	app := newTestApp(t, &fakeState{}, history, "")

	var entries []models.PostingHistory
	code := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil), &entries)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, entries, 2)

	code = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/history?limit=0", nil), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListHistory_Disabled(t *testing.T) {
	app := newTestApp(t, &fakeState{}, nil, "")

	var entries []models.PostingHistory
	code := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/history", nil), &entries)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, entries)
}

func TestTriggerCycle(t *testing.T) {
	idle := &fakeState{accept: true}
	app := newTestApp(t, idle, nil, "")
	code := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/api/cycle", nil), nil)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, 1, idle.fired)

	busy := &fakeState{accept: false}
	app = newTestApp(t, busy, nil, "")
	code = doRequest(t, app, httptest.NewRequest(http.MethodPost, "/api/cycle", nil), nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestTriggerCycle_BackendUnavailable(t *testing.T) {
	state := &fakeState{accept: true, triggerErr: errors.New("enqueue cycle:run: dial tcp 127.0.0.1:6379: connection refused")}
	app := newTestApp(t, state, nil, "")

	var resp map[string]string
	code := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/api/cycle", nil), &resp)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, resp["error"], "already running")
	assert.Zero(t, state.fired)
}

func TestListPosts_StoreMissing(t *testing.T) {
	state := &fakeState{}
	status := handlers.NewStatusHandler(context.Background(), state, state, repository.NewPostRepository(filepath.Join(t.TempDir(), "missing.csv")), nil)
	app := NewApp(status, middleware.NewAuthMiddleware(""))

	code := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/posts", nil), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
