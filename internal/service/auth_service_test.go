package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/threads-poster/configs"
	"github.com/maheshrc27/threads-poster/internal/models"
	"github.com/maheshrc27/threads-poster/pkg/utils"
)

type authFixture struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	rejectLogin atomic.Bool
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{}
	api := &fakeThreadsAPI{}

	mux := http.NewServeMux()
	mux.Handle("/", api.handler(t))
	mux.HandleFunc("POST /oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))

		if f.rejectLogin.Load() || r.PostForm.Get("password") != "hunter2" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"good-token","token_type":"bearer","expires_in":3600}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *authFixture) config(t *testing.T, secret string) config.Config {
	return config.Config{
		Username:         "vault",
		Password:         "hunter2",
		MaxRetries:       3,
		ThreadsAPIURL:    f.server.URL,
		Auth:             config.Auth{TokenURL: f.server.URL + "/oauth/access_token", ClientID: "client"},
		SessionCachePath: filepath.Join(t.TempDir(), "session", "threads_session.jwt"),
		SessionSecret:    secret,
		HTTPTimeout:      5 * time.Second,
	}
}

func (f *authFixture) authService(cfg config.Config) AuthService {
	threads := NewThreadsService(cfg.ThreadsAPIURL, NewMediaService(nil), utils.RetryPolicy{MaxAttempts: 1}, cfg.HTTPTimeout)
	return NewAuthService(cfg, threads)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	auth := f.authService(f.config(t, ""))

	session, err := auth.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vault", session.Username)
	assert.Equal(t, "1789", session.UserID)
	assert.Equal(t, "good-token", session.AccessToken)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.Expiry, time.Minute)
	assert.True(t, auth.IsAuthenticated(session))
	assert.False(t, auth.IsAuthenticated(nil))
}

func TestAuthService_LoginRejected(t *testing.T) {
	f := newAuthFixture(t)
	cfg := f.config(t, "")
	cfg.Password = "wrong"
	auth := f.authService(cfg)

	session, err := auth.LoginWithRetry(context.Background())
	require.Error(t, err)
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, models.ErrAuth))
	assert.NotContains(t, err.Error(), "wrong")
	assert.Equal(t, int32(3), f.tokenCalls.Load())
}

func TestAuthService_SessionCache(t *testing.T) {
	f := newAuthFixture(t)
	cfg := f.config(t, "cache-secret")

	first, err := f.authService(cfg).Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), f.tokenCalls.Load())

	data, err := os.ReadFile(cfg.SessionCachePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "good-token")

	f.rejectLogin.Store(true)
	second, err := f.authService(cfg).Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load(), "cached session reused")
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestAuthService_SessionCacheIgnoredForOtherSecretOrUser(t *testing.T) {
	f := newAuthFixture(t)
	cfg := f.config(t, "cache-secret")

	_, err := f.authService(cfg).Login(context.Background())
	require.NoError(t, err)

	other := cfg
	other.SessionSecret = "different-secret"
	_, err = f.authService(other).Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load())

	renamed := other
	renamed.Username = "someone-else"
	_, err = f.authService(renamed).Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.tokenCalls.Load())
}
